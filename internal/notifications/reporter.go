package notifications

import (
	"context"
	"errors"
	"strings"
	"time"

	"overlay/internal/config"
)

// Error types understood by the reporters.
const (
	ErrorTypeFatal           = "renderer_fatal"
	ErrorTypeVersionMismatch = "renderer_version_mismatch"
)

// Reporter surfaces a renderer error to the user.
type Reporter interface {
	ReportRendererError(ctx context.Context, errorType string) error
}

// NewReporter builds the reporters enabled in cfg. Suppression is the
// launcher's concern and is not checked here.
func NewReporter(cfg *config.Config) Reporter {
	if cfg == nil {
		return noopReporter{}
	}
	var reporters multiReporter
	if command := strings.TrimSpace(cfg.Notifications.DialogCommand); command != "" {
		reporters = append(reporters, &dialogReporter{command: strings.Fields(command)})
	}
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
		reporters = append(reporters, newNtfyReporter(topic, timeout))
	}
	switch len(reporters) {
	case 0:
		return noopReporter{}
	case 1:
		return reporters[0]
	default:
		return reporters
	}
}

type multiReporter []Reporter

func (m multiReporter) ReportRendererError(ctx context.Context, errorType string) error {
	var errs []error
	for _, r := range m {
		if err := r.ReportRendererError(ctx, errorType); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type noopReporter struct{}

func (noopReporter) ReportRendererError(context.Context, string) error { return nil }

func describe(errorType string) (title, message string) {
	switch errorType {
	case ErrorTypeVersionMismatch:
		return "Overlay - Renderer Version Mismatch",
			"The running renderer is older than this session and was disabled. Restart the session after upgrading."
	default:
		return "Overlay - Renderer Error",
			"The renderer could not be started. Check the renderer installation."
	}
}
