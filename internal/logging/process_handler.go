package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldSessionID identifies one invocation of overlay or overlayd.
	FieldSessionID = "session_id"
	// FieldProcess names the binary that wrote the record.
	FieldProcess = "process"
)

// processHandler stamps every record with the writing process and its
// session, so overlay and overlayd lines can share one log directory.
type processHandler struct {
	base  slog.Handler
	attrs []slog.Attr
}

func newProcessHandler(base slog.Handler, process, sessionID string) slog.Handler {
	if base == nil {
		return NoopHandler{}
	}
	var attrs []slog.Attr
	if process != "" {
		attrs = append(attrs, slog.String(FieldProcess, process))
	}
	if sessionID != "" {
		attrs = append(attrs, slog.String(FieldSessionID, sessionID))
	}
	if len(attrs) == 0 {
		return base
	}
	return &processHandler{base: base, attrs: attrs}
}

func (h *processHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *processHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(h.attrs...)
	return h.base.Handle(ctx, record)
}

func (h *processHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &processHandler{base: h.base.WithAttrs(attrs), attrs: h.attrs}
}

func (h *processHandler) WithGroup(name string) slog.Handler {
	return &processHandler{base: h.base.WithGroup(name), attrs: h.attrs}
}
