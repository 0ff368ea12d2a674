package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRenderer is the standardized structured logging key for renderer names.
	FieldRenderer = "renderer"
	// FieldAttemptID is the standardized structured logging key for launch attempt identifiers.
	FieldAttemptID = "attempt_id"
	// FieldEventType classifies a log line for filtering and alerting.
	FieldEventType = "event_type"
	// FieldErrorHint carries the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldDecisionType names the decision recorded by DecisionAttrs.
	FieldDecisionType = "decision_type"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

type contextKey int

const (
	rendererKey contextKey = iota
	attemptKey
)

// WithRenderer stores the renderer name on ctx.
func WithRenderer(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, rendererKey, name)
}

// WithAttempt stores a launch attempt identifier on ctx.
func WithAttempt(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, attemptKey, id)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if name, ok := ctx.Value(rendererKey).(string); ok && name != "" {
		fields = append(fields, slog.String(FieldRenderer, name))
	}
	if id, ok := ctx.Value(attemptKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldAttemptID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
