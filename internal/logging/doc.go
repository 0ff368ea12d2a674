// Package logging assembles structured slog loggers and formatting helpers used
// by the overlay client and the renderer process.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so launcher and client code can
// tag log lines with the renderer name, launch attempt and session. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so that every
// component emits data with the same shape and routing guarantees.
package logging
