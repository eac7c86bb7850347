// Package logging assembles structured slog loggers and formatting helpers used
// across stemswap commands.
//
// It owns the console and JSON handlers, fans output out to the terminal and a
// daily log file, and exposes context-aware helpers so pipeline code tags log
// lines with run and track identifiers. WarnWithContext and ErrorWithContext
// enforce the event_type, error_hint, and impact fields on problem reports.
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging
