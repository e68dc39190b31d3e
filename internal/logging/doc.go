// Package logging assembles structured slog loggers and formatting helpers used
// across the render service, the worker, and the CLI.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so worker and handler code can
// tag log lines with render job IDs, usernames, and correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
