// Package logging assembles structured slog loggers and formatting helpers used
// across the PodVision client.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so API and monitor code can tag
// log lines with job and request identifiers. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
//
// Logs go to stderr by default so command output on stdout stays clean for
// scripts consuming --json.
package logging
