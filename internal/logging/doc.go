// Package logging assembles structured slog loggers and formatting helpers used
// across ieprep.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with document IDs, stages, recognizer sources, and run IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
