// Package services defines shared utilities consumed by the pipeline stage
// runners and external annotator integrations.
//
// Key responsibilities:
//   - Context helpers that stamp document IDs, stage names, and run
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that separate
//     recoverable, per-document failures from fatal ones that must halt a run.
//   - Thin abstractions that make external annotator processes testable.
//
// Use these helpers when wiring new runners so operational behaviour (error
// classification, observability) stays uniform across the pipeline.
package services
