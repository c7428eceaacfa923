package stage

import (
	"context"
	"log/slog"

	"ieprep/internal/annotation"
)

// Runner describes the contract the workflow manager needs from each stage.
// Run must be deterministic for the same document text and prior annotations.
type Runner interface {
	Stage() annotation.Stage
	Prerequisites() []annotation.Stage
	Run(ctx context.Context, doc *annotation.Document) (annotation.Payload, error)
}

// Recognizer is one entity source feeding the named-entity-recognition stage.
// Recognizers are ranked by registration order when their outputs are merged.
type Recognizer interface {
	Source() string
	Recognize(ctx context.Context, doc *annotation.Document) ([]annotation.Entity, error)
}

// HealthChecker is implemented by runners that can verify their backing
// tools before a run starts.
type HealthChecker interface {
	HealthCheck(ctx context.Context) Health
}

// LoggerAware runners receive the per-stage logger before each document.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
