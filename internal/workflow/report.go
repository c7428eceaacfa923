package workflow

import (
	"time"

	"ieprep/internal/annotation"
)

// Report summarizes one ProcessEverything call.
type Report struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Stages     []StageReport `json:"stages"`
	Failures   []Failure     `json:"failures,omitempty"`
	// Interrupted is set when a stop signal ended the run early.
	Interrupted bool `json:"interrupted"`
	// Fatal holds the message of the error that halted the run.
	Fatal string `json:"fatal,omitempty"`
}

// StageReport holds per-stage counters.
type StageReport struct {
	Stage     annotation.Stage `json:"stage"`
	Attempted int              `json:"attempted"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	// Skipped counts documents found complete or missing a prerequisite on reload.
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Failure records one recoverable per-document failure.
type Failure struct {
	DocumentID string           `json:"document_id"`
	Stage      annotation.Stage `json:"stage"`
	Kind       string           `json:"kind"`
	Message    string           `json:"message"`
}

// Duration returns the wall time of the run.
func (r Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// HasFailures reports whether any document failed recoverably.
func (r Report) HasFailures() bool {
	return len(r.Failures) > 0
}

// Succeeded returns the number of stage results recorded across all stages.
func (r Report) Succeeded() int {
	total := 0
	for _, s := range r.Stages {
		total += s.Succeeded
	}
	return total
}
