package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ieprep/internal/annotation"
	"ieprep/internal/logging"
	"ieprep/internal/services"
	"ieprep/internal/stage"
)

// ErrTooManyFailures halts a run after pipeline.max_consecutive_failures
// recoverable failures in a row within one stage.
var ErrTooManyFailures = errors.New("too many consecutive failures")

// ProcessEverything runs every registered stage, in order, over every
// document that still needs it. Recoverable per-document failures are
// recorded in the report and the run continues. A fatal failure halts the run
// and is returned; results recorded before it are kept. Cancelling ctx stops
// the run after the documents in flight are committed and marks the report
// interrupted without returning an error.
func (m *Manager) ProcessEverything(ctx context.Context) (Report, error) {
	runID := uuid.NewString()
	ctx = services.WithRequestID(ctx, runID)
	report := Report{RunID: runID, StartedAt: m.now()}
	logger := logging.WithContext(ctx, m.logger)

	stages := m.activeStages()
	if len(stages) == 0 {
		err := services.Wrap(services.ErrConfiguration, "", "process", "no stages registered", nil)
		report.Fatal = err.Error()
		report.FinishedAt = m.now()
		return report, err
	}

	logger.Info("pipeline run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("stage_count", len(stages)),
		logging.Int("workers", m.workers),
	)

	for _, ps := range stages {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}
		stageReport, failures, interrupted, err := m.runStage(ctx, ps)
		report.Stages = append(report.Stages, stageReport)
		report.Failures = append(report.Failures, failures...)
		if err != nil {
			report.Fatal = err.Error()
			report.FinishedAt = m.now()
			logging.ErrorWithContext(logger, "pipeline run halted", "run_halted",
				logging.String(logging.FieldStage, ps.name()),
				logging.String(logging.FieldErrorKind, string(services.KindOf(err))),
				logging.String(logging.FieldErrorHint, errorHint(err, "fix the cause and rerun; completed work is kept")),
				logging.Error(err),
			)
			return report, err
		}
		if interrupted {
			report.Interrupted = true
			break
		}
	}

	report.FinishedAt = m.now()
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("results_recorded", report.Succeeded()),
		logging.Int("failures", len(report.Failures)),
		logging.Duration("run_duration", report.Duration()),
	}
	if report.Interrupted {
		logging.WarnWithContext(logger, "pipeline run interrupted", "run_interrupted",
			append(attrs,
				logging.String(logging.FieldImpact, "remaining documents were not processed"),
				logging.String(logging.FieldErrorHint, "rerun to resume where the run stopped"),
			)...)
		return report, nil
	}
	logger.Info("pipeline run completed", logging.Args(attrs...)...)
	return report, nil
}

// stageRun accumulates the outcome of one stage across workers.
type stageRun struct {
	ps          pipelineStage
	logger      *slog.Logger
	maxFailures int

	mu          sync.Mutex
	report      StageReport
	failures    []Failure
	consecutive int
	fatal       error
}

func (s *stageRun) setFatal(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fatal == nil {
		s.fatal = err
	}
}

func (s *stageRun) fatalErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal
}

func (m *Manager) runStage(ctx context.Context, ps pipelineStage) (StageReport, []Failure, bool, error) {
	stageCtx := services.WithStage(ctx, ps.name())
	run := &stageRun{
		ps:          ps,
		logger:      logging.WithContext(stageCtx, m.logger),
		maxFailures: m.maxFailures,
		report:      StageReport{Stage: ps.stage},
	}
	started := time.Now()
	run.logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Int("runners", ps.runnerCount()),
	)
	m.attachLogger(ps, run.logger)

	var interrupted bool
	if m.workers <= 1 {
		interrupted = m.feedSequential(stageCtx, run)
	} else {
		interrupted = m.feedPool(stageCtx, run)
	}

	run.report.Duration = time.Since(started)
	if err := run.fatalErr(); err != nil {
		return run.report, run.failures, interrupted, err
	}
	run.logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("attempted", run.report.Attempted),
		logging.Int("succeeded", run.report.Succeeded),
		logging.Int("failed", run.report.Failed),
		logging.Int("skipped", run.report.Skipped),
		logging.Duration("stage_duration", run.report.Duration),
	)
	return run.report, run.failures, interrupted, nil
}

// feedSequential processes the stage one document at a time. It reports
// whether the run was interrupted.
func (m *Manager) feedSequential(ctx context.Context, run *stageRun) bool {
	for id, err := range m.tracker.Needs(ctx, run.ps.stage, run.ps.prereqs...) {
		if err != nil {
			return m.handleNeedsError(ctx, run, err)
		}
		if ctx.Err() != nil {
			return true
		}
		if err := m.processAndRecord(ctx, run, id); err != nil {
			run.setFatal(err)
			return false
		}
	}
	return false
}

// feedPool processes documents of the stage on m.workers goroutines. No new
// document starts once a fatal failure is recorded or ctx is cancelled.
func (m *Manager) feedPool(ctx context.Context, run *stageRun) bool {
	feedCtx, stop := context.WithCancel(ctx)
	defer stop()

	ids := make(chan string)
	var wg sync.WaitGroup
	for range m.workers {
		wg.Go(func() {
			for id := range ids {
				if feedCtx.Err() != nil {
					continue
				}
				if err := m.processAndRecord(ctx, run, id); err != nil {
					run.setFatal(err)
					stop()
				}
			}
		})
	}

	interrupted := false
feed:
	for id, err := range m.tracker.Needs(feedCtx, run.ps.stage, run.ps.prereqs...) {
		if err != nil {
			if run.fatalErr() == nil {
				interrupted = m.handleNeedsError(ctx, run, err)
			}
			break
		}
		select {
		case ids <- id:
		case <-feedCtx.Done():
			break feed
		}
	}
	close(ids)
	wg.Wait()
	if ctx.Err() != nil && run.fatalErr() == nil {
		interrupted = true
	}
	return interrupted
}

// handleNeedsError reports whether a listing failure is an interruption. Once
// ctx is cancelled any listing error counts as one, since the driver may
// surface the cancellation as its own error.
func (m *Manager) handleNeedsError(ctx context.Context, run *stageRun, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	run.setFatal(fmt.Errorf("stage %s: %w", run.ps.stage, err))
	return false
}

// processAndRecord runs one document and folds the outcome into run. It
// returns a non-nil error only when the run must halt.
func (m *Manager) processAndRecord(ctx context.Context, run *stageRun, id string) error {
	state, err := m.processDocument(ctx, run, id)

	run.mu.Lock()
	defer run.mu.Unlock()
	switch state {
	case StateDone:
		run.report.Attempted++
		run.report.Succeeded++
		run.consecutive = 0
	case StateAlreadyDone, StatePendingPrerequisite:
		run.report.Skipped++
	case StateSkippedFailure:
		run.report.Attempted++
		run.report.Failed++
		details := services.Details(err)
		run.failures = append(run.failures, Failure{
			DocumentID: id,
			Stage:      run.ps.stage,
			Kind:       string(details.Kind),
			Message:    err.Error(),
		})
		run.consecutive++
		if run.maxFailures > 0 && run.consecutive >= run.maxFailures {
			return fmt.Errorf("stage %s: %w (%d in a row, last on document %s): %w",
				run.ps.stage, ErrTooManyFailures, run.consecutive, id, err)
		}
		return nil
	default:
		run.report.Attempted++
		return err
	}
	return nil
}

func (m *Manager) attachLogger(ps pipelineStage, logger *slog.Logger) {
	if aware, ok := ps.runner.(stage.LoggerAware); ok {
		aware.SetLogger(logger)
	}
	for _, r := range ps.recognizers {
		if aware, ok := r.(stage.LoggerAware); ok {
			aware.SetLogger(logging.WithContext(services.WithSource(context.Background(), r.Source()), logger))
		}
	}
}

func (m *Manager) notify(s annotation.Stage, id string, state DocumentState) {
	if m.observer != nil {
		m.observer(s, id, state)
	}
}

func errorHint(err error, fallback string) string {
	if hint := services.Details(err).Hint; hint != "" {
		return hint
	}
	return fallback
}
