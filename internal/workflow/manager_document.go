package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ieprep/internal/annotation"
	"ieprep/internal/corpus"
	"ieprep/internal/logging"
	"ieprep/internal/merge"
	"ieprep/internal/services"
)

// processDocument moves one document through the stage. The returned state is
// StateSkippedFailure together with the error for recoverable failures; any
// other non-nil error is fatal.
//
// The runner and the commit run on a context detached from cancellation so
// a stop signal never leaves a document half processed.
func (m *Manager) processDocument(ctx context.Context, run *stageRun, id string) (DocumentState, error) {
	ps := run.ps
	docCtx := services.WithDocumentID(ctx, id)
	workCtx := context.WithoutCancel(docCtx)
	logger := logging.WithContext(docCtx, m.logger)

	doc, err := m.store.GetDocument(workCtx, id)
	if err != nil {
		if errors.Is(err, corpus.ErrNotFound) {
			logger.Debug("document disappeared before processing", logging.String(logging.FieldDocumentState, string(StateAlreadyDone)))
			return StateAlreadyDone, nil
		}
		return "", fmt.Errorf("stage %s document %s: load: %w", ps.stage, id, err)
	}

	if doc.HasStage(ps.stage) {
		m.notify(ps.stage, id, StateAlreadyDone)
		return StateAlreadyDone, nil
	}
	if missing := doc.MissingPrerequisites(ps.prereqs); len(missing) > 0 {
		m.notify(ps.stage, id, StatePendingPrerequisite)
		logger.Debug("document waiting on prerequisites",
			logging.String(logging.FieldDocumentState, string(StatePendingPrerequisite)),
			logging.String("missing", joinStages(missing)),
		)
		return StatePendingPrerequisite, nil
	}

	m.notify(ps.stage, id, StateReady)
	m.notify(ps.stage, id, StateRunning)
	logger.Debug("document running", logging.String(logging.FieldDocumentState, string(StateRunning)))
	started := time.Now()

	payload, err := m.execute(workCtx, ps, doc)
	if err == nil {
		err = m.tracker.MarkDone(workCtx, doc, ps.stage, payload)
		if errors.Is(err, corpus.ErrAlreadyDone) {
			m.notify(ps.stage, id, StateAlreadyDone)
			return StateAlreadyDone, nil
		}
	}
	if err != nil {
		if services.IsFatal(err) {
			return "", fmt.Errorf("stage %s document %s: %w", ps.stage, id, err)
		}
		m.handleDocumentFailure(logger, ps, id, err)
		m.notify(ps.stage, id, StateSkippedFailure)
		return StateSkippedFailure, err
	}

	m.notify(ps.stage, id, StateDone)
	logger.Debug("document done",
		logging.String(logging.FieldDocumentState, string(StateDone)),
		logging.Duration("document_duration", time.Since(started)),
	)
	return StateDone, nil
}

// execute runs the stage's single runner, or every recognizer followed by
// the merger.
func (m *Manager) execute(ctx context.Context, ps pipelineStage, doc *annotation.Document) (annotation.Payload, error) {
	if ps.runner != nil {
		return ps.runner.Run(ctx, doc)
	}

	sources := make([][]annotation.Entity, 0, len(ps.recognizers))
	for _, r := range ps.recognizers {
		entities, err := r.Recognize(services.WithSource(ctx, r.Source()), doc)
		if err != nil {
			return annotation.Payload{}, err
		}
		for i := range entities {
			if entities[i].Source == "" {
				entities[i].Source = r.Source()
			}
		}
		sources = append(sources, entities)
	}

	result := merge.MergeDetailed(sources...)
	if len(result.Dropped) > 0 {
		logger := logging.WithContext(ctx, m.logger)
		for _, e := range result.Dropped {
			logger.Debug("annotation dropped by merge",
				logging.String(logging.FieldSource, e.Source),
				logging.String("kind", e.Kind),
				logging.Int("start", e.Start),
				logging.Int("end", e.End),
			)
		}
	}
	return annotation.Payload{Entities: result.Accepted}, nil
}

func (m *Manager) handleDocumentFailure(logger *slog.Logger, ps pipelineStage, id string, err error) {
	details := services.Details(err)
	attrs := []logging.Attr{
		logging.String(logging.FieldDocumentState, string(StateSkippedFailure)),
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String(logging.FieldErrorHint, errorHint(err, "inspect the document; rerun retries it")),
		logging.String(logging.FieldImpact, "stage left incomplete for this document"),
		logging.String("error_operation", details.Operation),
		logging.Error(err),
	}
	logging.WarnWithContext(logger, fmt.Sprintf("%s failed for document %s", ps.stage, id), "document_failed", attrs...)
}

func joinStages(stages []annotation.Stage) string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return strings.Join(names, ",")
}
