// Package progress records which pipeline stages each document has completed
// and answers which documents still need a stage.
package progress

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"ieprep/internal/annotation"
	"ieprep/internal/corpus"
	"ieprep/internal/services"
)

const defaultBatchSize = 200

// Store is the persistence the tracker needs. corpus.Store satisfies it.
type Store interface {
	CompletedStages(ctx context.Context, id string) (map[annotation.Stage]time.Time, error)
	MissingStageIDs(ctx context.Context, stage annotation.Stage, prereqs []annotation.Stage, afterID string, limit int) ([]string, error)
	CommitStage(ctx context.Context, commit corpus.Commit) (int64, error)
}

// Tracker is the document progress tracker.
type Tracker struct {
	store     Store
	batchSize int
	now       func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithBatchSize sets the page size used by Needs.
func WithBatchSize(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.batchSize = n
		}
	}
}

// WithClock overrides the completion timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// New builds a tracker over store.
func New(store Store, opts ...Option) *Tracker {
	t := &Tracker{store: store, batchSize: defaultBatchSize, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StagesDone returns the stages with a complete record for the document and
// when each completed.
func (t *Tracker) StagesDone(ctx context.Context, id string) (map[annotation.Stage]time.Time, error) {
	return t.store.CompletedStages(ctx, id)
}

// MarkDone validates payload against doc, then atomically stores it and the
// completion marker. On success the payload is applied to doc and its version
// advanced.
//
// Invalid payloads fail with services.ErrValidation. A stage that already has
// a complete record fails with corpus.ErrAlreadyDone and a document changed
// since it was loaded fails with corpus.ErrVersionConflict, tagged transient.
func (t *Tracker) MarkDone(ctx context.Context, doc *annotation.Document, stage annotation.Stage, payload annotation.Payload) error {
	if doc == nil {
		return errors.New("mark done: nil document")
	}
	if !stage.Valid() {
		return services.Wrap(services.ErrConfiguration, string(stage), "mark done", "unknown stage", nil)
	}
	if err := annotation.Validate(stage, doc, payload); err != nil {
		return services.WithHint(
			services.Wrap(services.ErrValidation, string(stage), "mark done", "payload rejected", err),
			"the runner produced annotations inconsistent with the document",
		)
	}
	if stage == annotation.StageNER {
		payload.Entities = withRegistryKeys(doc, payload.Entities)
	}
	encoded, err := annotation.Encode(stage, payload)
	if err != nil {
		return services.Wrap(services.ErrValidation, string(stage), "mark done", "encode payload", err)
	}

	doneAt := t.now().UTC()
	version, err := t.store.CommitStage(ctx, corpus.Commit{
		DocumentID:      doc.ID,
		Stage:           stage,
		Payload:         encoded,
		DoneAt:          doneAt,
		ExpectedVersion: doc.Version,
		Entities:        entityRecords(stage, doc, payload),
	})
	if err != nil {
		if errors.Is(err, corpus.ErrVersionConflict) {
			return services.Wrap(services.ErrTransient, string(stage), "mark done", "document changed during processing", err)
		}
		return err
	}

	doc.Apply(stage, annotation.Fields(stage, payload), doneAt)
	doc.Version = version
	return nil
}

// Needs lazily yields the IDs of documents that lack stage but have every
// prerequisite in prereqs, in ascending ID order. Each page is queried when
// the previous one is exhausted, so documents completed while iterating are
// not yielded again. The sequence stops at the first error.
func (t *Tracker) Needs(ctx context.Context, stage annotation.Stage, prereqs ...annotation.Stage) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		after := ""
		for {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			ids, err := t.store.MissingStageIDs(ctx, stage, prereqs, after, t.batchSize)
			if err != nil {
				yield("", fmt.Errorf("list documents needing %s: %w", stage, err))
				return
			}
			for _, id := range ids {
				if !yield(id, nil) {
					return
				}
			}
			if len(ids) < t.batchSize {
				return
			}
			after = ids[len(ids)-1]
		}
	}
}

// withRegistryKeys returns a copy of entities with every Key set, so the
// stored payload names the registry entries it was counted under.
func withRegistryKeys(doc *annotation.Document, entities []annotation.Entity) []annotation.Entity {
	out := slices.Clone(entities)
	for i := range out {
		if out[i].Key == "" {
			out[i].Key = NormalizeKey(surfaceText(doc, out[i]))
		}
	}
	return out
}

func surfaceText(doc *annotation.Document, e annotation.Entity) string {
	if e.Alias != "" {
		return e.Alias
	}
	return doc.SpanText(e.Start, e.End)
}

func entityRecords(stage annotation.Stage, doc *annotation.Document, payload annotation.Payload) []corpus.EntityRecord {
	if stage != annotation.StageNER || len(payload.Entities) == 0 {
		return nil
	}
	records := make([]corpus.EntityRecord, 0, len(payload.Entities))
	for _, e := range payload.Entities {
		records = append(records, corpus.EntityRecord{Kind: e.Kind, Key: e.Key, CanonicalForm: surfaceText(doc, e)})
	}
	return records
}

// NormalizeKey lowercases value and collapses whitespace, producing the
// registry key for an entity without an explicit key.
func NormalizeKey(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}
