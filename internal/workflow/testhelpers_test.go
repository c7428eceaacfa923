package workflow_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"ieprep/internal/annotation"
	"ieprep/internal/config"
	"ieprep/internal/corpus"
	"ieprep/internal/logging"
	"ieprep/internal/progress"
	"ieprep/internal/stage"
	"ieprep/internal/testsupport"
	"ieprep/internal/workflow"
)

type harness struct {
	cfg     *config.Config
	store   *corpus.Store
	tracker *progress.Tracker
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	return &harness{
		cfg:     cfg,
		store:   store,
		tracker: progress.New(store, progress.WithBatchSize(cfg.Pipeline.BatchSize)),
	}
}

func (h *harness) manager(opts ...workflow.ManagerOption) *workflow.Manager {
	return workflow.NewManager(h.cfg, h.store, h.tracker, logging.NewNop(), opts...)
}

func (h *harness) addDocs(t *testing.T, texts ...string) []string {
	t.Helper()
	ids := make([]string, len(texts))
	for i, text := range texts {
		ids[i] = testsupport.NewDocument(t, h.store, "doc-"+string(rune('a'+i)), text)
	}
	return ids
}

func (h *harness) load(t *testing.T, id string) *annotation.Document {
	t.Helper()
	doc, err := h.store.GetDocument(context.Background(), id)
	if err != nil {
		t.Fatalf("GetDocument(%s): %v", id, err)
	}
	return doc
}

// stubRunner is a configurable stage runner that counts invocations.
type stubRunner struct {
	stage   annotation.Stage
	prereqs []annotation.Stage
	run     func(doc *annotation.Document) (annotation.Payload, error)
	health  *stage.Health

	calls atomic.Int64
	mu    sync.Mutex
	seen  []string
}

func (s *stubRunner) Stage() annotation.Stage           { return s.stage }
func (s *stubRunner) Prerequisites() []annotation.Stage { return s.prereqs }

func (s *stubRunner) Run(_ context.Context, doc *annotation.Document) (annotation.Payload, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.seen = append(s.seen, doc.ID)
	s.mu.Unlock()
	return s.run(doc)
}

func (s *stubRunner) HealthCheck(context.Context) stage.Health {
	if s.health != nil {
		return *s.health
	}
	return stage.Healthy(string(s.stage))
}

func (s *stubRunner) invocations() int {
	return int(s.calls.Load())
}

func whitespaceTokens(doc *annotation.Document) (annotation.Payload, error) {
	var tokens []annotation.Token
	offset := 0
	for _, field := range strings.Fields(doc.Text) {
		idx := strings.Index(doc.Text[offset:], field)
		tokens = append(tokens, annotation.Token{Text: field, Offset: offset + idx})
		offset += idx + len(field)
	}
	return annotation.Payload{Tokens: tokens, Sentences: []int{0, len(tokens)}}, nil
}

func newTokenizer() *stubRunner {
	return &stubRunner{stage: annotation.StageTokenize, run: whitespaceTokens}
}

func newTagger() *stubRunner {
	return &stubRunner{
		stage: annotation.StagePOSTag,
		run: func(doc *annotation.Document) (annotation.Payload, error) {
			tags := make([]string, len(doc.Tokens))
			for i := range tags {
				tags[i] = "NN"
			}
			return annotation.Payload{PosTags: tags}, nil
		},
	}
}

func newSegmenter() *stubRunner {
	return &stubRunner{
		stage: annotation.StageSegmentation,
		run: func(doc *annotation.Document) (annotation.Payload, error) {
			if len(doc.Entities) < 2 {
				return annotation.Payload{Segments: []annotation.Segment{}}, nil
			}
			idx := make([]int, len(doc.Entities))
			for i := range idx {
				idx[i] = i
			}
			return annotation.Payload{Segments: []annotation.Segment{{Start: 0, End: len(doc.Tokens), Entities: idx}}}, nil
		},
	}
}

// stubRecognizer returns fixed entities for every document.
type stubRecognizer struct {
	source   string
	entities []annotation.Entity
	err      error
	calls    atomic.Int64
}

func (r *stubRecognizer) Source() string { return r.source }

func (r *stubRecognizer) Recognize(_ context.Context, doc *annotation.Document) ([]annotation.Entity, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	out := make([]annotation.Entity, 0, len(r.entities))
	for _, e := range r.entities {
		if e.End <= len(doc.Tokens) {
			out = append(out, e)
		}
	}
	return out, nil
}
