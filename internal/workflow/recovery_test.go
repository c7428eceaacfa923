package workflow_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"ieprep/internal/annotation"
	"ieprep/internal/corpus"
	"ieprep/internal/logging"
	"ieprep/internal/progress"
	"ieprep/internal/testsupport"
	"ieprep/internal/workflow"
)

func overwritePayload(t *testing.T, store *corpus.Store, id string, s annotation.Stage, payload string) {
	t.Helper()
	db, err := sql.Open("sqlite", store.Path())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	defer db.Close()
	res, err := db.Exec("UPDATE stage_results SET payload_json = ? WHERE document_id = ? AND stage = ?", payload, id, string(s))
	if err != nil {
		t.Fatalf("overwrite payload: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Fatalf("expected one row overwritten, got %d", n)
	}
}

func TestUnreadablePayloadsAreRecomputed(t *testing.T) {
	h := newHarness(t)
	ids := h.addDocs(t, "alpha beta", "gamma delta", "epsilon zeta")

	first := h.manager()
	if err := first.Register(newTokenizer()); err != nil {
		t.Fatalf("Register tokenizer: %v", err)
	}
	if _, err := first.ProcessEverything(context.Background()); err != nil {
		t.Fatalf("tokenize run: %v", err)
	}

	// Truncated JSON on the first document, well-formed JSON of the wrong
	// shape on the second.
	overwritePayload(t, h.store, ids[0], annotation.StageTokenize, `{"tokens":[`)
	overwritePayload(t, h.store, ids[1], annotation.StageTokenize, `{"tokens":"oops"}`)

	tokenizer, tagger := newTokenizer(), newTagger()
	mgr := h.manager()
	for _, r := range []*stubRunner{tokenizer, tagger} {
		if err := mgr.Register(r); err != nil {
			t.Fatalf("Register %s: %v", r.stage, err)
		}
	}

	report, err := mgr.ProcessEverything(context.Background())
	if err != nil {
		t.Fatalf("ProcessEverything halted on unreadable payload: %v", err)
	}
	if report.HasFailures() {
		t.Fatalf("unexpected failures: %+v", report.Failures)
	}
	if tokenizer.invocations() != 1 {
		t.Fatalf("expected truncated payload re-tokenized in the same run, got %d calls", tokenizer.invocations())
	}
	for _, id := range []string{ids[0], ids[2]} {
		doc := h.load(t, id)
		if !doc.HasStage(annotation.StagePOSTag) || len(doc.PosTags) != 2 {
			t.Fatalf("document %s not tagged: %+v", id, doc.PosTags)
		}
	}
	second := h.load(t, ids[1])
	if second.HasStage(annotation.StageTokenize) || second.HasStage(annotation.StagePOSTag) {
		t.Fatalf("expected unreadable tokenize record discarded, got %v", second.Done)
	}

	if _, err := mgr.ProcessEverything(context.Background()); err != nil {
		t.Fatalf("second ProcessEverything: %v", err)
	}
	if tokenizer.invocations() != 2 {
		t.Fatalf("expected discarded record re-tokenized on rerun, got %d calls", tokenizer.invocations())
	}
	second = h.load(t, ids[1])
	if len(second.Tokens) != 2 || len(second.PosTags) != 2 {
		t.Fatalf("expected document recomputed, got tokens=%+v tags=%v", second.Tokens, second.PosTags)
	}
}

// interruptingStore cancels the run while a listing query is in flight and
// fails that query with a driver error that does not wrap context.Canceled.
type interruptingStore struct {
	*corpus.Store
	cancel context.CancelFunc
	calls  int
}

func (s *interruptingStore) MissingStageIDs(ctx context.Context, st annotation.Stage, prereqs []annotation.Stage, afterID string, limit int) ([]string, error) {
	s.calls++
	if s.calls > 1 {
		s.cancel()
		return nil, errors.New("interrupted (9)")
	}
	return s.Store.MissingStageIDs(ctx, st, prereqs, afterID, limit)
}

func TestCancelledListingIsAnInterruption(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBatchSize(1))
	store := testsupport.MustOpenStore(t, cfg)
	first := testsupport.NewDocument(t, store, "doc-a", "one two")
	testsupport.NewDocument(t, store, "doc-b", "three four")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	listing := &interruptingStore{Store: store, cancel: cancel}
	mgr := workflow.NewManager(cfg, store, progress.New(listing, progress.WithBatchSize(1)), logging.NewNop())
	if err := mgr.Register(newTokenizer()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	report, err := mgr.ProcessEverything(ctx)
	if err != nil {
		t.Fatalf("expected interruption, got error %v", err)
	}
	if !report.Interrupted || report.Fatal != "" {
		t.Fatalf("expected interrupted report, got %+v", report)
	}
	doc, err := store.GetDocument(context.Background(), first)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if !doc.HasStage(annotation.StageTokenize) {
		t.Fatal("expected the first document to stay committed")
	}
}
