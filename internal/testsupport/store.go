package testsupport

import (
	"context"
	"testing"
	"time"

	"ieprep/internal/config"
	"ieprep/internal/corpus"
	"ieprep/internal/ingest"
)

// MustOpenStore opens the "test" corpus for cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *corpus.Store {
	t.Helper()

	path, err := cfg.CorpusPath("test")
	if err != nil {
		t.Fatalf("CorpusPath: %v", err)
	}
	store, err := corpus.Open(path)
	if err != nil {
		t.Fatalf("corpus.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewID returns a monotonic ULID string, so IDs sort in creation order.
func NewID() string {
	return ingest.NewID()
}

// NewDocument inserts a document with the given identifier and text and
// returns its ID.
func NewDocument(t testing.TB, store *corpus.Store, identifier, text string) string {
	t.Helper()

	id := NewID()
	err := store.CreateDocument(context.Background(), corpus.NewDocument{
		ID:         id,
		Identifier: identifier,
		Title:      identifier,
		Text:       text,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("store.CreateDocument: %v", err)
	}
	return id
}
