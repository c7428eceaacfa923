package ingest_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"ieprep/internal/corpus"
	"ieprep/internal/ingest"
	"ieprep/internal/testsupport"
)

func TestExtractHTML(t *testing.T) {
	page := `<html><head><title> Field  Notes </title><style>p{}</style></head>
<body><h1>Day one</h1><p>Ada met   <b>Charles</b> in London.</p>
<script>var x = 1;</script><ul><li>first</li><li>second</li></ul></body></html>`
	title, text, err := ingest.ExtractHTML(strings.NewReader(page))
	if err != nil {
		t.Fatalf("ExtractHTML: %v", err)
	}
	if title != "Field Notes" {
		t.Fatalf("title = %q", title)
	}
	want := "Day one\nAda met Charles in London.\nfirst\nsecond"
	if text != want {
		t.Fatalf("text = %q, want %q", text, want)
	}
}

func TestNewIDIsMonotonic(t *testing.T) {
	prev := ingest.NewID()
	for range 100 {
		next := ingest.NewID()
		if next <= prev {
			t.Fatalf("ids not increasing: %s then %s", prev, next)
		}
		prev = next
	}
}

func TestAddFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	dir := t.TempDir()
	txt := testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), "Ada met Charles.")
	page := testsupport.WriteFile(t, filepath.Join(dir, "page.html"), "<title>Page</title><p>Hello <i>there</i>.</p>")
	missing := filepath.Join(dir, "missing.txt")

	importer := ingest.NewImporter(store)
	results, err := importer.AddFiles(context.Background(), []string{txt, page, missing, txt}, ingest.FormatAuto)
	if err != nil {
		t.Fatalf("AddFiles: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if results[0].Err != nil || results[0].ID == "" {
		t.Fatalf("text import failed: %+v", results[0])
	}
	if results[2].Err == nil {
		t.Fatal("expected error for missing file")
	}
	if !results[3].Skipped || results[3].Err != nil {
		t.Fatalf("expected duplicate to be skipped: %+v", results[3])
	}

	doc, err := store.GetDocument(context.Background(), results[1].ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.Title != "Page" || doc.Text != "Hello there." || doc.Metadata["format"] != "html" {
		t.Fatalf("unexpected html document %+v", doc)
	}
	if results[0].ID >= results[1].ID {
		t.Fatalf("expected ingestion order ids, got %s then %s", results[0].ID, results[1].ID)
	}
}

func TestAddFilesStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "a.txt"), "text")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := ingest.NewImporter(store).AddFiles(ctx, []string{path}, ingest.FormatText)
	if !errors.Is(err, context.Canceled) || len(results) != 0 {
		t.Fatalf("expected cancellation before any import, got %v %+v", err, results)
	}
	docs, err := store.ListDocuments(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected empty corpus, got %+v", docs)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ingest.ParseFormat("HTML"); err != nil || f != ingest.FormatHTML {
		t.Fatalf("ParseFormat(HTML) = %v, %v", f, err)
	}
	if _, err := ingest.ParseFormat("pdf"); err == nil {
		t.Fatal("expected error for pdf")
	}
}

var _ ingest.DocumentCreator = (*corpus.Store)(nil)
