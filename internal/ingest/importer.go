package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"ieprep/internal/corpus"
	"ieprep/internal/logging"
)

// Format selects how a file is read.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatHTML Format = "html"
)

// ParseFormat converts a flag value into a Format.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatText, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want auto, text or html)", raw)
	}
}

// DocumentCreator persists new documents. corpus.Store satisfies it.
type DocumentCreator interface {
	CreateDocument(ctx context.Context, doc corpus.NewDocument) error
}

// Result reports the outcome for one file.
type Result struct {
	Path       string
	ID         string
	Identifier string
	Skipped    bool
	Err        error
}

// Importer turns files into corpus documents.
type Importer struct {
	store  DocumentCreator
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the importer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Importer) {
		if logger != nil {
			i.logger = logging.NewComponentLogger(logger, "ingest")
		}
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(i *Importer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewImporter constructs an importer writing to store.
func NewImporter(store DocumentCreator, opts ...Option) *Importer {
	i := &Importer{store: store, logger: logging.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// AddFiles imports every path in order. A file whose identifier already
// exists is skipped. Per-file failures are reported in the results; only
// context cancellation stops the batch.
func (i *Importer) AddFiles(ctx context.Context, paths []string, format Format) ([]Result, error) {
	results := make([]Result, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, i.AddFile(ctx, path, format))
	}
	return results, nil
}

// AddFile imports one file. The identifier is the file's base name.
func (i *Importer) AddFile(ctx context.Context, path string, format Format) Result {
	result := Result{Path: path, Identifier: filepath.Base(path)}
	abs, err := filepath.Abs(path)
	if err != nil {
		result.Err = err
		return result
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		result.Err = fmt.Errorf("read %s: %w", path, err)
		return result
	}
	if format == FormatAuto || format == "" {
		format = detectFormat(abs)
	}

	title := strings.TrimSuffix(result.Identifier, filepath.Ext(result.Identifier))
	text := string(data)
	if format == FormatHTML {
		htmlTitle, body, err := ExtractHTML(bytes.NewReader(data))
		if err != nil {
			result.Err = fmt.Errorf("parse html %s: %w", path, err)
			return result
		}
		if htmlTitle != "" {
			title = htmlTitle
		}
		text = body
	}
	if !utf8.ValidString(text) {
		result.Err = fmt.Errorf("%s: text is not valid UTF-8", path)
		return result
	}

	result.ID = NewID()
	err = i.store.CreateDocument(ctx, corpus.NewDocument{
		ID:         result.ID,
		Identifier: result.Identifier,
		Title:      title,
		Text:       text,
		Metadata: map[string]string{
			"source_path": abs,
			"format":      string(format),
		},
		CreatedAt: i.now(),
	})
	switch {
	case errors.Is(err, corpus.ErrDuplicate):
		i.logger.Info("document already in corpus", logging.String("identifier", result.Identifier))
		result.ID = ""
		result.Skipped = true
	case err != nil:
		result.ID = ""
		result.Err = err
	default:
		i.logger.Info("document added",
			logging.String(logging.FieldDocumentID, result.ID),
			logging.String("identifier", result.Identifier),
			logging.String("format", string(format)),
			logging.Int("bytes", len(text)),
		)
	}
	return result
}

func detectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return FormatHTML
	default:
		return FormatText
	}
}
