package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ieprep/internal/annotation"
	"ieprep/internal/logging"
)

// NewDocument describes a document to insert into the corpus.
type NewDocument struct {
	ID         string
	Identifier string
	Title      string
	Text       string
	Metadata   map[string]string
	CreatedAt  time.Time
}

// DocumentSummary is a lightweight listing row.
type DocumentSummary struct {
	ID         string             `json:"id"`
	Identifier string             `json:"identifier"`
	Title      string             `json:"title"`
	Version    int64              `json:"version"`
	Stages     []annotation.Stage `json:"stages"`
}

// CreateDocument inserts a new document with no completed stages.
func (s *Store) CreateDocument(ctx context.Context, doc NewDocument) error {
	if strings.TrimSpace(doc.ID) == "" {
		return errors.New("document id is required")
	}
	if strings.TrimSpace(doc.Identifier) == "" {
		return errors.New("document identifier is required")
	}
	created := doc.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	var metadata string
	if len(doc.Metadata) > 0 {
		data, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(data)
	}

	_, err := s.execWithRetry(ctx,
		`INSERT INTO documents (id, identifier, title, text, metadata_json, created_at, version) VALUES (?, ?, ?, ?, ?, ?, 0)`,
		doc.ID, doc.Identifier, nullableString(doc.Title), doc.Text, nullableString(metadata), formatTime(created),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, doc.Identifier)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// GetDocument loads a document together with every completed stage payload.
// Half-written stage rows are ignored; rows whose payload cannot be decoded
// are discarded.
func (s *Store) GetDocument(ctx context.Context, id string) (*annotation.Document, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.stage, r.payload_json, r.done_at FROM stage_results r WHERE r.document_id = ? AND `+completeClause,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("load stage results: %w", err)
	}
	defer rows.Close()

	type result struct {
		stage   annotation.Stage
		payload string
		doneAt  time.Time
	}
	var results []result
	for rows.Next() {
		var (
			stageName string
			payload   string
			doneRaw   string
		)
		if err := rows.Scan(&stageName, &payload, &doneRaw); err != nil {
			return nil, fmt.Errorf("scan stage result: %w", err)
		}
		stage := annotation.Stage(stageName)
		if !stage.Valid() {
			continue
		}
		doneAt, _ := parseTimeString(doneRaw)
		results = append(results, result{stage: stage, payload: payload, doneAt: doneAt})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage results: %w", err)
	}

	for _, r := range results {
		payload, err := annotation.Decode(r.stage, r.payload)
		if err != nil {
			version, discardErr := s.discardUnreadable(ctx, id, r.stage, r.payload, err)
			if discardErr != nil {
				return nil, fmt.Errorf("document %s: %w", id, discardErr)
			}
			doc.Version = version
			continue
		}
		doc.Apply(r.stage, payload, r.doneAt)
	}
	return doc, nil
}

// discardUnreadable deletes a stage record whose payload cannot be decoded so
// the stage runs again, bumps the document version, and returns it.
func (s *Store) discardUnreadable(ctx context.Context, id string, stage annotation.Stage, payload string, cause error) (int64, error) {
	var version int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM stage_results WHERE document_id = ? AND stage = ? AND payload_json = ?",
			id, string(stage), payload,
		)
		if err != nil {
			return fmt.Errorf("discard %s record: %w", stage, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			if _, err := tx.ExecContext(ctx, "UPDATE documents SET version = version + 1 WHERE id = ?", id); err != nil {
				return fmt.Errorf("bump document version: %w", err)
			}
		}
		return tx.QueryRowContext(ctx, "SELECT version FROM documents WHERE id = ?", id).Scan(&version)
	})
	if err != nil {
		return 0, err
	}
	logging.WarnWithContext(logging.WithContext(ctx, s.logger), "discarded unreadable stage record", "stage_record_discarded",
		logging.String(logging.FieldDocumentID, id),
		logging.String(logging.FieldStage, string(stage)),
		logging.String(logging.FieldImpact, "stage runs again for this document"),
		logging.String(logging.FieldErrorHint, "rerun preprocess to recompute the stage"),
		logging.Error(cause),
	)
	return version, nil
}

// ListDocuments returns up to limit documents with IDs greater than afterID.
func (s *Store) ListDocuments(ctx context.Context, afterID string, limit int) ([]DocumentSummary, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT d.id, d.identifier, d.title, d.version,
       (SELECT group_concat(r.stage, ',') FROM stage_results r WHERE r.document_id = d.id AND `+completeClause+`)
FROM documents d
WHERE d.id > ?
ORDER BY d.id
LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentSummary
	for rows.Next() {
		var (
			summary DocumentSummary
			title   sql.NullString
			stages  sql.NullString
		)
		if err := rows.Scan(&summary.ID, &summary.Identifier, &title, &summary.Version, &stages); err != nil {
			return nil, fmt.Errorf("scan document summary: %w", err)
		}
		summary.Title = title.String
		summary.Stages = sortStages(stages.String)
		out = append(out, summary)
	}
	return out, rows.Err()
}

func sortStages(raw string) []annotation.Stage {
	if raw == "" {
		return nil
	}
	present := make(map[annotation.Stage]struct{})
	for _, name := range strings.Split(raw, ",") {
		present[annotation.Stage(name)] = struct{}{}
	}
	var out []annotation.Stage
	for _, stage := range annotation.Stages() {
		if _, ok := present[stage]; ok {
			out = append(out, stage)
		}
	}
	return out
}

func scanDocument(scanner interface{ Scan(dest ...any) error }) (*annotation.Document, error) {
	var (
		doc        annotation.Document
		title      sql.NullString
		metadata   sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(&doc.ID, &doc.Identifier, &title, &doc.Text, &metadata, &createdRaw, &doc.Version); err != nil {
		return nil, err
	}
	doc.Title = title.String
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		doc.CreatedAt = created
	}
	doc.Done = make(map[annotation.Stage]time.Time)
	return &doc, nil
}
