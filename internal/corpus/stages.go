package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"ieprep/internal/annotation"
)

// EntityRecord is one entry of the corpus-wide entity registry.
type EntityRecord struct {
	Kind          string
	Key           string
	CanonicalForm string
}

// Commit describes one stage result to persist.
type Commit struct {
	DocumentID string
	Stage      annotation.Stage
	// Payload is the encoded stage payload. It must not be empty.
	Payload string
	DoneAt  time.Time
	// ExpectedVersion is the document version the payload was computed from.
	ExpectedVersion int64
	// Entities are upserted into the registry in the same transaction.
	Entities []EntityRecord
}

// CompletedStages returns the completion time of every stage with a complete
// record for the document. Records whose payload cannot be decoded are not
// complete.
func (s *Store) CompletedStages(ctx context.Context, id string) (map[annotation.Stage]time.Time, error) {
	ctx = ensureContext(ctx)
	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM documents WHERE id = ?", id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check document: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.stage, r.payload_json, r.done_at FROM stage_results r WHERE r.document_id = ? AND `+completeClause, id)
	if err != nil {
		return nil, fmt.Errorf("query completed stages: %w", err)
	}
	defer rows.Close()

	done := make(map[annotation.Stage]time.Time)
	for rows.Next() {
		var stageName, payload, doneRaw string
		if err := rows.Scan(&stageName, &payload, &doneRaw); err != nil {
			return nil, fmt.Errorf("scan completed stage: %w", err)
		}
		stage := annotation.Stage(stageName)
		if _, err := annotation.Decode(stage, payload); err != nil {
			continue
		}
		at, _ := parseTimeString(doneRaw)
		done[stage] = at
	}
	return done, rows.Err()
}

// MissingStageIDs returns up to limit document IDs greater than afterID that
// lack a complete record for stage but have complete records for every
// prerequisite, in ascending ID order.
func (s *Store) MissingStageIDs(ctx context.Context, stage annotation.Stage, prereqs []annotation.Stage, afterID string, limit int) ([]string, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	var query strings.Builder
	args := []any{afterID, string(stage)}
	query.WriteString(`SELECT d.id FROM documents d
WHERE d.id > ?
  AND NOT EXISTS (SELECT 1 FROM stage_results r WHERE r.document_id = d.id AND r.stage = ? AND ` + completeClause + `)`)
	if len(prereqs) > 0 {
		query.WriteString(`
  AND (SELECT COUNT(1) FROM stage_results r WHERE r.document_id = d.id AND r.stage IN (` + makePlaceholders(len(prereqs)) + `) AND ` + completeClause + `) = ?`)
		args = append(args, stageArgs(prereqs)...)
		args = append(args, len(prereqs))
	}
	query.WriteString(`
ORDER BY d.id
LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query missing %s: %w", stage, err)
	}
	defer rows.Close()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CommitStage atomically stores a stage payload, its completion marker, and
// any registry entities, then bumps the document version. It returns the new
// version. ErrAlreadyDone is returned when a readable complete record already
// exists and ErrVersionConflict when the document changed since
// ExpectedVersion. An unreadable record is overwritten.
func (s *Store) CommitStage(ctx context.Context, commit Commit) (int64, error) {
	if commit.Payload == "" {
		return 0, errors.New("commit payload is empty")
	}
	if !commit.Stage.Valid() {
		return 0, fmt.Errorf("commit: unknown stage %q", commit.Stage)
	}
	doneAt := commit.DoneAt
	if doneAt.IsZero() {
		doneAt = time.Now()
	}

	var newVersion int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var current int64
		err := tx.QueryRowContext(ctx, "SELECT version FROM documents WHERE id = ?", commit.DocumentID).Scan(&current)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrNotFound, commit.DocumentID)
			}
			return fmt.Errorf("read document version: %w", err)
		}

		var existing string
		err = tx.QueryRowContext(ctx,
			`SELECT r.payload_json FROM stage_results r WHERE r.document_id = ? AND r.stage = ? AND `+completeClause,
			commit.DocumentID, string(commit.Stage),
		).Scan(&existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("check stage record: %w", err)
		default:
			if _, decodeErr := annotation.Decode(commit.Stage, existing); decodeErr == nil {
				return fmt.Errorf("%w: %s %s", ErrAlreadyDone, commit.DocumentID, commit.Stage)
			}
		}
		if current != commit.ExpectedVersion {
			return fmt.Errorf("%w: %s has version %d, expected %d", ErrVersionConflict, commit.DocumentID, current, commit.ExpectedVersion)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO stage_results (document_id, stage, payload_json, done_at) VALUES (?, ?, ?, ?)
ON CONFLICT (document_id, stage) DO UPDATE SET payload_json = excluded.payload_json, done_at = excluded.done_at`,
			commit.DocumentID, string(commit.Stage), commit.Payload, formatTime(doneAt),
		); err != nil {
			return fmt.Errorf("write stage record: %w", err)
		}

		for _, entity := range commit.Entities {
			if entity.Kind == "" || entity.Key == "" {
				continue
			}
			canonical := entity.CanonicalForm
			if canonical == "" {
				canonical = entity.Key
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO entities (kind, key, canonical_form, occurrences) VALUES (?, ?, ?, 1)
ON CONFLICT (kind, key) DO UPDATE SET occurrences = occurrences + 1`,
				entity.Kind, entity.Key, canonical,
			); err != nil {
				return fmt.Errorf("upsert entity %s/%s: %w", entity.Kind, entity.Key, err)
			}
		}

		res, err := tx.ExecContext(ctx,
			"UPDATE documents SET version = version + 1 WHERE id = ? AND version = ?",
			commit.DocumentID, current,
		)
		if err != nil {
			return fmt.Errorf("bump document version: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return fmt.Errorf("%w: %s", ErrVersionConflict, commit.DocumentID)
		}
		newVersion = current + 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newVersion, nil
}

// ResetStages deletes the records of the given stages, for one document when
// documentID is set or for the whole corpus otherwise, and bumps the version
// of every affected document. Registry occurrences counted by removed
// named-entity-recognition records are released. It returns the number of
// records removed.
func (s *Store) ResetStages(ctx context.Context, stages []annotation.Stage, documentID string) (int64, error) {
	if len(stages) == 0 {
		return 0, nil
	}
	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		filter := "stage IN (" + makePlaceholders(len(stages)) + ")"
		args := stageArgs(stages)
		if documentID != "" {
			var exists int
			if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM documents WHERE id = ?", documentID).Scan(&exists); err != nil {
				return fmt.Errorf("check document: %w", err)
			}
			if exists == 0 {
				return fmt.Errorf("%w: %s", ErrNotFound, documentID)
			}
			filter += " AND document_id = ?"
			args = append(args, documentID)
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE documents SET version = version + 1 WHERE id IN (SELECT document_id FROM stage_results WHERE "+filter+")",
			args...,
		); err != nil {
			return fmt.Errorf("bump versions: %w", err)
		}
		if slices.Contains(stages, annotation.StageNER) {
			if err := releaseEntities(ctx, tx, filter, args); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM stage_results WHERE "+filter, args...)
		if err != nil {
			return fmt.Errorf("delete stage records: %w", err)
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// releaseEntities decrements the registry occurrences counted by the
// named-entity-recognition records matched by filter and drops entries no
// record counts any more.
func releaseEntities(ctx context.Context, tx *sql.Tx, filter string, args []any) error {
	rows, err := tx.QueryContext(ctx,
		"SELECT payload_json FROM stage_results WHERE "+filter+" AND stage = ? AND payload_json IS NOT NULL AND done_at IS NOT NULL",
		append(slices.Clone(args), string(annotation.StageNER))...,
	)
	if err != nil {
		return fmt.Errorf("load entity records: %w", err)
	}
	var released []annotation.Entity
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan entity record: %w", err)
		}
		payload, err := annotation.Decode(annotation.StageNER, raw)
		if err != nil {
			continue
		}
		released = append(released, payload.Entities...)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate entity records: %w", err)
	}

	for _, e := range released {
		if e.Kind == "" || e.Key == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE entities SET occurrences = occurrences - 1 WHERE kind = ? AND key = ? AND occurrences > 0",
			e.Kind, e.Key,
		); err != nil {
			return fmt.Errorf("release entity %s/%s: %w", e.Kind, e.Key, err)
		}
	}
	if len(released) > 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM entities WHERE occurrences <= 0"); err != nil {
			return fmt.Errorf("prune entities: %w", err)
		}
	}
	return nil
}
