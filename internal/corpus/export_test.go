package corpus

import (
	"context"

	"ieprep/internal/annotation"
)

// WriteRawStageRow inserts a stage row bypassing CommitStage, to simulate
// half-written records.
func (s *Store) WriteRawStageRow(ctx context.Context, id string, stage annotation.Stage, payload, doneAt any) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO stage_results (document_id, stage, payload_json, done_at) VALUES (?, ?, ?, ?)",
		id, string(stage), payload, doneAt)
	return err
}
