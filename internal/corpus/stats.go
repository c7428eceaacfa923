package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"ieprep/internal/annotation"
)

// Stats summarizes corpus progress.
type Stats struct {
	Documents int
	// Done counts complete records per stage.
	Done map[annotation.Stage]int
	// Partial counts half-written records per stage.
	Partial  map[annotation.Stage]int
	Entities int
}

// Pending returns the number of documents without a complete record for stage.
func (s Stats) Pending(stage annotation.Stage) int {
	return s.Documents - s.Done[stage]
}

// DatabaseHealth captures diagnostic information about the corpus database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	MissingTables    []string
	IntegrityCheck   bool
	TotalDocuments   int
	Error            string
}

// Stats returns document, stage, and entity counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	stats := Stats{
		Done:    make(map[annotation.Stage]int),
		Partial: make(map[annotation.Stage]int),
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM documents").Scan(&stats.Documents); err != nil {
		return stats, fmt.Errorf("count documents: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM entities").Scan(&stats.Entities); err != nil {
		return stats, fmt.Errorf("count entities: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT r.stage,
       SUM(CASE WHEN `+completeClause+` THEN 1 ELSE 0 END),
       SUM(CASE WHEN `+completeClause+` THEN 0 ELSE 1 END)
FROM stage_results r
GROUP BY r.stage`)
	if err != nil {
		return stats, fmt.Errorf("stage stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			stageName     string
			done, partial int
		)
		if err := rows.Scan(&stageName, &done, &partial); err != nil {
			return stats, err
		}
		stage := annotation.Stage(stageName)
		stats.Done[stage] = done
		if partial > 0 {
			stats.Partial[stage] = partial
		}
	}
	return stats, rows.Err()
}

// CheckHealth returns diagnostic information about the corpus database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("corpus database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat corpus database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("corpus database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("corpus database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping corpus database: %w", err)
	}
	health.DatabaseReadable = true

	rows, err := s.db.QueryContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("list tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			health.Error = err.Error()
			return health, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	rows.Close()
	for _, want := range expectedTables {
		if !slices.Contains(tables, want) {
			health.MissingTables = append(health.MissingTables, want)
		}
	}

	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}
	if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM documents").Scan(&health.TotalDocuments); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count documents: %w", err)
	}

	var integrityResult string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

// LookupEntity returns the registry entry for (kind, key) and its occurrence count.
func (s *Store) LookupEntity(ctx context.Context, kind, key string) (EntityRecord, int, error) {
	ctx = ensureContext(ctx)
	record := EntityRecord{Kind: kind, Key: key}
	var occurrences int
	err := s.db.QueryRowContext(ctx,
		"SELECT canonical_form, occurrences FROM entities WHERE kind = ? AND key = ?", kind, key,
	).Scan(&record.CanonicalForm, &occurrences)
	if err != nil {
		return record, 0, fmt.Errorf("lookup entity %s/%s: %w", kind, key, err)
	}
	return record, occurrences, nil
}
