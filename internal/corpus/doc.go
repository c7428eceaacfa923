// Package corpus persists documents and their stage annotations in SQLite.
//
// A corpus is one database file holding the documents table, one
// stage_results row per completed (document, stage) pair, and the entity
// registry filled by named-entity recognition. The schema is embedded and
// versioned; connections run in WAL mode and writes retry on SQLITE_BUSY.
//
// A stage counts as complete only when its row carries both a completion
// time and a non-empty payload, so a half-written row is treated as missing
// and the stage is recomputed. CommitStage writes the payload, the marker,
// and the document version bump in one transaction.
package corpus
