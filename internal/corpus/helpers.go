package corpus

import (
	"errors"
	"strings"
	"time"

	"ieprep/internal/annotation"
)

const documentColumns = "id, identifier, title, text, metadata_json, created_at, version"

// completeClause matches stage_results rows that count as done. Rows that
// carry only one of marker and payload, or a payload that is not JSON, are
// ignored.
const completeClause = "r.done_at IS NOT NULL AND r.payload_json IS NOT NULL AND r.payload_json <> '' AND json_valid(r.payload_json)"

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}

func stageArgs(stages []annotation.Stage) []any {
	args := make([]any, len(stages))
	for i, s := range stages {
		args[i] = string(s)
	}
	return args
}
