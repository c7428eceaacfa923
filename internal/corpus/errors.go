package corpus

import "errors"

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a document identifier is already taken.
	ErrDuplicate = errors.New("duplicate document identifier")
	// ErrVersionConflict is returned when a commit was computed from a stale
	// copy of the document.
	ErrVersionConflict = errors.New("document version conflict")
	// ErrAlreadyDone is returned when the stage already has a complete record.
	ErrAlreadyDone = errors.New("stage already complete")
)
