// Package runlock guarantees a single preprocessing run per corpus.
//
// The lock is an advisory flock on "<corpus>.lock" next to the database, so
// it is released by the kernel if the process dies.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the corpus lock.
var ErrLocked = errors.New("corpus is locked by another run")

// Lock is a held corpus lock.
type Lock struct {
	path string
	lock *flock.Flock
}

// PathFor returns the lock file path for a corpus database.
func PathFor(corpusPath string) string {
	return corpusPath + ".lock"
}

// Acquire takes the lock for corpusPath without blocking.
func Acquire(corpusPath string) (*Lock, error) {
	path := PathFor(corpusPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return &Lock{path: path, lock: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
