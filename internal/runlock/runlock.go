// Package runlock keeps two publishers from sharing one state directory.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("another sdpublish run is already using this state directory")

// Lock is an exclusive advisory file lock.
type Lock struct {
	path string
	lock *flock.Flock
}

// Acquire takes the lock at path without blocking.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, path)
	}
	return &Lock{path: path, lock: lock}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Release unlocks. It is safe to call on a nil lock and more than once.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
