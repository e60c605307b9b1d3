package runlock

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestAcquireIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "sdpublish.lock")

	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if first.Path() != path {
		t.Fatalf("unexpected path %q", first.Path())
	}

	if _, err := Acquire(path); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked while held, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}

	second, err := Acquire(path)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	defer second.Release()
}

func TestReleaseNilLock(t *testing.T) {
	var lock *Lock
	if err := lock.Release(); err != nil {
		t.Fatalf("release nil: %v", err)
	}
}
