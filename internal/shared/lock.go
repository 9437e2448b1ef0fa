package shared

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileSuffix = ".lock"

// InstanceLock guards against two watchers tracking the same history database.
type InstanceLock struct {
	lock *flock.Flock
	path string
}

// NewInstanceLock creates a lock file next to target.
func NewInstanceLock(target string) (*InstanceLock, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("could not resolve lock target: %w", err)
	}
	path := abs + lockFileSuffix
	return &InstanceLock{lock: flock.New(path), path: path}, nil
}

// TryLock acquires the lock without waiting. Returns [ErrAlreadyRunning] when another process holds it.
func (l *InstanceLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("%w: lock held on %s", ErrAlreadyRunning, l.path)
	}
	return nil
}

// Unlock releases the lock.
func (l *InstanceLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// Path returns the lock file location.
func (l *InstanceLock) Path() string {
	return l.path
}
