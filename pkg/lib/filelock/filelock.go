// Package filelock provides an advisory exclusive lock over a named lock
// file, for coordinating cooperating processes on one host. The lock file's
// content is irrelevant and is never truncated.
package filelock

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

const lockFilePerm = 0644

// FileLock is a blocking, flock(2)-based exclusive lock. A process-local
// mutex serializes goroutines sharing the same FileLock, since flock only
// excludes across file descriptions. Lock and Unlock must be paired; there
// is no acquisition timeout.
type FileLock struct {
	path string
	mu   sync.Mutex
	f    *os.File
}

func New(path string) *FileLock {
	return &FileLock{path: path}
}

// Lock blocks until the exclusive lock is held.
func (l *FileLock) Lock() error {
	l.mu.Lock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, lockFilePerm)
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("opening lock file %s: %w", l.path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()
		l.mu.Unlock()
		return fmt.Errorf("acquiring lock on %s: %w", l.path, err)
	}

	l.f = f
	return nil
}

// Unlock releases the lock taken by Lock.
func (l *FileLock) Unlock() error {
	f := l.f
	l.f = nil
	defer l.mu.Unlock()

	if f == nil {
		return fmt.Errorf("lock on %s is not held", l.path)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		_ = f.Close()
		return fmt.Errorf("releasing lock on %s: %w", l.path, err)
	}
	return f.Close()
}

// WithLock runs fn while holding the exclusive lock, releasing it on all
// exit paths.
func (l *FileLock) WithLock(fn func() error) error {
	if err := l.Lock(); err != nil {
		return err
	}
	defer l.Unlock() //nolint:errcheck // release is best effort once fn ran
	return fn()
}
