//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

package queue

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// DirLock is an exclusive advisory lock on an event directory.
// The kernel drops it if the process dies.
type DirLock struct {
	once sync.Once
	f    *os.File
}

// Lock blocks until it holds the exclusive lock on <dir>/lockfile.
// There is no timeout.
func Lock(dir string) (*DirLock, error) {
	path := filepath.Join(dir, LockName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrLock, path, err)
	}
	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: flock %s: %w", ErrLock, path, err)
	}
	return &DirLock{f: f}, nil
}

// Release unlocks and closes the lock file. Safe to call more than once.
func (l *DirLock) Release() error {
	if l == nil {
		return nil
	}
	var err error
	l.once.Do(func() {
		_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
		err = l.f.Close()
	})
	return err
}
