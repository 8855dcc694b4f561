// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// LockFileName is the lock file shared by all snipr processes using the same
// data directory. An orphaned zero-byte file is harmless: the kernel drops the flock when
// the descriptor is closed, including on crash.
const LockFileName = "snipr-run.lock"

// errRunLocked is returned by acquireRunLockAt when another process holds the lock.
var errRunLocked = errors.New("run lock held by another process")

// runLock holds a non-blocking exclusive flock so that two snipr processes
// never run snippets at the same time.
type runLock struct {
	file *os.File
}

// acquireRunLockAt opens (or creates) the lock file at path and takes the
// flock without waiting. It returns errRunLocked when the lock is busy.
func acquireRunLockAt(path string) (*runLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, errRunLocked
		}
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}

	return &runLock{file: f}, nil
}

// Release unlocks the flock and closes the file descriptor. It is safe to call
// multiple times and on a nil lock.
func (l *runLock) Release() {
	if l == nil || l.file == nil {
		return
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		slog.Debug("flock unlock failed", "error", err)
	}
	if err := l.file.Close(); err != nil {
		slog.Debug("lock file close failed", "error", err)
	}
	l.file = nil
}

// LockPath returns the lock file guarding the history and session files in dataDir.
func LockPath(dataDir string) string {
	return filepath.Join(dataDir, LockFileName)
}
