// SPDX-License-Identifier: MPL-2.0

//go:build windows

package engine

import (
	"errors"
	"path/filepath"
)

// LockFileName is the lock file shared by all snipr processes using the same data directory.
const LockFileName = "snipr-run.lock"

// errRunLocked is never returned on Windows; runs are serialized per process only.
var errRunLocked = errors.New("run lock held by another process")

// runLock is a no-op on Windows.
type runLock struct{}

func acquireRunLockAt(string) (*runLock, error) { return &runLock{}, nil }

// Release is a no-op.
func (l *runLock) Release() {}

// LockPath returns the lock file path inside dataDir.
func LockPath(dataDir string) string {
	return filepath.Join(dataDir, LockFileName)
}
