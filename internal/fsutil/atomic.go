// SPDX-License-Identifier: MPL-2.0

package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/snipr/snipr/internal/platform"
)

const (
	// DirPerm is used for every directory created by the stores.
	DirPerm os.FileMode = 0o755
	// FilePerm is used for every file written by the stores.
	FilePerm os.FileMode = 0o644

	// renameAttempts bounds retries of the final rename. Windows refuses to
	// replace a file another process briefly holds open (virus scanners,
	// indexers), so the rename is retried with a short linear backoff.
	renameAttempts = 6
)

// WriteFileAtomic replaces path with data. The bytes are written to a temp
// file in the same directory, synced, and renamed over the destination, so
// readers observe either the old or the new content and never a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath) // no-op after a successful rename
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, FilePerm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	var lastErr error
	for i := range renameAttempts {
		if err := os.Rename(tmpPath, path); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if runtime.GOOS != platform.Windows {
			break
		}
		time.Sleep(time.Duration(i+1) * 10 * time.Millisecond)
	}

	return fmt.Errorf("rename temp file: %w", lastErr)
}

// AppendFile appends data to path, creating the file (and its directory) when
// it does not exist yet.
func AppendFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), DirPerm); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, FilePerm)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("append to %s: %w", path, err)
	}
	return f.Close()
}

// EnsureFile creates an empty file at path if nothing exists there yet.
func EnsureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return AppendFile(path, nil)
}

// ReadFileIfExists returns the content of path. A missing file is not an
// error: it yields (nil, false, nil).
func ReadFileIfExists(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	return data, true, nil
}
