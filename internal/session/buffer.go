// SPDX-License-Identifier: MPL-2.0

package session

import (
	"sync"

	"github.com/snipr/snipr/internal/fsutil"
)

// BufferFileName is the session file name inside the data directory.
const BufferFileName = "last_session.txt"

// Buffer is the durable mirror of the transcript. It is overwritten at run
// start and completion and appended per chunk in between.
type Buffer struct {
	mu   sync.Mutex
	path string
}

// NewBuffer returns a buffer backed by path. The file is created lazily.
func NewBuffer(path string) *Buffer {
	return &Buffer{path: path}
}

// Path returns the backing file.
func (b *Buffer) Path() string { return b.path }

// Restore returns the persisted transcript. A missing file restores nothing.
func (b *Buffer) Restore() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, _, err := fsutil.ReadFileIfExists(b.path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// PersistSnapshot replaces the file content with text atomically.
func (b *Buffer) PersistSnapshot(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return fsutil.WriteFileAtomic(b.path, []byte(text))
}

// AppendChunk appends one raw output chunk.
func (b *Buffer) AppendChunk(text string) error {
	if text == "" {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return fsutil.AppendFile(b.path, []byte(text))
}
