// SPDX-License-Identifier: MPL-2.0

package session

import (
	"strings"
	"sync"
	"time"

	"github.com/snipr/snipr/internal/fsutil"
)

const (
	// RunLogFileName is the run log file name inside the data directory.
	RunLogFileName = "runs.log"

	// TimestampLayout is RFC 3339 with millisecond precision.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// RunLog appends one block per run:
//
//	\n[2026-01-02T15:04:05.123Z] $ /bin/sh -c 'echo 2'\n2\n\n
type RunLog struct {
	mu   sync.Mutex
	path string
}

// OpenRunLog returns the log at path, creating an empty file if none exists.
// The log is returned even when the file cannot be created; later appends
// retry and report their own errors.
func OpenRunLog(path string) (*RunLog, error) {
	l := &RunLog{path: path}
	if err := fsutil.EnsureFile(path); err != nil {
		return l, err
	}
	return l, nil
}

// Path returns the backing file.
func (l *RunLog) Path() string { return l.path }

// Append writes the block for a run that started at `at`.
func (l *RunLog) Append(at time.Time, description, transcript string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return fsutil.AppendFile(l.path, []byte(FormatEntry(at, description, transcript)))
}

// FormatEntry renders a run log block. Timestamps are written in UTC.
func FormatEntry(at time.Time, description, transcript string) string {
	var b strings.Builder
	b.Grow(len(description) + len(transcript) + 40)

	b.WriteString("\n[")
	b.WriteString(at.UTC().Format(TimestampLayout))
	b.WriteString("] $ ")
	b.WriteString(description)
	b.WriteByte('\n')
	b.WriteString(transcript)
	b.WriteByte('\n')

	return b.String()
}
