// SPDX-License-Identifier: MPL-2.0

package history

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// PreviewLength is the number of characters of the final transcript kept in
// a record.
const PreviewLength = 300

// Record is an immutable entry for a run that was spawned and reached a
// terminal state.
type Record struct {
	ID            uuid.UUID `json:"id"`
	Command       string    `json:"command"`
	StartedAt     time.Time `json:"started_at"`
	Interpreter   string    `json:"interpreter"`
	OutputPreview string    `json:"output_preview"`
	// ExitCode is nil when the process was killed by a signal.
	ExitCode  *int `json:"exit_code,omitempty"`
	Cancelled bool `json:"cancelled,omitempty"`
}

// NewRecord builds a record with a fresh random ID and the preview of transcript.
func NewRecord(command, interpreter string, startedAt time.Time, transcript string) Record {
	return Record{
		ID:            uuid.New(),
		Command:       command,
		StartedAt:     startedAt,
		Interpreter:   interpreter,
		OutputPreview: Preview(transcript),
	}
}

// WithExitCode returns a copy of r carrying code.
func (r Record) WithExitCode(code int) Record {
	r.ExitCode = &code
	return r
}

// Preview returns the first PreviewLength characters (runes) of transcript.
func Preview(transcript string) string {
	if utf8.RuneCountInString(transcript) <= PreviewLength {
		return transcript
	}
	n := 0
	for i := range transcript {
		if n == PreviewLength {
			return transcript[:i]
		}
		n++
	}
	return transcript
}
