// SPDX-License-Identifier: MPL-2.0

package engine

// Snapshot is an immutable view of the engine state. Snapshots are shared
// between observers and must not be modified.
type Snapshot struct {
	Phase Phase
	// RunID identifies the run the transcript belongs to; empty before the
	// first run and after a restore.
	RunID string
	// IsRunning is true from Run until the exit is observed or Cancel returns.
	IsRunning bool
	// Progress is a coarse indicator in [0, 1]; it is not tied to real work.
	Progress float64
	// Transcript is the merged output of the current run.
	Transcript string
	// ActiveCommand is the shell-quoted command line of the current run.
	ActiveCommand string
	// CancellationRequested is set by Cancel and cleared by the next Run.
	CancellationRequested bool
	// ExitCode is the exit status of the last finished run; valid only when
	// HasExitCode is true. Failed spawns report 127, 126 or 1.
	ExitCode    int
	HasExitCode bool
}
