// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"os"
	"os/exec"
)

// Reasons reported for a process that could not be spawned.
const (
	StartReasonNotFound         StartFailureReason = "command_not_found"
	StartReasonPermissionDenied StartFailureReason = "permission_denied"
	StartReasonFailed           StartFailureReason = "start_failed"
)

// StartFailureReason classifies why exec.Cmd.Start failed.
type StartFailureReason string

// String returns the reason as written to logs.
func (r StartFailureReason) String() string { return string(r) }

// ExitCode returns the shell-convention exit status for the reason.
func (r StartFailureReason) ExitCode() ExitCode {
	switch r {
	case StartReasonNotFound:
		return ExitCommandNotFound
	case StartReasonPermissionDenied:
		return ExitPermissionDenied
	default:
		return ExitGeneric
	}
}

// ClassifyStartError inspects a spawn error. A PATH lookup miss surfaces as
// *exec.Error wrapping exec.ErrNotFound, while an explicit path that does not
// exist surfaces as *os.PathError wrapping ENOENT; both count as not found.
func ClassifyStartError(err error) StartFailureReason {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return StartReasonNotFound
	case errors.Is(err, os.ErrPermission):
		return StartReasonPermissionDenied
	default:
		return StartReasonFailed
	}
}
