// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
)

// Conventional POSIX shell exit statuses used when a run never produced one.
const (
	ExitGeneric          ExitCode = 1
	ExitPermissionDenied ExitCode = 126
	ExitCommandNotFound  ExitCode = 127
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode represents a process exit status code.
	// Exit codes are in the range 0-255 on POSIX systems.
	// The zero value (0) means success.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode is outside the
	// valid range (0-255).
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode so callers can use errors.Is for programmatic detection.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// IsValid returns whether the ExitCode is in the valid range (0-255),
// and a list of validation errors if it is not.
func (c ExitCode) IsValid() (bool, []error) {
	if c < 0 || c > 255 {
		return false, []error{&InvalidExitCodeError{Value: c}}
	}
	return true, nil
}

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }

// ExitCodeFromWait maps the error returned by exec.Cmd.Wait to an exit code.
// A nil error is success. A process killed by a signal reports -1 through
// os.ProcessState; ok is false in that case and for errors that are not
// exit statuses at all (I/O copy failures).
func ExitCodeFromWait(err error) (code ExitCode, ok bool) {
	if err == nil {
		return 0, true
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return ExitGeneric, false
	}

	code = ExitCode(exitErr.ExitCode())
	if valid, _ := code.IsValid(); !valid {
		return ExitGeneric, false
	}
	return code, true
}
