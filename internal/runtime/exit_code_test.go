// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	goruntime "runtime"
	"syscall"
	"testing"
)

func TestExitCodeIsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		value     ExitCode
		wantValid bool
	}{
		{name: "zero is valid", value: 0, wantValid: true},
		{name: "one is valid", value: 1, wantValid: true},
		{name: "127 is valid", value: 127, wantValid: true},
		{name: "255 is valid", value: 255, wantValid: true},
		{name: "negative is invalid", value: -1, wantValid: false},
		{name: "256 is invalid", value: 256, wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			isValid, errs := tt.value.IsValid()
			if isValid != tt.wantValid {
				t.Errorf("ExitCode(%d).IsValid() = %v, want %v", tt.value, isValid, tt.wantValid)
			}
			if !tt.wantValid && (len(errs) == 0 || !errors.Is(errs[0], ErrInvalidExitCode)) {
				t.Errorf("expected ErrInvalidExitCode, got %v", errs)
			}
		})
	}
}

func TestExitCodeFromWait(t *testing.T) {
	t.Parallel()

	if code, ok := ExitCodeFromWait(nil); code != 0 || !ok {
		t.Errorf("ExitCodeFromWait(nil) = %d, %v", code, ok)
	}
	if code, ok := ExitCodeFromWait(errors.New("copy failed")); code != ExitGeneric || ok {
		t.Errorf("non-exit error = %d, %v", code, ok)
	}

	if goruntime.GOOS == "windows" {
		return
	}

	err := exec.Command("/bin/sh", "-c", "exit 3").Run()
	if code, ok := ExitCodeFromWait(err); code != 3 || !ok {
		t.Errorf("exit 3 = %d, %v", code, ok)
	}
}

func TestClassifyStartError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want StartFailureReason
		code ExitCode
	}{
		{"lookup miss", &exec.Error{Name: "nope", Err: exec.ErrNotFound}, StartReasonNotFound, 127},
		{"missing absolute path", &os.PathError{Op: "fork/exec", Path: "/nope", Err: syscall.ENOENT}, StartReasonNotFound, 127},
		{"permission", &os.PathError{Op: "fork/exec", Path: "/etc", Err: os.ErrPermission}, StartReasonPermissionDenied, 126},
		{"wrapped permission", fmt.Errorf("spawn: %w", os.ErrPermission), StartReasonPermissionDenied, 126},
		{"other", errors.New("too many open files"), StartReasonFailed, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ClassifyStartError(tt.err)
			if got != tt.want {
				t.Errorf("ClassifyStartError() = %q, want %q", got, tt.want)
			}
			if got.ExitCode() != tt.code {
				t.Errorf("ExitCode() = %d, want %d", got.ExitCode(), tt.code)
			}
		})
	}

	if ClassifyStartError(nil) != "" {
		t.Error("ClassifyStartError(nil) should be empty")
	}
}

func TestClassifyStartError_RealSpawn(t *testing.T) {
	t.Parallel()

	if goruntime.GOOS == "windows" {
		t.Skip("POSIX paths")
	}

	err := exec.Command("/definitely/not/here/python").Start()
	if got := ClassifyStartError(err); got != StartReasonNotFound {
		t.Errorf("missing executable classified as %q (%v)", got, err)
	}

	err = exec.Command(t.TempDir()).Start()
	if got := ClassifyStartError(err); got != StartReasonPermissionDenied {
		t.Errorf("directory classified as %q (%v)", got, err)
	}
}

func TestExitCodeIsSuccess(t *testing.T) {
	t.Parallel()

	for code, want := range map[ExitCode]bool{0: true, 1: false, ExitCommandNotFound: false, 255: false} {
		if got := code.IsSuccess(); got != want {
			t.Errorf("ExitCode(%d).IsSuccess() = %v, want %v", code, got, want)
		}
	}
}
