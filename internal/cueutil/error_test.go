// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

func TestFormatError(t *testing.T) {
	t.Parallel()

	t.Run("nil error returns nil", func(t *testing.T) {
		t.Parallel()

		if err := FormatError(nil, "config.cue"); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("non-CUE error is wrapped with the file path", func(t *testing.T) {
		t.Parallel()

		orig := errors.New("disk on fire")
		err := FormatError(orig, "config.cue")
		if !errors.Is(err, orig) {
			t.Errorf("expected wrapped original error, got %v", err)
		}
		if !strings.HasPrefix(err.Error(), "config.cue: ") {
			t.Errorf("expected file path prefix, got %q", err)
		}
	})

	t.Run("CUE error carries the field path", func(t *testing.T) {
		t.Parallel()

		ctx := cuecontext.New()
		schema := ctx.CompileString(`#C: { shell_path?: string }`).LookupPath(cue.ParsePath("#C"))
		user := ctx.CompileString(`shell_path: 42`)
		verr := schema.Unify(user).Validate(cue.Concrete(false))
		if verr == nil {
			t.Fatal("expected validation error")
		}

		err := FormatError(verr, "config.cue")
		if !strings.Contains(err.Error(), "shell_path") {
			t.Errorf("expected field path in %q", err)
		}
	})
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path []string
		want string
	}{
		{"empty", nil, ""},
		{"single", []string{"interpreter"}, "interpreter"},
		{"nested", []string{"env", "API_KEY"}, "env.API_KEY"},
		{"index", []string{"items", "0", "name"}, "items[0].name"},
		{"leading number is not an index", []string{"0", "x"}, "0.x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := FormatPath(tt.path); got != tt.want {
				t.Errorf("FormatPath(%v) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestCheckFileSize(t *testing.T) {
	t.Parallel()

	if err := CheckFileSize(make([]byte, 10), 10, "a.cue"); err != nil {
		t.Errorf("size at limit should pass, got %v", err)
	}
	err := CheckFileSize(make([]byte, 11), 10, "a.cue")
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("expected size error, got %v", err)
	}
}
