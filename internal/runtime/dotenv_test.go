// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/snipr/snipr/internal/testutil"
)

func TestParseEnvFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		expected map[string]string
	}{
		{"simple key value", "FOO=bar", map[string]string{"FOO": "bar"}},
		{"multiple lines", "FOO=bar\nBAZ=qux", map[string]string{"FOO": "bar", "BAZ": "qux"}},
		{"empty value", "EMPTY=", map[string]string{"EMPTY": ""}},
		{"value with equals", "URL=https://example.com?a=b", map[string]string{"URL": "https://example.com?a=b"}},
		{"comment lines and blanks", "# comment\n\nFOO=bar\n", map[string]string{"FOO": "bar"}},
		{"inline comment", "FOO=bar # note", map[string]string{"FOO": "bar"}},
		{"hash without space is kept", "FOO=bar#baz", map[string]string{"FOO": "bar#baz"}},
		{"double quoted escapes", `MSG="a\nb\t\"c\" \$HOME"`, map[string]string{"MSG": "a\nb\t\"c\" $HOME"}},
		{"unknown escape kept", `P="C:\dir"`, map[string]string{"P": `C:\dir`}},
		{"single quoted is literal", `MSG='a\nb # x'`, map[string]string{"MSG": `a\nb # x`}},
		{"export prefix", "export API_KEY=xyz", map[string]string{"API_KEY": "xyz"}},
		{"windows line endings", "A=1\r\nB=2\r\n", map[string]string{"A": "1", "B": "2"}},
		{"later lines win", "FOO=first\nFOO=second", map[string]string{"FOO": "second"}},
		{"whitespace around key and value", "  KEY  =  value  ", map[string]string{"KEY": "value"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := make(map[string]string)
			if err := ParseEnvFile(env, []byte(tt.content), "test.env"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(env) != len(tt.expected) {
				t.Errorf("got %d entries %v, want %v", len(env), env, tt.expected)
			}
			for k, v := range tt.expected {
				if env[k] != v {
					t.Errorf("%s = %q, want %q", k, env[k], v)
				}
			}
		})
	}
}

func TestParseEnvFile_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		line    int
		reason  string
	}{
		{"missing equals", "FOO=1\nNOEQUALS", 2, "invalid format (missing '=')"},
		{"empty key", "=value", 1, "empty variable name"},
		{"unterminated double quote", `BAR="open`, 1, "unterminated double quote"},
		{"unterminated single quote", `BAR='`, 1, "unterminated single quote"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := map[string]string{"EXISTING": "kept"}
			err := ParseEnvFile(env, []byte(tt.content), "test.env")
			if !errors.Is(err, ErrInvalidEnvFile) {
				t.Fatalf("expected ErrInvalidEnvFile, got %v", err)
			}
			var se *EnvFileSyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected *EnvFileSyntaxError, got %T", err)
			}
			if se.Line != tt.line || se.Reason != tt.reason || se.File != "test.env" {
				t.Errorf("got %+v, want line %d reason %q", se, tt.line, tt.reason)
			}
			if len(env) != 1 || env["EXISTING"] != "kept" {
				t.Errorf("a failed parse must not merge anything, env = %v", env)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "conf", "app.env"), "API_KEY=xyz")

	t.Run("relative to cwd with forward slashes", func(t *testing.T) {
		t.Parallel()

		env := map[string]string{}
		if err := LoadEnvFile(env, "conf/app.env", dir); err != nil {
			t.Fatalf("LoadEnvFile() error: %v", err)
		}
		if env["API_KEY"] != "xyz" {
			t.Errorf("API_KEY = %q", env["API_KEY"])
		}
	})

	t.Run("absolute path ignores cwd", func(t *testing.T) {
		t.Parallel()

		env := map[string]string{}
		if err := LoadEnvFile(env, filepath.Join(dir, "conf", "app.env"), "/nonexistent"); err != nil {
			t.Fatalf("LoadEnvFile() error: %v", err)
		}
		if env["API_KEY"] != "xyz" {
			t.Errorf("API_KEY = %q", env["API_KEY"])
		}
	})

	t.Run("optional missing file", func(t *testing.T) {
		t.Parallel()

		if err := LoadEnvFile(map[string]string{}, "missing.env?", dir); err != nil {
			t.Errorf("expected nil for optional missing file, got %v", err)
		}
	})

	t.Run("required missing file", func(t *testing.T) {
		t.Parallel()

		if err := LoadEnvFile(map[string]string{}, "missing.env", dir); err == nil {
			t.Error("expected error for missing required file")
		}
	})
}
