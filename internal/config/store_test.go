// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/snipr/snipr/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTempStore(t *testing.T) (*Store, string) {
	t.Helper()

	dir := t.TempDir()
	return Open(context.Background(), LoadOptions{ConfigDirPath: dir}, discardLogger()), dir
}

func reload(t *testing.T, dir string) RunConfig {
	t.Helper()

	cfg, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	return cfg
}

func TestStore_MutatorsPersistImmediately(t *testing.T) {
	t.Parallel()

	store, dir := openTempStore(t)
	if store.LoadError() != nil {
		t.Fatalf("LoadError() = %v", store.LoadError())
	}

	if err := store.SetInterpreter(InterpreterShell); err != nil {
		t.Fatal(err)
	}
	if got := reload(t, dir).Interpreter; got != InterpreterShell {
		t.Errorf("persisted interpreter = %q, want shell", got)
	}

	if err := store.SetShellPath("/bin/bash"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetSecondaryPath("/opt/python"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetNativeTool("kotlinc"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetEnv("API_KEY", "xyz"); err != nil {
		t.Fatal(err)
	}

	got := reload(t, dir)
	if got.ShellPath != "/bin/bash" || got.SecondaryPath != "/opt/python" || got.NativeTool != "kotlinc" {
		t.Errorf("persisted paths mismatch: %+v", got)
	}
	if got.Env["API_KEY"] != "xyz" {
		t.Errorf("persisted env = %v", got.Env)
	}

	if !store.UnsetEnv("API_KEY") {
		t.Error("UnsetEnv() = false for existing key")
	}
	if store.UnsetEnv("API_KEY") {
		t.Error("UnsetEnv() = true for missing key")
	}
	if _, ok := reload(t, dir).Env["API_KEY"]; ok {
		t.Error("unset key still persisted")
	}
}

func TestStore_ValidationErrorsLeaveStateUntouched(t *testing.T) {
	t.Parallel()

	store, dir := openTempStore(t)

	if err := store.SetInterpreter("ruby"); !errors.Is(err, ErrInvalidInterpreter) {
		t.Errorf("SetInterpreter(ruby) = %v", err)
	}
	if err := store.SetEnv("A=B", "1"); !errors.Is(err, ErrInvalidEnvVarName) {
		t.Errorf("SetEnv(A=B) = %v", err)
	}
	if err := store.SetNativeTool("bin/swift"); !errors.Is(err, ErrInvalidNativeTool) {
		t.Errorf("SetNativeTool(bin/swift) = %v", err)
	}
	if err := store.Set("colour", "red"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Set(colour) = %v", err)
	}

	if store.Current().Interpreter != InterpreterNative {
		t.Errorf("state changed after rejected mutation: %+v", store.Current())
	}
	if _, err := os.Stat(filepath.Join(dir, "config.cue")); !os.IsNotExist(err) {
		t.Errorf("rejected mutations must not write the file, stat err = %v", err)
	}
}

func TestStore_Set(t *testing.T) {
	t.Parallel()

	store, _ := openTempStore(t)

	for key, value := range map[string]string{
		KeyInterpreter:   "Secondary",
		KeySecondaryPath: "/usr/local/bin/python3",
		KeyShellPath:     "/bin/zsh",
		KeyNativeTool:    "swift",
	} {
		if err := store.Set(key, value); err != nil {
			t.Errorf("Set(%q, %q) = %v", key, value, err)
		}
	}

	cur := store.Current()
	if cur.Interpreter != InterpreterSecondary || cur.ShellPath != "/bin/zsh" || cur.SecondaryPath != "/usr/local/bin/python3" {
		t.Errorf("Current() = %+v", cur)
	}
}

func TestStore_PathsAreNotValidated(t *testing.T) {
	t.Parallel()

	store, _ := openTempStore(t)

	if err := store.SetShellPath("   "); err != nil {
		t.Errorf("SetShellPath(whitespace) = %v, want nil", err)
	}
	if err := store.Set(KeySecondaryPath, "/nonexistent/python"); err != nil {
		t.Errorf("Set(secondary_path) = %v, want nil", err)
	}

	cur := store.Current()
	if cur.ShellPath != "   " || cur.SecondaryPath != "/nonexistent/python" {
		t.Errorf("Current() = %+v, want paths stored as given", cur)
	}
}

func TestStore_ImportEnv(t *testing.T) {
	t.Parallel()

	store, dir := openTempStore(t)
	if err := store.SetEnv("KEEP", "1"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetEnv("OVERRIDE", "old"); err != nil {
		t.Fatal(err)
	}

	if err := store.ImportEnv(map[string]string{"OVERRIDE": "new", "ADDED": "2"}); err != nil {
		t.Fatalf("ImportEnv() error: %v", err)
	}
	env := reload(t, dir).Env
	if env["KEEP"] != "1" || env["OVERRIDE"] != "new" || env["ADDED"] != "2" {
		t.Errorf("env after import = %v", env)
	}

	if err := store.ImportEnv(map[string]string{"OK": "1", "": "bad"}); !errors.Is(err, ErrInvalidEnvVarName) {
		t.Errorf("ImportEnv with empty key = %v", err)
	}
	if _, ok := store.Current().Env["OK"]; ok {
		t.Error("partial import must not be applied")
	}
}

func TestStore_CurrentReturnsCopy(t *testing.T) {
	t.Parallel()

	store, _ := openTempStore(t)
	cur := store.Current()
	cur.Env["LEAK"] = "1"
	cur.Interpreter = InterpreterShell

	if _, ok := store.Current().Env["LEAK"]; ok {
		t.Error("Current() leaked its env map")
	}
}

func TestStore_InvalidFileFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `interpreter: 42`)

	store := Open(context.Background(), LoadOptions{ConfigDirPath: dir}, discardLogger())
	if store.LoadError() == nil {
		t.Fatal("expected LoadError() for invalid file")
	}
	if store.Current().Interpreter != InterpreterNative {
		t.Errorf("expected defaults, got %+v", store.Current())
	}
}

func TestStore_SaveAbsorbsWriteFailures(t *testing.T) {
	t.Parallel()

	// A regular file where the parent directory should be makes MkdirAll fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	testutil.MustWriteFile(t, blocker, "")

	store := NewStore(filepath.Join(blocker, "config.cue"), DefaultRunConfig(), discardLogger())
	cfg := DefaultRunConfig()
	cfg.Interpreter = InterpreterShell
	store.Save(cfg)

	if store.Current().Interpreter != InterpreterShell {
		t.Error("in-memory value should be updated even when the write fails")
	}
}
