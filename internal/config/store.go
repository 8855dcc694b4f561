// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/snipr/snipr/internal/fsutil"
)

// Keys accepted by Store.Set.
const (
	KeyInterpreter   = "interpreter"
	KeySecondaryPath = "secondary_path"
	KeyShellPath     = "shell_path"
	KeyNativeTool    = "native_tool"
)

// ErrUnknownKey is returned by Store.Set for keys other than the ones above.
var ErrUnknownKey = errors.New("unknown config key")

// Store holds the current RunConfig and persists every mutation immediately.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	path    string
	cfg     RunConfig
	loadErr error
	logger  *slog.Logger
}

// Open loads the configuration described by opts. Open never fails: when the
// file is unreadable or invalid the defaults are used and the error is kept
// for LoadError.
func Open(ctx context.Context, opts LoadOptions, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, path, err := Load(ctx, opts)
	if err != nil {
		logger.Warn("using default configuration", "path", path, "error", err)
	}

	return &Store{path: path, cfg: cfg, loadErr: err, logger: logger}
}

// NewStore creates a store bound to path holding cfg, without reading the file.
func NewStore(path string, cfg RunConfig, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, cfg: cfg.Clone(), logger: logger}
}

// Current returns a copy of the configuration.
func (s *Store) Current() RunConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Path returns the file the store persists to.
func (s *Store) Path() string { return s.path }

// LoadError returns the error encountered when the store was opened, if any.
func (s *Store) LoadError() error { return s.loadErr }

// Save replaces the configuration and writes it to disk atomically.
// Write failures are logged and absorbed; the in-memory value is kept.
func (s *Store) Save(cfg RunConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = cfg.Clone()
	s.persistLocked()
}

// Update applies fn to a copy of the configuration and saves the result if it
// validates. Validation errors are returned; persistence errors are not.
func (s *Store) Update(fn func(*RunConfig)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg.Clone()
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}

	s.cfg = next
	s.persistLocked()
	return nil
}

// SetInterpreter selects the interpreter used by subsequent runs.
func (s *Store) SetInterpreter(i Interpreter) error {
	if valid, errs := i.IsValid(); !valid {
		return errs[0]
	}
	return s.Update(func(c *RunConfig) { c.Interpreter = i })
}

// SetSecondaryPath sets the secondary interpreter executable.
func (s *Store) SetSecondaryPath(p ExecutablePath) error {
	return s.Update(func(c *RunConfig) { c.SecondaryPath = p })
}

// SetShellPath sets the shell executable.
func (s *Store) SetShellPath(p ExecutablePath) error {
	return s.Update(func(c *RunConfig) { c.ShellPath = p })
}

// SetNativeTool sets the toolchain name resolved through /usr/bin/env.
func (s *Store) SetNativeTool(tool string) error {
	if err := validateNativeTool(tool); err != nil {
		return err
	}
	return s.Update(func(c *RunConfig) { c.NativeTool = tool })
}

// SetEnv sets one environment override.
func (s *Store) SetEnv(key, value string) error {
	if valid, errs := EnvVarName(key).IsValid(); !valid {
		return errs[0]
	}
	return s.Update(func(c *RunConfig) { c.Env[key] = value })
}

// UnsetEnv removes an environment override and reports whether it existed.
func (s *Store) UnsetEnv(key string) bool {
	s.mu.RLock()
	_, ok := s.cfg.Env[key]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	// Deleting cannot invalidate the config.
	_ = s.Update(func(c *RunConfig) { delete(c.Env, key) })
	return true
}

// ImportEnv merges vars into the environment overrides; imported values win
// over existing ones. Nothing is written if any key is invalid.
func (s *Store) ImportEnv(vars map[string]string) error {
	for key := range vars {
		if valid, errs := EnvVarName(key).IsValid(); !valid {
			return errs[0]
		}
	}
	return s.Update(func(c *RunConfig) { maps.Copy(c.Env, vars) })
}

// Set assigns a scalar field by its file key, as used by `config set`.
func (s *Store) Set(key, value string) error {
	switch key {
	case KeyInterpreter:
		i, err := ParseInterpreter(value)
		if err != nil {
			return err
		}
		return s.SetInterpreter(i)
	case KeySecondaryPath:
		return s.SetSecondaryPath(ExecutablePath(value))
	case KeyShellPath:
		return s.SetShellPath(ExecutablePath(value))
	case KeyNativeTool:
		return s.SetNativeTool(value)
	default:
		return fmt.Errorf("%w %q (valid: %s, %s, %s, %s)", ErrUnknownKey, key,
			KeyInterpreter, KeySecondaryPath, KeyShellPath, KeyNativeTool)
	}
}

func (s *Store) persistLocked() {
	if s.path == "" {
		s.logger.Warn("config not saved: no file path")
		return
	}
	if err := fsutil.WriteFileAtomic(s.path, []byte(GenerateCUE(s.cfg))); err != nil {
		s.logger.Warn("failed to save configuration", "path", s.path, "error", err)
		return
	}
	s.logger.Debug("configuration saved", "path", s.path)
}
