// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

const (
	// InterpreterNative runs snippets with the env-resolved native toolchain.
	InterpreterNative Interpreter = "native"
	// InterpreterSecondary runs snippets with the secondary interpreter (python3 by default).
	InterpreterSecondary Interpreter = "secondary"
	// InterpreterShell runs snippets with the configured shell.
	InterpreterShell Interpreter = "shell"

	// DefaultSecondaryPath is used when SecondaryPath is empty.
	DefaultSecondaryPath ExecutablePath = "/usr/bin/python3"
	// DefaultShellPath is used when ShellPath is empty.
	DefaultShellPath ExecutablePath = "/bin/sh"
	// DefaultNativeTool is the toolchain name resolved through /usr/bin/env.
	DefaultNativeTool = "swift"
)

var (
	// ErrInvalidInterpreter is returned when an Interpreter value is not recognized.
	ErrInvalidInterpreter = errors.New("invalid interpreter")
	// ErrInvalidEnvVarName is returned when an override key cannot be an environment variable name.
	ErrInvalidEnvVarName = errors.New("invalid environment variable name")
	// ErrInvalidNativeTool is returned when the native tool name is empty or contains separators.
	ErrInvalidNativeTool = errors.New("invalid native tool")
	// ErrInvalidRunConfig is the sentinel error wrapped by InvalidRunConfigError.
	ErrInvalidRunConfig = errors.New("invalid run config")
)

type (
	// Interpreter selects the executable family used for a run.
	// The runtime package defines its own mirror of this enum; the engine
	// converts at the boundary.
	Interpreter string

	// InvalidInterpreterError is returned when an Interpreter value is not recognized.
	// It wraps ErrInvalidInterpreter for errors.Is() compatibility.
	InvalidInterpreterError struct {
		Value Interpreter
	}

	// ExecutablePath is a filesystem path to an interpreter binary.
	// The zero value means "use the default for this interpreter". Paths are
	// not validated; a bad path surfaces when a run spawns.
	ExecutablePath string

	// EnvVarName is the key of an environment override.
	EnvVarName string

	// InvalidEnvVarNameError is returned when an override key is empty or
	// contains '=' or NUL.
	InvalidEnvVarNameError struct {
		Value EnvVarName
	}

	// InvalidNativeToolError is returned when NativeTool is not a bare command name.
	InvalidNativeToolError struct {
		Value string
	}

	// InvalidRunConfigError collects field-level validation errors of a RunConfig.
	// It wraps ErrInvalidRunConfig for errors.Is() compatibility.
	InvalidRunConfigError struct {
		FieldErrors []error
	}

	// RunConfig is the persisted execution configuration.
	RunConfig struct {
		// Interpreter selects native, secondary or shell execution.
		Interpreter Interpreter `json:"interpreter" mapstructure:"interpreter"`
		// SecondaryPath overrides the secondary interpreter executable.
		SecondaryPath ExecutablePath `json:"secondary_path" mapstructure:"secondary_path"`
		// ShellPath overrides the shell executable.
		ShellPath ExecutablePath `json:"shell_path" mapstructure:"shell_path"`
		// NativeTool is the toolchain name passed to /usr/bin/env.
		NativeTool string `json:"native_tool" mapstructure:"native_tool"`
		// Env overrides the inherited environment; keys are case-sensitive,
		// so they are decoded from CUE directly instead of through viper.
		Env map[string]string `json:"env" mapstructure:"-"`
	}
)

// DefaultRunConfig returns the configuration used when no file exists.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Interpreter:   InterpreterNative,
		SecondaryPath: DefaultSecondaryPath,
		ShellPath:     DefaultShellPath,
		NativeTool:    DefaultNativeTool,
		Env:           map[string]string{},
	}
}

// Clone returns a deep copy; the Env map is never shared.
func (c RunConfig) Clone() RunConfig {
	out := c
	out.Env = make(map[string]string, len(c.Env))
	maps.Copy(out.Env, c.Env)
	return out
}

// EffectiveSecondaryPath returns SecondaryPath, or the default when empty.
func (c RunConfig) EffectiveSecondaryPath() ExecutablePath {
	if c.SecondaryPath == "" {
		return DefaultSecondaryPath
	}
	return c.SecondaryPath
}

// EffectiveShellPath returns ShellPath, or the default when empty.
func (c RunConfig) EffectiveShellPath() ExecutablePath {
	if c.ShellPath == "" {
		return DefaultShellPath
	}
	return c.ShellPath
}

// EffectiveNativeTool returns NativeTool, or the default when empty.
func (c RunConfig) EffectiveNativeTool() string {
	if c.NativeTool == "" {
		return DefaultNativeTool
	}
	return c.NativeTool
}

// IsValid returns whether the RunConfig has valid fields.
func (c RunConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Interpreter.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.NativeTool != "" {
		if err := validateNativeTool(c.NativeTool); err != nil {
			errs = append(errs, err)
		}
	}
	for key := range c.Env {
		if valid, fieldErrs := EnvVarName(key).IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidRunConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Validate returns the first validation error, or nil.
func (c RunConfig) Validate() error {
	if valid, errs := c.IsValid(); !valid {
		return errs[0]
	}
	return nil
}

// Error implements the error interface for InvalidRunConfigError.
func (e *InvalidRunConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Sprintf("invalid run config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidRunConfig for errors.Is() compatibility.
func (e *InvalidRunConfigError) Unwrap() error { return ErrInvalidRunConfig }

// String returns the string representation of the Interpreter.
func (i Interpreter) String() string { return string(i) }

// IsValid returns whether the Interpreter is one of the defined values,
// and a list of validation errors if it is not.
func (i Interpreter) IsValid() (bool, []error) {
	switch i {
	case InterpreterNative, InterpreterSecondary, InterpreterShell:
		return true, nil
	default:
		return false, []error{&InvalidInterpreterError{Value: i}}
	}
}

// ParseInterpreter converts user input (case-insensitive) into an Interpreter.
func ParseInterpreter(s string) (Interpreter, error) {
	i := Interpreter(strings.ToLower(strings.TrimSpace(s)))
	if valid, errs := i.IsValid(); !valid {
		return "", errs[0]
	}
	return i, nil
}

// Error implements the error interface for InvalidInterpreterError.
func (e *InvalidInterpreterError) Error() string {
	return fmt.Sprintf("invalid interpreter %q (valid: native, secondary, shell)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidInterpreterError) Unwrap() error { return ErrInvalidInterpreter }

// String returns the string representation of the ExecutablePath.
func (p ExecutablePath) String() string { return string(p) }

// String returns the string representation of the EnvVarName.
func (n EnvVarName) String() string { return string(n) }

// IsValid returns whether the name can be passed to a child environment.
func (n EnvVarName) IsValid() (bool, []error) {
	if n == "" || strings.ContainsAny(string(n), "=\x00") {
		return false, []error{&InvalidEnvVarNameError{Value: n}}
	}
	return true, nil
}

// Error implements the error interface for InvalidEnvVarNameError.
func (e *InvalidEnvVarNameError) Error() string {
	return fmt.Sprintf("invalid environment variable name %q: must be non-empty without '=' or NUL", e.Value)
}

// Unwrap returns ErrInvalidEnvVarName for errors.Is() compatibility.
func (e *InvalidEnvVarNameError) Unwrap() error { return ErrInvalidEnvVarName }

// Error implements the error interface for InvalidNativeToolError.
func (e *InvalidNativeToolError) Error() string {
	return fmt.Sprintf("invalid native tool %q: must be a bare command name", e.Value)
}

// Unwrap returns ErrInvalidNativeTool for errors.Is() compatibility.
func (e *InvalidNativeToolError) Unwrap() error { return ErrInvalidNativeTool }

func validateNativeTool(tool string) error {
	if strings.TrimSpace(tool) == "" || strings.ContainsAny(tool, "/\\ \t\n\x00") {
		return &InvalidNativeToolError{Value: tool}
	}
	return nil
}
