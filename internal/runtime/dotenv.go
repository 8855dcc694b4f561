// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidEnvFile is the sentinel error wrapped by EnvFileSyntaxError.
var ErrInvalidEnvFile = errors.New("invalid env file")

// EnvFileSyntaxError reports the first malformed line of a dotenv file.
type EnvFileSyntaxError struct {
	File   string
	Line   int
	Reason string
}

// Error implements the error interface.
func (e *EnvFileSyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
}

// Unwrap returns ErrInvalidEnvFile for errors.Is() compatibility.
func (e *EnvFileSyntaxError) Unwrap() error { return ErrInvalidEnvFile }

// LoadEnvFile reads a dotenv file and merges its entries into env. Relative
// paths are resolved against cwd (os.Getwd() when cwd is empty). A trailing
// '?' marks the file optional: a missing optional file is not an error.
func LoadEnvFile(env map[string]string, path, cwd string) error {
	optional := strings.HasSuffix(path, "?")
	path = strings.TrimSuffix(path, "?")

	fullPath := filepath.FromSlash(path)
	if !filepath.IsAbs(fullPath) {
		if cwd == "" {
			var err error
			if cwd, err = os.Getwd(); err != nil {
				return fmt.Errorf("failed to get current working directory: %w", err)
			}
		}
		fullPath = filepath.Join(cwd, fullPath)
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read env file '%s': %w", path, err)
	}

	return ParseEnvFile(env, content, path)
}

// ParseEnvFile parses dotenv content and merges it into env; later lines win.
// Supported format:
//   - Lines starting with # are comments; empty lines are ignored
//   - KEY=value (unquoted, " #" starts an inline comment)
//   - KEY="value" (escape sequences: \n, \r, \t, \\, \", \$)
//   - KEY='value' (literal)
//   - export KEY=value (the export prefix is ignored)
//
// Nothing is merged if any line is malformed.
func ParseEnvFile(env map[string]string, content []byte, filename string) error {
	parsed := make(map[string]string)

	for i, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, value, found := strings.Cut(line, "=")
		if !found {
			return &EnvFileSyntaxError{File: filename, Line: i + 1, Reason: "invalid format (missing '=')"}
		}

		key = strings.TrimSpace(key)
		if key == "" {
			return &EnvFileSyntaxError{File: filename, Line: i + 1, Reason: "empty variable name"}
		}

		parsedValue, reason := parseEnvValue(value)
		if reason != "" {
			return &EnvFileSyntaxError{File: filename, Line: i + 1, Reason: reason}
		}

		parsed[key] = parsedValue
	}

	for k, v := range parsed {
		env[k] = v
	}
	return nil
}

// parseEnvValue handles quoting. A non-empty reason reports a syntax error.
func parseEnvValue(value string) (string, string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ""
	}

	switch value[0] {
	case '"':
		if len(value) < 2 || value[len(value)-1] != '"' {
			return "", "unterminated double quote"
		}
		return unescapeDoubleQuoted(value[1 : len(value)-1]), ""
	case '\'':
		if len(value) < 2 || value[len(value)-1] != '\'' {
			return "", "unterminated single quote"
		}
		return value[1 : len(value)-1], ""
	}

	if idx := strings.Index(value, " #"); idx != -1 {
		value = strings.TrimSpace(value[:idx])
	}
	return value, ""
}

func unescapeDoubleQuoted(value string) string {
	var b strings.Builder
	b.Grow(len(value))

	for i := 0; i < len(value); i++ {
		if value[i] != '\\' || i+1 == len(value) {
			b.WriteByte(value[i])
			continue
		}
		i++
		switch value[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '\\', '"', '$':
			b.WriteByte(value[i])
		default:
			// Unknown escape: keep both characters.
			b.WriteByte('\\')
			b.WriteByte(value[i])
		}
	}

	return b.String()
}
