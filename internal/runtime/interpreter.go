// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

const (
	// InterpreterNative runs the snippet with an env-resolved toolchain.
	InterpreterNative Interpreter = "native"
	// InterpreterSecondary runs the snippet with the secondary interpreter.
	InterpreterSecondary Interpreter = "secondary"
	// InterpreterShell runs the snippet with a shell.
	InterpreterShell Interpreter = "shell"

	// EnvExecutable resolves the native toolchain through PATH.
	EnvExecutable = "/usr/bin/env"
	// DefaultSecondaryPath is used when Settings.SecondaryPath is empty.
	DefaultSecondaryPath = "/usr/bin/python3"
	// DefaultShellPath is used when Settings.ShellPath is empty.
	DefaultShellPath = "/bin/sh"
	// DefaultNativeTool is used when Settings.NativeTool is empty.
	DefaultNativeTool = "swift"

	// emptySnippet replaces an empty snippet; interpreters reject `-c ""`
	// inconsistently, so they always receive a program.
	emptySnippet = " "
)

type (
	// Interpreter selects the executable family. Mirrors config.Interpreter;
	// the engine converts at the boundary.
	Interpreter string

	// Settings is the part of the run configuration that decides what to spawn.
	Settings struct {
		Interpreter   Interpreter
		SecondaryPath string
		ShellPath     string
		NativeTool    string
	}

	// Invocation is a fully resolved command line.
	Invocation struct {
		Executable string
		Args       []string
		// Label names the interpreter in history records.
		Label string
	}
)

// String returns the string representation of the Interpreter.
func (i Interpreter) String() string { return string(i) }

// Resolve builds the command line for snippet. It is pure: no path is checked
// for existence, so an invalid path surfaces when the process is spawned.
//
//	native:    /usr/bin/env <tool> -e <snippet> <args...>
//	secondary: <secondary> -c <snippet> <args...>
//	shell:     <shell> -c <snippet> <args...>
//
// Unknown interpreters resolve like native.
func Resolve(s Settings, snippet string, args []string) Invocation {
	if snippet == "" {
		snippet = emptySnippet
	}

	var exe string
	argv := make([]string, 0, len(args)+3)

	switch s.Interpreter {
	case InterpreterSecondary:
		exe = orDefault(s.SecondaryPath, DefaultSecondaryPath)
		argv = append(argv, "-c", snippet)
	case InterpreterShell:
		exe = orDefault(s.ShellPath, DefaultShellPath)
		argv = append(argv, "-c", snippet)
	default:
		exe = EnvExecutable
		argv = append(argv, orDefault(s.NativeTool, DefaultNativeTool), "-e", snippet)
	}
	argv = append(argv, args...)

	label := s.Interpreter
	if label == "" {
		label = InterpreterNative
	}

	return Invocation{Executable: exe, Args: argv, Label: label.String()}
}

// Description renders the command line for display and logs, quoting each
// word the way bash would need it.
func (inv Invocation) Description() string {
	words := make([]string, 0, len(inv.Args)+1)
	words = append(words, quoteWord(inv.Executable))
	for _, a := range inv.Args {
		words = append(words, quoteWord(a))
	}
	return strings.Join(words, " ")
}

func quoteWord(s string) string {
	q, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		// Only strings with NUL bytes cannot be quoted for bash.
		return strconv.Quote(s)
	}
	return q
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
