// SPDX-License-Identifier: MPL-2.0

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	slogmulti "github.com/samber/slog-multi"

	"github.com/snipr/snipr/internal/fsutil"
)

// Prefix is shown in front of every terminal log line.
const Prefix = "snipr"

// Options controls the handlers created by New.
type Options struct {
	// Writer receives terminal output. Defaults to os.Stderr.
	Writer io.Writer
	// Verbose lowers the level of both handlers to debug.
	Verbose bool
	// FilePath, when set, also writes JSON records to this file (appending).
	FilePath string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger for opts and a closer for the log file, if any.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level := slog.LevelWarn
	termLevel := log.WarnLevel
	if opts.Verbose {
		level = slog.LevelDebug
		termLevel = log.DebugLevel
	}

	terminal := log.NewWithOptions(w, log.Options{
		Prefix: Prefix,
		Level:  termLevel,
	})

	if opts.FilePath == "" {
		return slog.New(terminal), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.FilePath), fsutil.DirPerm); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fsutil.FilePerm)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	file := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(terminal, file)), f, nil
}
