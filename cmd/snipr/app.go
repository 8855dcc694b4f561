// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"github.com/snipr/snipr/internal/config"
	"github.com/snipr/snipr/internal/engine"
	"github.com/snipr/snipr/internal/fsutil"
	"github.com/snipr/snipr/internal/history"
	"github.com/snipr/snipr/internal/issue"
	"github.com/snipr/snipr/internal/logging"
	"github.com/snipr/snipr/internal/session"
)

type (
	// rootOptions holds the persistent flags.
	rootOptions struct {
		configDir   string
		dataDir     string
		logFile     string
		metricsFile string
		verbose     bool
	}

	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every command handler receives the App and
	// reaches the stores and the engine through it.
	App struct {
		Config   *config.Store
		History  *history.Store
		Buffer   *session.Buffer
		RunLog   *session.RunLog
		Metrics  *engine.Metrics
		Registry *prometheus.Registry
		Logger   *slog.Logger

		opts      rootOptions
		dataDir   string
		stdout    io.Writer
		stderr    io.Writer
		color     bool
		logCloser io.Closer
		opened    bool
	}
)

// newApp creates an App writing to the given streams. Services are created
// by open once flags have been parsed.
func newApp(stdout, stderr io.Writer) *App {
	return &App{stdout: stdout, stderr: stderr}
}

// open creates the logger, the stores and the metrics registry.
func (a *App) open(ctx context.Context) error {
	if a.opened {
		return nil
	}

	logger, closer, err := logging.New(logging.Options{
		Writer:   a.stderr,
		Verbose:  a.opts.verbose,
		FilePath: a.opts.logFile,
	})
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("open log file").
			WithResource(a.opts.logFile).
			WithSuggestion("Check that the directory is writable or drop --log-file").
			Wrap(err).
			BuildError()
	}
	a.Logger = logger
	a.logCloser = closer
	slog.SetDefault(logger)

	a.color = isTerminal(a.stdout)

	// Open logs a warning itself when the file is invalid and falls back to defaults.
	a.Config = config.Open(ctx, config.LoadOptions{ConfigDirPath: a.opts.configDir}, logger)
	if err := a.Config.LoadError(); err != nil {
		a.explain(err, issue.ConfigLoadFailedId)
	}

	dataDir := a.opts.dataDir
	if dataDir == "" {
		if dataDir, err = config.DataDir(); err != nil {
			return fmt.Errorf("resolve data directory: %w", err)
		}
	}
	if err := os.MkdirAll(dataDir, fsutil.DirPerm); err != nil {
		logger.Warn("failed to create data directory", "path", dataDir, "error", err)
	}
	a.dataDir = dataDir

	a.History = history.Open(filepath.Join(dataDir, history.FileName), logger)
	a.Buffer = session.NewBuffer(filepath.Join(dataDir, session.BufferFileName))
	a.RunLog, err = session.OpenRunLog(filepath.Join(dataDir, session.RunLogFileName))
	if err != nil {
		logger.Warn("failed to create run log", "error", err)
	}

	a.Registry = prometheus.NewRegistry()
	a.Metrics = engine.NewMetrics(a.Registry)

	a.opened = true
	return nil
}

// newEngine creates an engine over the App's stores. source replaces the
// config store as the configuration source when non-nil.
func (a *App) newEngine(source engine.ConfigSource) *engine.Engine {
	if source == nil {
		source = a.Config
	}
	return engine.New(source, a.History, a.Buffer, a.RunLog,
		engine.WithLogger(a.Logger),
		engine.WithMetrics(a.Metrics),
		engine.WithRunLock(engine.LockPath(a.dataDir)),
	)
}

// close writes the metrics file, if requested, and closes the log file.
func (a *App) close() error {
	if !a.opened {
		return nil
	}
	a.opened = false

	var errs []error
	if a.opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(a.opts.metricsFile, a.Registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log file: %w", err))
		}
	}
	return errors.Join(errs...)
}

// explain renders the catalog entry for id in verbose mode.
func (a *App) explain(err error, id issue.Id) {
	if a.opts.verbose {
		renderServiceError(a.stderr, newServiceError(err, id, ""), a.glamourStyle())
	}
}

// style renders s with st when stdout is a terminal.
func (a *App) style(st lipgloss.Style, s string) string {
	if !a.color {
		return s
	}
	return st.Render(s)
}

// glamourStyle returns the glamour style matching the output.
func (a *App) glamourStyle() string {
	if a.color {
		return "dark"
	}
	return "notty"
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
