// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/snipr/snipr/internal/config"
	"github.com/snipr/snipr/internal/engine"
	"github.com/snipr/snipr/internal/issue"
	"github.com/snipr/snipr/internal/runtime"
)

// reapTimeout bounds how long `run` waits for a cancelled process to exit
// so its record can still be written.
const reapTimeout = 5 * time.Second

// interpreterOverride serves the stored configuration with another interpreter.
type interpreterOverride struct {
	base        engine.ConfigSource
	interpreter config.Interpreter
}

func (o interpreterOverride) Current() config.RunConfig {
	cfg := o.base.Current()
	cfg.Interpreter = o.interpreter
	return cfg
}

func newRunCommand(app *App) *cobra.Command {
	var (
		interpreter string
		quiet       bool
	)

	runCmd := &cobra.Command{
		Use:   "run <snippet> [args...]",
		Short: "Run a snippet and stream its output",
		Long: `Run a snippet with the configured interpreter and stream its output.

Standard error lines are prefixed with ❌. Press Ctrl-C to cancel the run;
the cancelled run is still recorded in the history once it exits.

The exit status mirrors the snippet's: 127 when the interpreter is missing,
126 when it is not executable and 130 when the run was cancelled.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var source engine.ConfigSource
			if interpreter != "" {
				i, err := config.ParseInterpreter(interpreter)
				if err != nil {
					return issue.NewErrorContext().
						WithOperation("select interpreter").
						WithResource(interpreter).
						WithSuggestion("Use one of: native, secondary, shell").
						WithIssue(issue.InvalidInterpreterId).
						Wrap(err).
						BuildError()
				}
				source = interpreterOverride{base: app.Config, interpreter: i}
			}

			out := cmd.OutOrStdout()
			if quiet {
				out = io.Discard
			}
			return runSnippet(cmd.Context(), app, source, out, args[0], args[1:])
		},
	}

	runCmd.Flags().StringVarP(&interpreter, "interpreter", "i", "", "interpreter for this run only (native, secondary, shell)")
	runCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not stream output (it is still recorded)")
	// Everything after the snippet belongs to the snippet.
	runCmd.Flags().SetInterspersed(false)

	return runCmd
}

// runSnippet starts the run, streams the transcript to out until the run is
// idle and maps the outcome to an exit status. Cancelling ctx cancels the run.
func runSnippet(ctx context.Context, app *App, source engine.ConfigSource, out io.Writer, snippet string, args []string) error {
	eng := app.newEngine(source)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), reapTimeout)
		defer cancel()
		if err := eng.Close(closeCtx); err != nil {
			app.Logger.Warn("run not reaped before exit", "error", err)
		}
	}()

	started, err := eng.Run(snippet, args...)
	if errors.Is(err, engine.ErrRunInProgress) {
		return issue.NewErrorContext().
			WithOperation("start run").
			WithSuggestion("Wait for the other run to finish or cancel it").
			WithIssue(issue.RunInProgressId).
			Wrap(err).
			BuildError()
	}
	if err != nil {
		return err
	}

	if started.Phase == engine.PhaseFailedToStart {
		return startFailure(app, started)
	}

	final := streamRun(ctx, app, eng, started.RunID, out)

	switch {
	case final.Phase == engine.PhaseCancelled:
		fmt.Fprintln(app.stderr, app.style(WarningStyle, "Run cancelled."))
		return &ExitError{Code: ExitCancelled}
	case !final.HasExitCode:
		return &ExitError{Code: runtime.ExitGeneric}
	}

	if code := runtime.ExitCode(final.ExitCode); !code.IsSuccess() {
		return &ExitError{Code: code}
	}
	return nil
}

// streamRun writes transcript growth of run runID to out and returns the
// first idle snapshot. It cancels the run once when ctx is done.
func streamRun(ctx context.Context, app *App, eng *engine.Engine, runID string, out io.Writer) engine.Snapshot {
	updates, unsubscribe := eng.Subscribe()
	defer unsubscribe()

	written := 0
	emit := func(s engine.Snapshot) {
		if s.RunID != runID || len(s.Transcript) <= written {
			return
		}
		if _, err := io.WriteString(out, s.Transcript[written:]); err != nil {
			app.Logger.Debug("failed to write output", "error", err)
		}
		written = len(s.Transcript)
	}

	done := ctx.Done()
	for {
		select {
		case s, ok := <-updates:
			if !ok {
				return eng.Snapshot()
			}
			emit(s)
			if !s.Phase.IsActive() {
				return s
			}
		case <-done:
			done = nil
			if _, err := eng.Cancel(); err != nil {
				app.Logger.Warn("failed to cancel run", "error", err)
			}
		}
	}
}

// startFailure renders a spawn failure and maps it to its exit status.
func startFailure(app *App, s engine.Snapshot) error {
	code := runtime.ExitCode(s.ExitCode)

	id := issue.SpawnFailedId
	switch code {
	case runtime.ExitCommandNotFound:
		id = issue.InterpreterNotFoundId
	case runtime.ExitPermissionDenied:
		id = issue.PermissionDeniedId
	}

	msg := app.style(ErrorStyle, s.Transcript) + "\n"
	return &ExitError{Code: code, Err: newServiceError(errors.New(s.Transcript), id, msg)}
}
