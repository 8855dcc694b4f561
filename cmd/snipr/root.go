// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/snipr/snipr/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand builds the command tree around app.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "snipr",
		Short: "Run code snippets through a configurable interpreter",
		Long: TitleStyle.Render("snipr") + SubtitleStyle.Render(" - run code snippets through a configurable interpreter") + `

snipr runs a snippet with the native toolchain (via /usr/bin/env),
a secondary interpreter (python3 by default) or a shell, streams
its output, and keeps a searchable history of every run.

` + SubtitleStyle.Render("Examples:") + `
  snipr run 'print("hi")'                 Run with the configured interpreter
  snipr run -i shell 'echo "$0"' world    Run a shell snippet with an argument
  snipr history list --search error       Search past runs
  snipr config set interpreter secondary  Switch the default interpreter
  snipr session show                      Show the last session transcript`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.open(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&app.opts.verbose, "verbose", "v", false, "enable verbose output")
	flags.StringVar(&app.opts.configDir, "config-dir", "", "configuration directory (default is the platform config dir)")
	flags.StringVar(&app.opts.dataDir, "data-dir", "", "directory for history, session and run log (default is the platform data dir)")
	flags.StringVar(&app.opts.logFile, "log-file", "", "also write JSON logs to this file")
	flags.StringVar(&app.opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.AddCommand(newRunCommand(app))
	rootCmd.AddCommand(newHistoryCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))
	rootCmd.AddCommand(newSessionCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process with the resulting status.
// This is called by main.main().
func Execute() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	rootCmd := newRootCommand(app)
	rootCmd.SetArgs(args)

	// fang overrides rootCmd.Version, so the version is passed explicitly.
	// Interrupts cancel the command context; `run` turns that into Cancel.
	err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			reportError(w, app, err)
		}),
	)
	if closeErr := app.close(); closeErr != nil && err == nil {
		err = closeErr
		reportError(stderr, app, err)
	}
	return exitCodeFor(err)
}

// reportError renders err for the user. Exit errors without a cause are
// silent: the run already showed why it failed.
func reportError(w io.Writer, app *App, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		renderServiceError(w, svcErr, app.glamourStyle())
		if svcErr.StyledMessage != "" {
			return
		}
	}

	fmt.Fprintln(w, app.style(ErrorStyle, "Error: ")+formatErrorForDisplay(err, app.opts.verbose))

	// The catalog entry is long; only verbose mode shows it.
	var ae *issue.ActionableError
	if app.opts.verbose && errors.As(err, &ae) && ae.IssueID != 0 {
		renderServiceError(w, newServiceError(ae, ae.IssueID, ""), app.glamourStyle())
	}
}

func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return int(exitErr.Code)
	}
	return 1
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
