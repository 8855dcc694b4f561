// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/snipr/snipr/internal/fsutil"
	"github.com/snipr/snipr/internal/history"
	"github.com/snipr/snipr/internal/issue"
)

const (
	shortIDLength     = 8
	listCommandLength = 60
	listTimeLayout    = "2006-01-02 15:04:05"
)

func newHistoryCommand(app *App) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past runs",
		Long: `Inspect past runs.

Every run that was spawned is recorded, including cancelled ones. Runs whose
interpreter failed to start are only written to the run log.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	historyCmd.AddCommand(newHistoryListCommand(app))

	historyCmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one run (a unique ID prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showRecord(cmd.OutOrStdout(), app, args[0])
		},
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all history records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n := app.History.Len()
			if err := app.History.Clear(); err != nil {
				return issue.NewErrorContext().
					WithOperation("clear history").
					WithResource(app.History.Path()).
					Wrap(err).
					BuildError()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d record(s)\n", app.style(SuccessStyle, "Cleared"), n)
			return nil
		},
	})

	historyCmd.AddCommand(newHistoryExportCommand(app))

	return historyCmd
}

func newHistoryListCommand(app *App) *cobra.Command {
	var (
		search string
		limit  int
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			warnHistoryLoad(app)

			records := app.History.Search(search)
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, app.style(SubtitleStyle, "(no runs recorded)"))
				return nil
			}
			for _, r := range records {
				fmt.Fprintf(out, "%s  %s  %-9s  %s  %s\n",
					app.style(CmdStyle, r.ID.String()[:shortIDLength]),
					r.StartedAt.Local().Format(listTimeLayout),
					r.Interpreter,
					app.statusLabel(r),
					firstLine(r.Command, listCommandLength),
				)
			}
			return nil
		},
	}

	listCmd.Flags().StringVarP(&search, "search", "s", "", "only runs whose command or output contains this text (case-insensitive)")
	listCmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most this many runs (0 = all)")

	return listCmd
}

func newHistoryExportCommand(app *App) *cobra.Command {
	var (
		format string
		output string
	)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the history as JSON, TOML or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := history.Format(strings.ToLower(format))
			if valid, errs := f.IsValid(); !valid {
				return errs[0]
			}

			if output == "" || output == "-" {
				return app.History.Export(cmd.OutOrStdout(), f)
			}

			var buf bytes.Buffer
			if err := app.History.Export(&buf, f); err != nil {
				return err
			}
			if err := fsutil.WriteFileAtomic(output, buf.Bytes()); err != nil {
				return issue.WrapWithContext(err, "write export", output)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %d record(s) to %s\n", app.style(SuccessStyle, "Exported"), app.History.Len(), output)
			return nil
		},
	}

	exportCmd.Flags().StringVarP(&format, "format", "f", string(history.FormatJSON), "output format (json, toml, yaml)")
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")

	return exportCmd
}

func showRecord(out io.Writer, app *App, id string) error {
	r, err := app.History.Get(id)
	if err != nil {
		ctx := issue.NewErrorContext().
			WithOperation("find run").
			WithResource(id).
			WithIssue(issue.RecordNotFoundId).
			Wrap(err)
		if errors.Is(err, history.ErrAmbiguousID) {
			ctx = ctx.WithSuggestion("Use a longer ID prefix")
		} else {
			ctx = ctx.WithSuggestion("List recorded runs with 'snipr history list'")
		}
		return ctx.BuildError()
	}

	rendered, err := glamour.Render(recordMarkdown(r), app.glamourStyle())
	if err != nil {
		app.Logger.Debug("markdown rendering failed, printing raw", "error", err)
		rendered = recordMarkdown(r)
	}
	_, err = io.WriteString(out, rendered)
	return err
}

// recordMarkdown renders a record as a markdown document.
func recordMarkdown(r history.Record) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Run %s\n\n", r.ID)
	fmt.Fprintf(&sb, "- **Started:** %s\n", r.StartedAt.Local().Format(time.RFC1123))
	fmt.Fprintf(&sb, "- **Interpreter:** %s\n", r.Interpreter)
	fmt.Fprintf(&sb, "- **Status:** %s\n\n", statusText(r))

	sb.WriteString("## Command\n\n")
	sb.WriteString(codeBlock(r.Command))

	sb.WriteString("\n## Output preview\n\n")
	if r.OutputPreview == "" {
		sb.WriteString("_(no output)_\n")
	} else {
		sb.WriteString(codeBlock(r.OutputPreview))
	}

	return sb.String()
}

// codeBlock fences s with more backticks than any run inside it.
func codeBlock(s string) string {
	longest, run := 0, 0
	for _, c := range s {
		if c == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	fence := strings.Repeat("`", max(3, longest+1))
	return fence + "text\n" + strings.TrimRight(s, "\n") + "\n" + fence + "\n"
}

func statusText(r history.Record) string {
	switch {
	case r.Cancelled:
		return "cancelled"
	case r.ExitCode == nil:
		return "terminated by signal"
	default:
		return fmt.Sprintf("exit %d", *r.ExitCode)
	}
}

func (a *App) statusLabel(r history.Record) string {
	text := fmt.Sprintf("%-9s", statusText(r))
	switch {
	case r.Cancelled:
		return a.style(WarningStyle, text)
	case r.ExitCode != nil && *r.ExitCode == 0:
		return a.style(SuccessStyle, text)
	default:
		return a.style(ErrorStyle, text)
	}
}

// firstLine returns the first line of s, cut to n runes with an ellipsis.
func firstLine(s string, n int) string {
	line, _, more := strings.Cut(strings.TrimSpace(s), "\n")
	runes := []rune(line)
	if len(runes) > n {
		return string(runes[:n-1]) + "…"
	}
	if more {
		return line + " …"
	}
	return line
}

func warnHistoryLoad(app *App) {
	if err := app.History.LoadError(); err != nil {
		fmt.Fprintln(app.stderr, app.style(WarningStyle, "Warning: ")+"history could not be read and starts empty: "+err.Error())
		app.explain(err, issue.HistoryLoadFailedId)
	}
}
