// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newSessionCommand(app *App) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect the last session and the run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	sessionCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the transcript of the last session",
		Long: `Print the transcript of the last session.

The session file mirrors the output of the current run while it is running,
so it survives a crash and shows what the last run printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showSession(cmd.Context(), cmd.OutOrStdout(), app)
		},
	})

	sessionCmd.AddCommand(&cobra.Command{
		Use:   "log",
		Short: "Show the run log path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), app.RunLog.Path())
			return nil
		},
	})

	return sessionCmd
}

// showSession prints the transcript an engine restores on startup.
func showSession(ctx context.Context, out io.Writer, app *App) error {
	eng := app.newEngine(nil)
	defer func() { _ = eng.Close(ctx) }()

	s, err := eng.RestoreLastSession()
	if err != nil {
		return err
	}
	if s.Transcript == "" {
		fmt.Fprintln(out, app.style(SubtitleStyle, "(no session recorded)"))
		return nil
	}

	_, err = io.WriteString(out, s.Transcript)
	if err == nil && !strings.HasSuffix(s.Transcript, "\n") {
		_, err = io.WriteString(out, "\n")
	}
	return err
}
