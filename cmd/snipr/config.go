// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/snipr/snipr/internal/config"
	"github.com/snipr/snipr/internal/issue"
	"github.com/snipr/snipr/internal/runtime"
)

// newConfigCommand creates the `snipr config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage snipr configuration",
		Long: `Manage snipr configuration.

Configuration is stored in:
  - Linux: ~/.config/snipr/config.cue
  - macOS: ~/Library/Application Support/snipr/config.cue
  - Windows: %APPDATA%\snipr\config.cue

Every change is saved immediately and applies to the next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			showConfig(cmd.OutOrStdout(), app)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), app.Config.Path())
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(app.Config.Current()))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

Keys: ` + strings.Join([]string{config.KeyInterpreter, config.KeySecondaryPath, config.KeyShellPath, config.KeyNativeTool}, ", ") + `

An empty path restores the default executable.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Config.Set(args[0], args[1]); err != nil {
				return configSetError(args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %q\n", app.style(SuccessStyle, "Set"), args[0], args[1])
			return nil
		},
	})

	cfgCmd.AddCommand(newConfigEnvCommand(app))

	return cfgCmd
}

func newConfigEnvCommand(app *App) *cobra.Command {
	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Manage environment overrides passed to every run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	envCmd.AddCommand(&cobra.Command{
		Use:   "set KEY=VALUE...",
		Short: "Set environment overrides",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars := make(map[string]string, len(args))
			for _, arg := range args {
				key, value, ok := strings.Cut(arg, "=")
				if !ok {
					return issue.NewErrorContext().
						WithOperation("parse environment override").
						WithResource(arg).
						WithSuggestion("Use KEY=VALUE, for example API_KEY=xyz").
						BuildError()
				}
				vars[key] = value
			}
			if err := app.Config.ImportEnv(vars); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d override(s)\n", app.style(SuccessStyle, "Set"), len(vars))
			return nil
		},
	})

	envCmd.AddCommand(&cobra.Command{
		Use:   "unset KEY...",
		Short: "Remove environment overrides",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, key := range args {
				if !app.Config.UnsetEnv(key) {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s is not set\n", app.style(WarningStyle, "Warning:"), key)
				}
			}
			return nil
		},
	})

	envCmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Import overrides from a dotenv file",
		Long: `Import overrides from a dotenv file.

Imported values replace existing overrides with the same name. Nothing is
saved if any line of the file is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}

			vars := map[string]string{}
			if err := runtime.LoadEnvFile(vars, args[0], cwd); err != nil {
				return issue.NewErrorContext().
					WithOperation("import environment file").
					WithResource(args[0]).
					WithIssue(issue.EnvFileInvalidId).
					Wrap(err).
					BuildError()
			}
			if err := app.Config.ImportEnv(vars); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d override(s) from %s\n", app.style(SuccessStyle, "Imported"), len(vars), args[0])
			return nil
		},
	})

	return envCmd
}

func showConfig(out io.Writer, app *App) {
	cfg := app.Config.Current()

	fmt.Fprintln(out, app.style(TitleStyle, "Current Configuration"))
	fmt.Fprintln(out)

	path := app.Config.Path()
	if _, err := os.Stat(path); err != nil {
		path += " " + app.style(SubtitleStyle, "(not created yet, using defaults)")
	}
	fmt.Fprintf(out, "%s: %s\n\n", app.style(CmdStyle, "Config file"), path)

	value := func(key, v string) {
		fmt.Fprintf(out, "%s: %s\n", app.style(CmdStyle, key), app.style(SuccessStyle, v))
	}
	value(config.KeyInterpreter, cfg.Interpreter.String())
	value(config.KeySecondaryPath, cfg.EffectiveSecondaryPath().String())
	value(config.KeyShellPath, cfg.EffectiveShellPath().String())
	value(config.KeyNativeTool, cfg.EffectiveNativeTool())

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", app.style(CmdStyle, "env"))
	if len(cfg.Env) == 0 {
		fmt.Fprintf(out, "  %s\n", app.style(SubtitleStyle, "(none configured)"))
		return
	}
	for _, k := range slices.Sorted(maps.Keys(cfg.Env)) {
		fmt.Fprintf(out, "  %s=%s\n", k, cfg.Env[k])
	}
}

func configSetError(key string, err error) error {
	ctx := issue.NewErrorContext().
		WithOperation("set configuration").
		WithResource(key).
		Wrap(err)
	if key == config.KeyInterpreter {
		ctx = ctx.WithIssue(issue.InvalidInterpreterId)
	}
	return ctx.BuildError()
}
