// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/snipr/snipr/internal/cueutil"
	"github.com/snipr/snipr/internal/platform"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/literal"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name used for the config and data directories.
	AppName = "snipr"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"

	envKey = "env"
)

//go:embed config_schema.cue
var configSchema string

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
}

// ConfigDir returns the snipr configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// DataDir returns the directory holding the history, session and run log
// files. It follows the same platform conventions as ConfigDir, with
// $XDG_DATA_HOME (defaulting to ~/.local/share) on Linux and %LOCALAPPDATA%
// on Windows.
func DataDir() (string, error) {
	if dataDirOverride != "" {
		return dataDirOverride, nil
	}

	var dataDir string

	switch runtime.GOOS {
	case platform.Windows:
		dataDir = os.Getenv("LOCALAPPDATA")
		if dataDir == "" {
			dataDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, "Library", "Application Support")
	default:
		dataDir = os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			dataDir = filepath.Join(home, ".local", "share")
		}
	}

	return filepath.Join(dataDir, AppName), nil
}

// FilePath returns the config file path that Load would use for opts.
func FilePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, nil
	}
	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// Load reads the RunConfig described by opts. A missing file yields the
// defaults with a nil error; an unreadable or invalid file yields the
// defaults together with the error, so callers can choose to report it
// without losing a usable configuration.
func Load(ctx context.Context, opts LoadOptions) (RunConfig, string, error) {
	select {
	case <-ctx.Done():
		return DefaultRunConfig(), "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	path, err := FilePath(opts)
	if err != nil {
		return DefaultRunConfig(), "", err
	}

	v := viper.New()

	defaults := DefaultRunConfig()
	v.SetDefault("interpreter", defaults.Interpreter)
	v.SetDefault("secondary_path", defaults.SecondaryPath)
	v.SetDefault("shell_path", defaults.ShellPath)
	v.SetDefault("native_tool", defaults.NativeTool)

	if !fileExists(path) {
		if opts.ConfigFilePath != "" {
			return DefaultRunConfig(), path, fmt.Errorf("config file not found: %s", path)
		}
		return DefaultRunConfig(), path, nil
	}

	env, err := loadCUEIntoViper(v, path)
	if err != nil {
		return DefaultRunConfig(), path, err
	}

	var cfg RunConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return DefaultRunConfig(), path, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Env = env
	if cfg.Env == nil {
		cfg.Env = map[string]string{}
	}

	if err := cfg.Validate(); err != nil {
		return DefaultRunConfig(), path, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, path, nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// merges the scalar fields into Viper and returns the env overrides decoded
// straight from CUE (viper would lowercase their keys).
func loadCUEIntoViper(v *viper.Viper, path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return nil, cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return nil, cueutil.FormatError(err, path)
	}

	var env map[string]string
	if envValue := unified.LookupPath(cue.ParsePath(envKey)); envValue.Exists() {
		if err := envValue.Decode(&env); err != nil {
			return nil, cueutil.FormatError(err, path)
		}
	}
	delete(configMap, envKey)

	if err := v.MergeConfigMap(configMap); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	return env, nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// GenerateCUE generates the CUE representation of cfg written by Save.
// Env keys are emitted in sorted order so the file diffs cleanly.
func GenerateCUE(cfg RunConfig) string {
	var sb strings.Builder

	sb.WriteString("// snipr configuration file\n")
	sb.WriteString("// Edit by hand or with 'snipr config set'.\n\n")

	sb.WriteString("interpreter:    " + quote(string(cfg.Interpreter)) + "\n")
	sb.WriteString("secondary_path: " + quote(string(cfg.SecondaryPath)) + "\n")
	sb.WriteString("shell_path:     " + quote(string(cfg.ShellPath)) + "\n")
	sb.WriteString("native_tool:    " + quote(cfg.EffectiveNativeTool()) + "\n")

	keys := make([]string, 0, len(cfg.Env))
	for k := range cfg.Env {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	if len(keys) == 0 {
		sb.WriteString("\nenv: {}\n")
		return sb.String()
	}

	sb.WriteString("\nenv: {\n")
	for _, k := range keys {
		sb.WriteString("\t" + quote(k) + ": " + quote(cfg.Env[k]) + "\n")
	}
	sb.WriteString("}\n")

	return sb.String()
}

func quote(s string) string {
	return literal.String.Quote(s)
}
