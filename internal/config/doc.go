// SPDX-License-Identifier: MPL-2.0

// Package config owns the persisted run configuration: which interpreter runs
// snippets, where the secondary interpreter and the shell live, the native
// toolchain name, and the environment overrides applied to every run.
//
// The file is ~/.config/snipr/config.cue (or the XDG equivalent on Linux,
// ~/Library/Application Support/snipr/config.cue on macOS,
// %APPDATA%\snipr\config.cue on Windows). Viper supplies the defaults and the
// file is validated against the embedded CUE schema (config_schema.cue) before
// being merged. A missing, unreadable or invalid file never blocks a run: the
// Store falls back to the defaults and records the load error.
package config
