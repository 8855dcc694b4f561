// SPDX-License-Identifier: MPL-2.0

// Package logging builds the process-wide slog logger: a charmbracelet/log
// terminal handler, optionally fanned out to a JSON log file.
package logging
