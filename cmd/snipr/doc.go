// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the snipr command line: running snippets, browsing
// the run history, editing the configuration and inspecting the last session.
package cmd
