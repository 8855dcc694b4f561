// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors for the CLI: each failure names the
// operation and resource involved, carries remediation hints, and can point at
// a Markdown guide from the issue catalog rendered in the terminal.
package issue
