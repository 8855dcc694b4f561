// SPDX-License-Identifier: MPL-2.0

// Package session persists what a run printed. Buffer mirrors the transcript
// of the current or most recent run so it can be shown again after a crash or
// restart. RunLog is the append-only, human-readable log of every run.
package session
