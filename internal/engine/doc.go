// SPDX-License-Identifier: MPL-2.0

// Package engine runs one snippet at a time through the configured
// interpreter and keeps the observable run state: the transcript, the
// running flag and a coarse progress value.
//
// A single consumer goroutine owns all state. Public calls are messages to
// that goroutine and return once the message has been applied, so for
// example IsRunning is false as soon as Cancel returns. Output pumps and the
// exit waiter never touch state directly; every chunk and exit notification
// carries the run it belongs to, so output from a cancelled run that is
// still draining can never leak into a newer run.
//
// Completed and cancelled runs are appended to the history; every run,
// including ones that fail to spawn, is appended to the run log, and the
// session buffer mirrors the current transcript so it can be restored after
// a crash.
package engine
