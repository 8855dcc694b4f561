// SPDX-License-Identifier: MPL-2.0

// Package runtime turns a snippet and the run settings into a process
// invocation and provides the process-level helpers the engine needs:
//
//   - Resolve maps an interpreter (native, secondary, shell) to an executable
//     and argument vector.
//   - MergeEnv overlays configured overrides on the inherited environment.
//   - LoadEnvFile/ParseEnvFile read dotenv files for bulk override import.
//   - ClassifyStartError and ExitCodeFromWait map spawn and wait errors to
//     shell-convention exit codes.
//   - Terminate sends the best-effort cancellation signal.
//
// Nothing here spawns processes or holds state.
package runtime
