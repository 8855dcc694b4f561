// SPDX-License-Identifier: MPL-2.0

// Package platform centralizes the runtime.GOOS names the rest of the module
// compares against.
package platform
