// SPDX-License-Identifier: MPL-2.0

// Package cueutil turns CUE evaluation errors into path-prefixed messages
// that point at the offending field of a user-edited file.
package cueutil
