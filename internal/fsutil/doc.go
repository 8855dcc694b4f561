// SPDX-License-Identifier: MPL-2.0

// Package fsutil provides the small set of durable file operations shared by
// the config, history and session stores: whole-file atomic replacement and
// append-only writes.
package fsutil
