// SPDX-License-Identifier: MPL-2.0

// Package history keeps the newest-first list of finished runs. The whole
// list is rewritten atomically to a JSON file on every mutation; there is no
// size cap and no deduplication.
package history
