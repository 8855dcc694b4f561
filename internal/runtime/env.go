// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"slices"
	"strings"
)

// MergeEnv overlays overrides on an inherited environment in os.Environ()
// form and returns the result in the same form. Overrides win on collision.
// Entries keep the order of base, with new keys appended sorted.
func MergeEnv(base []string, overrides map[string]string) []string {
	merged := make([]string, 0, len(base)+len(overrides))
	seen := make(map[string]bool, len(overrides))

	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if v, ok := overrides[key]; ok {
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, key+"="+v)
			continue
		}
		merged = append(merged, kv)
	}

	added := make([]string, 0, len(overrides))
	for key := range overrides {
		if !seen[key] {
			added = append(added, key)
		}
	}
	slices.Sort(added)
	for _, key := range added {
		merged = append(merged, key+"="+overrides[key])
	}

	return merged
}
