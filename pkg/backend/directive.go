package backend

import (
	"fmt"
	"sort"
	"strings"
)

// directiveLines is the data-driven header-line builder shared by SGE and
// SLURM (spec §4.3/§6): scheduler-specific option keys are filtered from
// opts, stripped of their prefix, sorted, and materialized as
// "<marker> -<key> <value>" lines; boolean true becomes a flag without a
// value.
func directiveLines(opts map[string]any, prefix, marker string, flag func(key string) string) []string {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		suffix := strings.TrimPrefix(k, prefix)
		v := opts[k]
		if b, ok := v.(bool); ok {
			if b {
				lines = append(lines, fmt.Sprintf("%s %s", marker, flag(suffix)))
			}
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s %v", marker, flag(suffix), v))
	}
	return lines
}

func hasKey(opts map[string]any, key string) bool {
	_, ok := opts[key]
	return ok
}
