package rules

import (
	"fmt"
	"sort"
)

// walkScalars visits every string scalar in a decoded document tree, in
// sorted key order so issue production is deterministic regardless of map
// iteration. fn receives the key path, the owning key name ("" for sequence
// items), and the value.
func walkScalars(node any, path string, fn func(path, key, value string)) {
	switch n := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := joinPath(path, k)
			if s, ok := n[k].(string); ok {
				fn(child, k, s)
				continue
			}
			walkScalars(n[k], child, fn)
		}
	case []any:
		for i, item := range n {
			child := fmt.Sprintf("%s[%d]", path, i)
			if s, ok := item.(string); ok {
				fn(child, "", s)
				continue
			}
			walkScalars(item, child, fn)
		}
	}
}

// walkMappings visits every mapping in a decoded document tree, again in
// sorted key order.
func walkMappings(node any, path string, fn func(path string, m map[string]any)) {
	switch n := node.(type) {
	case map[string]any:
		fn(path, n)
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkMappings(n[k], joinPath(path, k), fn)
		}
	case []any:
		for i, item := range n {
			walkMappings(item, fmt.Sprintf("%s[%d]", path, i), fn)
		}
	}
}
