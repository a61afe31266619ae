// Package fieldpath handles dotted field paths ("retry.limit") and the
// conversions between flat dotted maps and nested maps used by overlay
// queries and history codecs.
package fieldpath

import (
	"sort"
	"strings"
)

// Join concatenates path segments, skipping empties.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		parts = append(parts, segment)
	}
	return strings.Join(parts, ".")
}

// Split breaks a dotted path into its segments. Empty paths yield nil.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Head splits a path into its first segment and the remainder.
func Head(path string) (head, rest string) {
	if idx := strings.IndexByte(path, '.'); idx >= 0 {
		return path[:idx], path[idx+1:]
	}
	return path, ""
}

// StripPrefix returns the entries of flat whose keys sit under prefix, with
// the prefix removed. A key equal to prefix maps to the empty path.
func StripPrefix(flat map[string]any, prefix string) map[string]any {
	if len(flat) == 0 {
		return nil
	}
	marker := prefix + "."
	out := map[string]any{}
	for key, value := range flat {
		if key == prefix {
			out[""] = value
			continue
		}
		if strings.HasPrefix(key, marker) {
			out[key[len(marker):]] = value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Flatten converts a nested map into a flat dotted-path map. Non-map leaves
// are copied as-is.
func Flatten(nested map[string]any) map[string]any {
	out := map[string]any{}
	flattenInto(out, "", nested)
	return out
}

func flattenInto(out map[string]any, prefix string, nested map[string]any) {
	for key, value := range nested {
		path := Join(prefix, key)
		if child, ok := value.(map[string]any); ok && len(child) > 0 {
			flattenInto(out, path, child)
			continue
		}
		out[path] = value
	}
}

// Expand converts a flat dotted-path map into a nested map. Later keys in
// sorted order win when a leaf and a subtree collide.
func Expand(flat map[string]any) map[string]any {
	out := map[string]any{}
	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		segments := Split(key)
		if len(segments) == 0 {
			continue
		}
		node := out
		for _, segment := range segments[:len(segments)-1] {
			child, ok := node[segment].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[segment] = child
			}
			node = child
		}
		node[segments[len(segments)-1]] = flat[key]
	}
	return out
}
