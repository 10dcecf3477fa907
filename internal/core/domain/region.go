package domain

import "strings"

// RegionNameFields are the feature properties that may carry a region's
// name, in order of preference.
var RegionNameFields = []string{"name", "NAME", "NAME_1", "admin"}

// RegionName returns the first non-empty name field of props, or "".
func RegionName(props map[string]any) string {
	for _, key := range RegionNameFields {
		if s, ok := props[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// RegionMatches reports whether any name field of props equals name,
// ignoring case and surrounding space.
func RegionMatches(props map[string]any, name string) bool {
	name = strings.TrimSpace(name)
	for _, key := range RegionNameFields {
		if s, ok := props[key].(string); ok && strings.EqualFold(strings.TrimSpace(s), name) {
			return true
		}
	}
	return false
}
