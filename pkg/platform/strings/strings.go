// Package strings provides string cleanup helpers for names read from
// scanned rosters and identity records.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element and drops empties and exact duplicates.
// Order is preserved.
//
//	DedupeAndTrim([]string{"  Jo ", "Joanne", "Jo", "", "  "})
//	// []string{"Jo", "Joanne"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := CollapseWhitespace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// CollapseWhitespace trims s and replaces every internal whitespace run with one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
