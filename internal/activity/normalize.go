package activity

import (
	"regexp"
	"strings"
)

// separatorRegex matches runs of whitespace and hyphens.
var separatorRegex = regexp.MustCompile(`[\s-]+`)

// NormalizeKey returns the canonical form of a field or parameter name:
// 1. Trim leading/trailing whitespace
// 2. Lowercase
// 3. Collapse internal whitespace and hyphens to a single underscore
//
// "Mark-Read", " mark read " and "mark_read" all normalize to "mark_read".
func NormalizeKey(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return separatorRegex.ReplaceAllString(s, "_")
}
