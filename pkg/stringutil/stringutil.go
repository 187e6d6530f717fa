// Package stringutil provides helpers for rendering values in single-line
// table cells.
package stringutil

import "strings"

// Ellipsis flattens s to one line and shortens it to at most maxLength runes,
// replacing the tail with "..." when truncated. Leading and trailing spaces
// are trimmed first. With maxLength of 3 or less there is no room for the
// ellipsis and s is cut without it.
func Ellipsis(s string, maxLength int) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")

	if maxLength <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}
