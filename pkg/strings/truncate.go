// Package strings holds text helpers for terminal output.
package strings

import (
	"strings"
)

// Ellipsis marks truncated text.
const Ellipsis = "..."

// OneLine collapses every run of whitespace, newlines included, into a
// single space so user content cannot break table rows.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most n runes, ending in Ellipsis when there is
// room for it. n <= 0 leaves s alone.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= len(Ellipsis) {
		return string(r[:n])
	}
	return string(r[:n-len(Ellipsis)]) + Ellipsis
}
