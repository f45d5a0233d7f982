package ai

import "unicode/utf8"

// DefaultLogPreview is the number of runes TruncateForLog keeps by default.
const DefaultLogPreview = 200

// TruncateForLog shortens s to at most n runes for debug logging, marking
// the cut with "...". n <= 0 selects DefaultLogPreview.
func TruncateForLog(s string, n int) string {
	if n <= 0 {
		n = DefaultLogPreview
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
