package agent

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinStructuredLength is the shortest answer accepted without the fallback template
const MinStructuredLength = 100

var listMarker = regexp.MustCompile(`(?m)^\s*(\*\*)?1[.)]`)

// IsStructured reports whether text is long enough and contains a numbered list starting at 1
func IsStructured(text string) bool {
	return utf8.RuneCountInString(text) >= MinStructuredLength && listMarker.MatchString(text)
}

// EnsureStructured returns text unchanged when it is structured. Otherwise it returns
// template, with the original text appended as an additional insight when non-empty.
func EnsureStructured(text, template string) string {
	if IsStructured(text) {
		return text
	}

	insight := strings.TrimSpace(text)
	if insight == "" {
		return template
	}
	return template + "\n\nAdditional insight: " + insight
}
