package analysis

import (
	"regexp"
	"strings"
)

var (
	disallowedRe = regexp.MustCompile(`[^\w\s,.:()%-]`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// Normalize cleans raw OCR output: characters outside word characters,
// whitespace and ",.:()%-" are dropped, whitespace runs collapse to one space.
// It never fails; empty input gives an empty string.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := disallowedRe.ReplaceAllString(raw, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
