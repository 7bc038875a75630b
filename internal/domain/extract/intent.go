package extract

import (
	"regexp"
	"strings"
)

var intentPattern = regexp.MustCompile(`(?i)\{\s*"intent"\s*:\s*"(advance|clarify)"\s*\}`)

// ExtractIntent finds an inline {"intent": "advance"|"clarify"} marker.
// It returns the lower-cased intent and the text with the marker removed.
// When no marker is present ok is false and text is returned unchanged.
func ExtractIntent(text string) (intent, cleaned string, ok bool) {
	loc := intentPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return "", text, false
	}
	return strings.ToLower(text[loc[2]:loc[3]]), strip(text, loc[0], loc[1]), true
}
