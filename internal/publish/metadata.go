package publish

import (
	"strings"
	"unicode/utf8"

	"autotube/internal/script"
)

const (
	maxTitleRunes       = 100
	maxDescriptionBytes = 5000
)

// VideoTitle picks and trims the upload title. Angle brackets are rejected by
// the platform, so they are dropped.
func VideoTitle(title, topic string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = script.TitleCase(topic)
	}
	title = stripAngles(title)
	if utf8.RuneCountInString(title) > maxTitleRunes {
		runes := []rune(title)
		title = strings.TrimSpace(string(runes[:maxTitleRunes-1])) + "…"
	}
	return title
}

// VideoDescription trims text to the platform's byte limit on a rune
// boundary.
func VideoDescription(text string) string {
	text = stripAngles(strings.TrimSpace(text))
	if len(text) <= maxDescriptionBytes {
		return text
	}
	cut := maxDescriptionBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func stripAngles(s string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(s)
}
