package script

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultWordsPerMinute is a conversational narration pace.
const DefaultWordsPerMinute = 150

// SpeakingSeconds estimates how long text takes to read aloud.
func SpeakingSeconds(text string, wordsPerMinute int) float64 {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}
	words := len(strings.Fields(text))
	return float64(words) * 60 / float64(wordsPerMinute)
}

// WordBudget is the number of words that fill seconds at wordsPerMinute.
func WordBudget(seconds, wordsPerMinute int) int {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}
	return seconds * wordsPerMinute / 60
}

// BeatCount picks how many beats a script of seconds should have: roughly
// one every fifteen seconds, at least three and at most twelve.
func BeatCount(seconds int) int {
	n := seconds / 15
	return min(max(n, 3), 12)
}

// TitleCase formats a topic as a video title.
func TitleCase(topic string) string {
	return cases.Title(language.English, cases.NoLower).String(strings.Join(strings.Fields(topic), " "))
}
