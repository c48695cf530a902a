package stage

import "strings"

// Beat is one paced segment of a script.
type Beat struct {
	Index       int     `json:"index"`
	Text        string  `json:"text"`
	Caption     string  `json:"caption,omitempty"`
	Visual      string  `json:"visual,omitempty"`
	DurationSec float64 `json:"durationSec"`
}

// Script is the narration text with its beat breakdown.
type Script struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Beats []Beat `json:"beats"`
}

// TotalSeconds sums the planned beat durations.
func (s Script) TotalSeconds() float64 {
	var total float64
	for _, beat := range s.Beats {
		total += beat.DurationSec
	}
	return total
}

// JoinBeats rebuilds narration text from beats when Text is empty.
func (s Script) JoinBeats() string {
	parts := make([]string, 0, len(s.Beats))
	for _, beat := range s.Beats {
		if text := strings.TrimSpace(beat.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// NarrationTrack points at synthesized audio.
type NarrationTrack struct {
	AudioPath   string  `json:"audioPath"`
	DurationSec float64 `json:"durationSec"`
	Voice       string  `json:"voice,omitempty"`
}

// RenderedVideo points at the assembled video file.
type RenderedVideo struct {
	Path        string  `json:"path"`
	DurationSec float64 `json:"durationSec"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
}

// PublishResult is the outcome of the optional publish step.
type PublishResult struct {
	URL        string `json:"url,omitempty"`
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skipReason,omitempty"`
}

// Skip builds a skipped publish result.
func Skip(reason string) PublishResult {
	return PublishResult{Skipped: true, SkipReason: reason}
}
