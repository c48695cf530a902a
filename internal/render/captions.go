package render

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"autotube/internal/stage"
)

// Cue is one caption interval.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// BuildCues lays beats end to end. When the realized narration length is
// known, beat timings are stretched to fit it.
func BuildCues(script stage.Script, narrationSec float64) []Cue {
	planned := script.TotalSeconds()
	scale := 1.0
	if planned > 0 && narrationSec > 0 && !math.IsNaN(narrationSec) {
		scale = narrationSec / planned
	}
	cues := make([]Cue, 0, len(script.Beats))
	var cursor float64
	for _, beat := range script.Beats {
		text := strings.TrimSpace(beat.Caption)
		if text == "" {
			text = strings.TrimSpace(beat.Text)
		}
		start := cursor
		cursor += beat.DurationSec * scale
		if text == "" || beat.DurationSec <= 0 {
			continue
		}
		cues = append(cues, Cue{Start: seconds(start), End: seconds(cursor), Text: text})
	}
	return cues
}

// WriteSRT renders cues in SubRip format.
func WriteSRT(w io.Writer, cues []Cue) error {
	for i, cue := range cues {
		if _, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n", i+1, srtTimestamp(cue.Start), srtTimestamp(cue.End), wrapCaption(cue.Text, 32)); err != nil {
			return err
		}
	}
	return nil
}

func srtTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3_600_000, (ms/60_000)%60, (ms/1000)%60, ms%1000)
}

// wrapCaption breaks text into lines of at most width runes, on word
// boundaries.
func wrapCaption(text string, width int) string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && len([]rune(line.String()))+1+len([]rune(word)) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
