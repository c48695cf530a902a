package script

import (
	"context"
	"fmt"
	"strings"

	"autotube/internal/jobs"
	"autotube/internal/stage"
)

// TemplateGenerator builds a script without any network call. Output is
// deterministic for a given request.
type TemplateGenerator struct{}

// NewTemplateGenerator returns the offline generator.
func NewTemplateGenerator() *TemplateGenerator { return &TemplateGenerator{} }

type toneLines struct {
	hook   string
	body   []string
	outro  string
	visual string
}

var templates = map[jobs.Tone]toneLines{
	jobs.ToneInformative: {
		hook: "Here is what you need to know about %s.",
		body: []string{
			"First, the background: %s did not appear out of nowhere.",
			"The key development is how %s changes the everyday picture.",
			"Experts point to one detail about %s that most coverage misses.",
			"The numbers behind %s tell a clearer story than the headlines.",
		},
		outro:  "That is %s in brief. Follow for the next update.",
		visual: "clean studio backdrop",
	},
	jobs.TonePlayful: {
		hook: "Okay, buckle up, because %s is wilder than it sounds.",
		body: []string{
			"Plot twist number one: %s has a surprisingly chill origin story.",
			"Then %s decided to level up, and honestly, respect.",
			"Fun fact about %s you can drop at your next dinner party.",
			"And yes, %s has memes. Of course it does.",
		},
		outro:  "So that is %s. You are now the smartest person in the group chat.",
		visual: "bright animated shapes",
	},
	jobs.ToneDramatic: {
		hook: "Nobody saw it coming. This is the story of %s.",
		body: []string{
			"It started quietly. Few noticed %s at first.",
			"Then everything changed, and %s was at the center of it.",
			"The stakes around %s have never been higher.",
			"But one question about %s still has no answer.",
		},
		outro:  "The story of %s is far from over.",
		visual: "dark cinematic skyline",
	},
}

// Generate implements stage.ScriptGenerator.
func (TemplateGenerator) Generate(ctx context.Context, req stage.ScriptRequest) (stage.Script, error) {
	if err := ctx.Err(); err != nil {
		return stage.Script{}, err
	}
	topic := strings.Join(strings.Fields(req.Topic), " ")
	tone := jobs.ToneOrDefault(string(req.Tone))
	lines := templates[tone]

	count := BeatCount(req.TargetDurationSec)
	texts := make([]string, 0, count)
	texts = append(texts, fmt.Sprintf(lines.hook, topic))
	for i := 0; len(texts) < count-1; i++ {
		texts = append(texts, fmt.Sprintf(lines.body[i%len(lines.body)], topic))
	}
	texts = append(texts, fmt.Sprintf(lines.outro, topic))

	seconds := apportion(req.TargetDurationSec, len(texts))
	script := stage.Script{Title: TitleCase(topic)}
	for i, text := range texts {
		script.Beats = append(script.Beats, stage.Beat{
			Index:       i,
			Text:        text,
			Caption:     caption(text),
			Visual:      lines.visual,
			DurationSec: seconds[i],
		})
	}
	script.Text = script.JoinBeats()
	return script, nil
}

// apportion splits total seconds over n beats, giving the remainder to the
// earliest beats so the sum is exact.
func apportion(total, n int) []float64 {
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	base, rem := total/n, total%n
	for i := range out {
		out[i] = float64(base)
		if i < rem {
			out[i]++
		}
	}
	return out
}

// caption keeps the first few words of a line for on-screen text.
func caption(text string) string {
	const maxWords = 8
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + "…"
}
