package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"autotube/internal/jobs"
	"autotube/internal/logging"
	"autotube/internal/services"
	"autotube/internal/services/llm"
	"autotube/internal/stage"
)

// Completer is the chat-completion capability the generator needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMGenerator writes scripts with a chat model.
type LLMGenerator struct {
	client         Completer
	wordsPerMinute int
	logger         *slog.Logger
}

// NewLLMGenerator wraps client. wordsPerMinute <= 0 uses the default pace.
func NewLLMGenerator(client Completer, wordsPerMinute int, logger *slog.Logger) *LLMGenerator {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}
	return &LLMGenerator{
		client:         client,
		wordsPerMinute: wordsPerMinute,
		logger:         logging.NewComponentLogger(logger, "script"),
	}
}

type llmScript struct {
	Title string    `json:"title"`
	Beats []llmBeat `json:"beats"`
}

type llmBeat struct {
	Text    string  `json:"text"`
	Caption string  `json:"caption"`
	Visual  string  `json:"visual"`
	Seconds float64 `json:"seconds"`
}

var tonePrompts = map[jobs.Tone]string{
	jobs.ToneInformative: "Write in a clear, factual voice. Lead with the most useful fact and keep claims concrete.",
	jobs.TonePlayful:     "Write in a light, witty voice with playful asides, but keep every fact accurate.",
	jobs.ToneDramatic:    "Write in a suspenseful, cinematic voice that builds tension toward a reveal.",
}

const systemPrompt = `You write narration for vertical short-form videos.
Respond with JSON only, shaped as:
{"title": string, "beats": [{"text": string, "caption": string, "visual": string, "seconds": number}]}
"text" is spoken narration. "caption" is at most eight words shown on screen.
"visual" describes the background shot. "seconds" is how long the beat is on screen.`

// Generate implements stage.ScriptGenerator.
func (g *LLMGenerator) Generate(ctx context.Context, req stage.ScriptRequest) (stage.Script, error) {
	if g.client == nil {
		return stage.Script{}, services.Wrap(services.ErrConfiguration, string(stage.NameScript), "generate", "llm client not configured", nil)
	}
	tone := jobs.ToneOrDefault(string(req.Tone))
	system := systemPrompt + "\n" + tonePrompts[tone]
	user := fmt.Sprintf(
		"Topic: %s\nTarget length: %d seconds (about %d words).\nUse %d beats whose seconds add up to %d.",
		req.Topic, req.TargetDurationSec, WordBudget(req.TargetDurationSec, g.wordsPerMinute),
		BeatCount(req.TargetDurationSec), req.TargetDurationSec,
	)

	content, err := g.client.CompleteJSON(ctx, system, user)
	if err != nil {
		return stage.Script{}, classifyCompletionError(err)
	}
	var decoded llmScript
	if err := llm.DecodeJSON(content, &decoded); err != nil {
		return stage.Script{}, services.Wrap(services.ErrValidation, string(stage.NameScript), "decode", "model returned malformed script", err)
	}

	script := g.toScript(decoded, req.Topic)
	logging.WithContext(ctx, g.logger).Debug("llm script generated",
		logging.Int("beats", len(script.Beats)),
		logging.Float64("planned_seconds", script.TotalSeconds()),
	)
	return script, nil
}

func (g *LLMGenerator) toScript(decoded llmScript, topic string) stage.Script {
	script := stage.Script{Title: strings.TrimSpace(decoded.Title)}
	if script.Title == "" {
		script.Title = TitleCase(topic)
	}
	for _, beat := range decoded.Beats {
		text := strings.TrimSpace(beat.Text)
		if text == "" {
			continue
		}
		seconds := beat.Seconds
		if seconds <= 0 {
			seconds = SpeakingSeconds(text, g.wordsPerMinute)
		}
		script.Beats = append(script.Beats, stage.Beat{
			Index:       len(script.Beats),
			Text:        text,
			Caption:     strings.TrimSpace(beat.Caption),
			Visual:      strings.TrimSpace(beat.Visual),
			DurationSec: seconds,
		})
	}
	script.Text = script.JoinBeats()
	return script
}

func classifyCompletionError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, string(stage.NameScript), "complete", "llm credentials rejected", err)
		case http.StatusTooManyRequests, http.StatusPaymentRequired:
			return services.Wrap(services.ErrExternalTool, string(stage.NameScript), "complete", "llm quota exceeded", err)
		}
	}
	return services.Wrap(services.ErrExternalTool, string(stage.NameScript), "complete", "", err)
}

// HealthCheck implements stage.HealthChecker.
func (g *LLMGenerator) HealthCheck(ctx context.Context) stage.Health {
	name := string(stage.NameScript)
	checker, ok := g.client.(interface{ HealthCheck(context.Context) error })
	if !ok {
		return stage.Healthy(name)
	}
	if err := checker.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}
