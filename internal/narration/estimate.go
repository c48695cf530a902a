package narration

import (
	"context"
	"path/filepath"

	"autotube/internal/script"
	"autotube/internal/services"
	"autotube/internal/stage"
)

// EstimateFileName is the silent track written into the job directory.
const EstimateFileName = "narration.wav"

// EstimateSynthesizer writes a silent track as long as the script's planned
// reading time. It keeps rendering testable without a speech engine.
type EstimateSynthesizer struct {
	wordsPerMinute int
}

// NewEstimateSynthesizer returns an offline synthesizer.
func NewEstimateSynthesizer(wordsPerMinute int) *EstimateSynthesizer {
	return &EstimateSynthesizer{wordsPerMinute: wordsPerMinute}
}

// Synthesize implements stage.NarrationSynthesizer.
func (e *EstimateSynthesizer) Synthesize(ctx context.Context, req stage.NarrationRequest) (stage.NarrationTrack, error) {
	if err := ctx.Err(); err != nil {
		return stage.NarrationTrack{}, err
	}
	seconds := req.Script.TotalSeconds()
	if seconds <= 0 {
		seconds = script.SpeakingSeconds(req.Script.Text, e.wordsPerMinute)
	}
	path := filepath.Join(req.WorkDir, EstimateFileName)
	if err := writeSilentWAV(path, seconds); err != nil {
		return stage.NarrationTrack{}, services.Wrap(services.ErrExternalTool, string(stage.NameNarration), "write silent track", "", err)
	}
	return stage.NarrationTrack{AudioPath: path, DurationSec: seconds, Voice: "silent"}, nil
}
