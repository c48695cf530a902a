package pipeline

import (
	"fmt"
	"math"
	"strings"

	"autotube/internal/services"
	"autotube/internal/stage"
)

// DefaultDurationTolerance accepts scripts whose planned length is within
// 25% of the target.
const DefaultDurationTolerance = 0.25

// ValidateScript applies the minimal checks a script must pass before any
// audio is synthesized: it has text, at least one beat, positive beat
// durations, and a total within tolerance of the target.
func ValidateScript(script stage.Script, targetSec int, tolerance float64) error {
	if tolerance <= 0 {
		tolerance = DefaultDurationTolerance
	}
	if strings.TrimSpace(script.Text) == "" && strings.TrimSpace(script.JoinBeats()) == "" {
		return invalidScript("script text is empty")
	}
	if len(script.Beats) == 0 {
		return invalidScript("script has no beats")
	}
	for _, beat := range script.Beats {
		if beat.DurationSec <= 0 || math.IsNaN(beat.DurationSec) {
			return invalidScript(fmt.Sprintf("beat %d has no duration", beat.Index))
		}
	}
	if targetSec > 0 {
		total := script.TotalSeconds()
		drift := math.Abs(total-float64(targetSec)) / float64(targetSec)
		if drift > tolerance {
			return invalidScript(fmt.Sprintf("script runs %.0fs, more than %.0f%% away from the %ds target",
				total, tolerance*100, targetSec))
		}
	}
	return nil
}

func invalidScript(message string) error {
	return services.Wrap(services.ErrValidation, string(stage.NameScript), "validate", message, nil)
}
