package jobs

import (
	"strings"
	"unicode/utf8"
)

const (
	MinTopicLength           = 3
	MinTargetDurationSec     = 30
	MaxTargetDurationSec     = 600
	DefaultTargetDurationSec = 180
	DefaultTone              = ToneInformative
	DefaultVisibility        = VisibilityUnlisted
)

// RawInput is an untrusted request as decoded from a caller. Empty strings
// and a nil duration select defaults.
type RawInput struct {
	Topic             string `json:"topic"`
	Tone              string `json:"tone,omitempty"`
	TargetDurationSec *int   `json:"targetDurationSec,omitempty"`
	Visibility        string `json:"visibility,omitempty"`
}

// NormalizeInput applies defaults and bounds, returning every problem found.
func NormalizeInput(raw RawInput) (Input, error) {
	var verr ValidationError
	input := Input{
		Topic:             strings.TrimSpace(raw.Topic),
		Tone:              DefaultTone,
		TargetDurationSec: DefaultTargetDurationSec,
		Visibility:        DefaultVisibility,
	}

	if utf8.RuneCountInString(input.Topic) < MinTopicLength {
		verr.add("topic", "must be at least 3 characters")
	}
	if strings.TrimSpace(raw.Tone) != "" {
		tone, ok := ParseTone(raw.Tone)
		if !ok {
			verr.add("tone", "must be one of informative, playful, dramatic")
		}
		input.Tone = tone
	}
	if raw.TargetDurationSec != nil {
		input.TargetDurationSec = *raw.TargetDurationSec
		if !DurationInRange(input.TargetDurationSec) {
			verr.add("targetDurationSec", "must be between 30 and 600")
		}
	}
	if strings.TrimSpace(raw.Visibility) != "" {
		visibility, ok := ParseVisibility(raw.Visibility)
		if !ok {
			verr.add("visibility", "must be one of public, unlisted, private")
		}
		input.Visibility = visibility
	}

	if len(verr.Issues) > 0 {
		return Input{}, &verr
	}
	return input, nil
}

// Validate re-checks an Input built outside NormalizeInput.
func (in Input) Validate() error {
	duration := in.TargetDurationSec
	_, err := NormalizeInput(RawInput{
		Topic:             in.Topic,
		Tone:              string(in.Tone),
		TargetDurationSec: &duration,
		Visibility:        string(in.Visibility),
	})
	return err
}

// DurationInRange reports whether seconds is an accepted target duration.
func DurationInRange(seconds int) bool {
	return seconds >= MinTargetDurationSec && seconds <= MaxTargetDurationSec
}

// ParseTone converts a string into a known Tone.
func ParseTone(value string) (Tone, bool) {
	switch tone := Tone(strings.ToLower(strings.TrimSpace(value))); tone {
	case ToneInformative, TonePlayful, ToneDramatic:
		return tone, true
	default:
		return "", false
	}
}

// ToneOrDefault maps unrecognized tones to the default tone.
func ToneOrDefault(value string) Tone {
	if tone, ok := ParseTone(value); ok {
		return tone
	}
	return DefaultTone
}

// ParseVisibility converts a string into a known Visibility.
func ParseVisibility(value string) (Visibility, bool) {
	switch visibility := Visibility(strings.ToLower(strings.TrimSpace(value))); visibility {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPrivate:
		return visibility, true
	default:
		return "", false
	}
}
