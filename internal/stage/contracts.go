package stage

import (
	"context"

	"autotube/internal/jobs"
)

// ScriptRequest asks for a script aimed at a target duration.
type ScriptRequest struct {
	JobID             string
	WorkDir           string
	Topic             string
	Tone              jobs.Tone
	TargetDurationSec int
}

// NarrationRequest asks for audio of a script.
type NarrationRequest struct {
	JobID   string
	WorkDir string
	Script  Script
	Tone    jobs.Tone
}

// RenderRequest asks for a video assembled from narration and script cues.
type RenderRequest struct {
	JobID     string
	WorkDir   string
	Narration NarrationTrack
	Script    Script
	Tone      jobs.Tone
}

// PublishRequest asks for a rendered video to be uploaded.
type PublishRequest struct {
	JobID       string
	WorkDir     string
	Video       RenderedVideo
	Visibility  jobs.Visibility
	Title       string
	Description string
	Topic       string
}

type ScriptGenerator interface {
	Generate(ctx context.Context, req ScriptRequest) (Script, error)
}

type NarrationSynthesizer interface {
	Synthesize(ctx context.Context, req NarrationRequest) (NarrationTrack, error)
}

type VideoRenderer interface {
	Render(ctx context.Context, req RenderRequest) (RenderedVideo, error)
}

// Publisher uploads a video. Returning a skipped result, or an error marked
// services.ErrNoCredentials or services.ErrRejected, leaves the job successful.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (PublishResult, error)
}

// HealthChecker is implemented by adapters that can report readiness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) Health
}

// CheckHealth reports readiness for any adapter, treating adapters without a
// HealthChecker as ready.
func CheckHealth(ctx context.Context, name Name, adapter any) Health {
	if checker, ok := adapter.(HealthChecker); ok {
		health := checker.HealthCheck(ctx)
		if health.Name == "" {
			health.Name = string(name)
		}
		return health
	}
	if adapter == nil {
		return Unhealthy(string(name), "not configured")
	}
	return Healthy(string(name))
}
