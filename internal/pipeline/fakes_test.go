package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"autotube/internal/jobs"
	"autotube/internal/pipeline"
	"autotube/internal/stage"
)

type fakeScript struct {
	err   error
	delay time.Duration
	block bool
	out   *stage.Script
	calls int
	mu    sync.Mutex
}

func (f *fakeScript) Generate(ctx context.Context, req stage.ScriptRequest) (stage.Script, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return stage.Script{}, ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return stage.Script{}, ctx.Err()
		}
	}
	if f.err != nil {
		return stage.Script{}, f.err
	}
	if f.out != nil {
		return *f.out, nil
	}
	half := float64(req.TargetDurationSec) / 2
	return stage.Script{
		Title: "Title for " + req.Topic,
		Beats: []stage.Beat{
			{Index: 0, Text: "Hook about " + req.Topic, DurationSec: half},
			{Index: 1, Text: "Payoff.", DurationSec: half},
		},
	}, nil
}

type fakeNarration struct {
	err      error
	duration float64
	panicMsg string
}

func (f *fakeNarration) Synthesize(_ context.Context, req stage.NarrationRequest) (stage.NarrationTrack, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return stage.NarrationTrack{}, f.err
	}
	path := filepath.Join(req.WorkDir, "narration.wav")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return stage.NarrationTrack{}, err
	}
	return stage.NarrationTrack{AudioPath: path, DurationSec: f.duration}, nil
}

type fakeRender struct {
	err      error
	duration float64
	emptyOut bool
}

func (f *fakeRender) Render(_ context.Context, req stage.RenderRequest) (stage.RenderedVideo, error) {
	if f.err != nil {
		return stage.RenderedVideo{}, f.err
	}
	if f.emptyOut {
		return stage.RenderedVideo{}, nil
	}
	path := filepath.Join(req.WorkDir, "video.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		return stage.RenderedVideo{}, err
	}
	return stage.RenderedVideo{Path: path, DurationSec: f.duration}, nil
}

type fakePublish struct {
	err    error
	skip   string
	mu     sync.Mutex
	videos []string
	titles []string
}

func (f *fakePublish) Publish(_ context.Context, req stage.PublishRequest) (stage.PublishResult, error) {
	f.mu.Lock()
	f.videos = append(f.videos, req.Video.Path)
	f.titles = append(f.titles, req.Title)
	f.mu.Unlock()
	if f.err != nil {
		return stage.PublishResult{}, f.err
	}
	if f.skip != "" {
		return stage.Skip(f.skip), nil
	}
	return stage.PublishResult{URL: "https://videos.example/" + req.JobID}, nil
}

type fakeStages struct {
	script    *fakeScript
	narration *fakeNarration
	render    *fakeRender
	publish   *fakePublish
}

func newFakeStages() *fakeStages {
	return &fakeStages{
		script:    &fakeScript{},
		narration: &fakeNarration{duration: 61.5},
		render:    &fakeRender{duration: 62},
		publish:   &fakePublish{},
	}
}

func (f *fakeStages) stages() pipeline.Stages {
	return pipeline.Stages{Script: f.script, Narration: f.narration, Render: f.render, Publish: f.publish}
}

type wsDir string

func (w wsDir) JobDir(jobID string) (string, error) {
	dir := filepath.Join(string(w), jobID)
	return dir, os.MkdirAll(dir, 0o755)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []jobs.Event
}

func (r *recordingPublisher) Publish(_ context.Context, event jobs.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) snapshot() []jobs.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]jobs.Event(nil), r.events...)
}

type recordingSink struct {
	mu       sync.Mutex
	stages   []string
	finished []string
	skipped  int
	inflight int
}

func (r *recordingSink) StageCompleted(stage string, _ time.Duration, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, fmt.Sprintf("%s:%s", stage, outcome))
}

func (r *recordingSink) JobFinished(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, status)
}

func (r *recordingSink) PublishSkipped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped++
}

func (r *recordingSink) JobsInFlightIncr() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight++
}

func (r *recordingSink) JobsInFlightDecr() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight--
}

var errBoom = errors.New("boom")

func validInput(topic string) jobs.Input {
	return jobs.Input{
		Topic:             topic,
		Tone:              jobs.ToneInformative,
		TargetDurationSec: 60,
		Visibility:        jobs.VisibilityPrivate,
	}
}
