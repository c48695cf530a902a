package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"autotube/internal/jobs"
	"autotube/internal/pipeline"
	"autotube/internal/services"
	"autotube/internal/stage"
)

type serviceEnv struct {
	fakes   *fakeStages
	store   *jobs.MemoryStore
	events  *recordingPublisher
	sink    *recordingSink
	svc     *pipeline.Service
	workDir string
}

func newServiceEnv(t *testing.T, fakes *fakeStages) *serviceEnv {
	t.Helper()
	workDir := t.TempDir()
	exec, err := pipeline.NewExecutor(fakes.stages(), pipeline.Options{Workspace: wsDir(workDir)})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	store := jobs.NewMemoryStore()
	events := &recordingPublisher{}
	sink := &recordingSink{}
	svc, err := pipeline.NewService(store, exec, pipeline.WithEvents(events), pipeline.WithMetrics(sink))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })
	return &serviceEnv{fakes: fakes, store: store, events: events, sink: sink, svc: svc, workDir: workDir}
}

func scenarioInput() jobs.Input {
	return jobs.Input{
		Topic:             "AI news of the week",
		Tone:              jobs.ToneInformative,
		TargetDurationSec: 180,
		Visibility:        jobs.VisibilityUnlisted,
	}
}

func TestScenarioAllStagesSucceed(t *testing.T) {
	env := newServiceEnv(t, newFakeStages())

	job, err := env.svc.Submit(context.Background(), scenarioInput())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != jobs.StatusSuccess {
		t.Fatalf("status = %s", job.Status)
	}
	if job.Result == nil || job.Result.VideoPath == "" || job.Result.PublishedURL == "" {
		t.Fatalf("result = %+v", job.Result)
	}
	if job.Failure != nil {
		t.Fatalf("unexpected failure %+v", job.Failure)
	}
	if job.FinishedAt == nil {
		t.Fatal("finishedAt not set")
	}

	stored, err := env.store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != jobs.StatusSuccess || stored.Result.PublishedURL != job.Result.PublishedURL {
		t.Fatalf("stored job = %+v", stored)
	}
}

func TestScenarioNarrationFails(t *testing.T) {
	fakes := newFakeStages()
	fakes.narration.err = errors.New("synthesis quota exceeded")
	env := newServiceEnv(t, fakes)

	job, err := env.svc.Submit(context.Background(), scenarioInput())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != jobs.StatusFailed {
		t.Fatalf("status = %s", job.Status)
	}
	if job.Failure == nil || job.Failure.Message != "synthesis quota exceeded" || job.Failure.Stage != "narration" {
		t.Fatalf("failure = %+v", job.Failure)
	}
	if job.Result != nil {
		t.Fatalf("unexpected result %+v", job.Result)
	}
	if _, err := os.Stat(filepath.Join(env.workDir, job.ID, "video.mp4")); !os.IsNotExist(err) {
		t.Fatalf("rendered video exists after narration failure: %v", err)
	}
}

func TestScenarioPublisherWithoutCredentials(t *testing.T) {
	fakes := newFakeStages()
	fakes.publish.err = services.Wrap(services.ErrNoCredentials, "publish", "", "YouTube credentials missing", nil)
	env := newServiceEnv(t, fakes)

	job, err := env.svc.Submit(context.Background(), scenarioInput())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != jobs.StatusSuccess {
		t.Fatalf("status = %s", job.Status)
	}
	if job.Result.PublishedURL != "" || job.Result.Published() {
		t.Fatalf("published url = %q", job.Result.PublishedURL)
	}
	if job.Result.VideoPath == "" {
		t.Fatal("video path missing")
	}
	if env.sink.skipped != 1 {
		t.Fatalf("publish skipped count = %d", env.sink.skipped)
	}
}

func TestTerminalStateIsExclusive(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	injectors := []func(*fakeStages){
		func(f *fakeStages) { f.script.err = errBoom },
		func(f *fakeStages) { f.narration.err = errBoom },
		func(f *fakeStages) { f.render.err = errBoom },
		func(f *fakeStages) { f.publish.err = errBoom },
		func(*fakeStages) {},
	}
	for i := 0; i < 40; i++ {
		pick := rng.Intn(len(injectors))
		t.Run(fmt.Sprintf("run%d_inject%d", i, pick), func(t *testing.T) {
			fakes := newFakeStages()
			injectors[pick](fakes)
			env := newServiceEnv(t, fakes)

			job, err := env.svc.Submit(context.Background(), validInput("random failure"))
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			switch job.Status {
			case jobs.StatusSuccess:
				if job.Result == nil || job.Failure != nil {
					t.Fatalf("success job has result=%v failure=%v", job.Result, job.Failure)
				}
			case jobs.StatusFailed:
				if job.Result != nil || job.Failure == nil || job.Failure.Message == "" {
					t.Fatalf("failed job has result=%v failure=%v", job.Result, job.Failure)
				}
			default:
				t.Fatalf("job left in %s", job.Status)
			}
			wantFailed := pick < 4
			if wantFailed != (job.Status == jobs.StatusFailed) {
				t.Fatalf("status = %s for injector %d", job.Status, pick)
			}
		})
	}
}

func TestListOrderIgnoresCompletionOrder(t *testing.T) {
	fakes := newFakeStages()
	gate := &switchingScript{first: &fakeScript{delay: 80 * time.Millisecond}, rest: fakes.script}
	exec, err := pipeline.NewExecutor(pipeline.Stages{
		Script: gate, Narration: fakes.narration, Render: fakes.render, Publish: fakes.publish,
	}, pipeline.Options{Workspace: wsDir(t.TempDir())})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	store := jobs.NewMemoryStore()
	svc, err := pipeline.NewService(store, exec)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	first, err := svc.SubmitAsync(ctx, validInput("first created"))
	if err != nil {
		t.Fatalf("SubmitAsync: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	second, err := svc.Submit(ctx, validInput("second created"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got, _ := store.Get(ctx, first.ID); got.Status.IsTerminal() {
		t.Fatal("first job finished before the second")
	}
	svc.Wait()

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("list order = %v", ids(list))
	}
	if list[0].CreatedAt.After(list[1].CreatedAt) {
		t.Fatal("createdAt order violated")
	}
	for _, job := range list {
		if job.Status != jobs.StatusSuccess {
			t.Fatalf("job %s status %s", job.ID, job.Status)
		}
	}
}

// switchingScript delays only the first call.
type switchingScript struct {
	mu    sync.Mutex
	used  bool
	first stage.ScriptGenerator
	rest  stage.ScriptGenerator
}

func (s *switchingScript) Generate(ctx context.Context, req stage.ScriptRequest) (stage.Script, error) {
	s.mu.Lock()
	gen := s.rest
	if !s.used {
		s.used = true
		gen = s.first
	}
	s.mu.Unlock()
	return gen.Generate(ctx, req)
}

func ids(list []jobs.Job) []string {
	out := make([]string, len(list))
	for i, job := range list {
		out[i] = job.ID
	}
	return out
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	env := newServiceEnv(t, newFakeStages())
	input := validInput("ok topic")
	input.TargetDurationSec = 29

	if _, err := env.svc.Submit(context.Background(), input); err == nil {
		t.Fatal("expected validation error")
	}
	list, _ := env.store.List(context.Background())
	if len(list) != 0 {
		t.Fatalf("job created for invalid input: %v", ids(list))
	}
}

func TestSubmitEmitsLifecycleEvents(t *testing.T) {
	env := newServiceEnv(t, newFakeStages())

	job, err := env.svc.Submit(context.Background(), validInput("events"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	got := env.events.snapshot()
	var statuses []jobs.Status
	stageEvents := 0
	for _, event := range got {
		if event.JobID != job.ID {
			t.Fatalf("event for unexpected job %s", event.JobID)
		}
		switch event.Type {
		case jobs.EventStatusChanged:
			statuses = append(statuses, event.Status)
		case jobs.EventStageStarted, jobs.EventStageFinished:
			stageEvents++
		}
	}
	want := []jobs.Status{jobs.StatusQueued, jobs.StatusRunning, jobs.StatusSuccess}
	if fmt.Sprint(statuses) != fmt.Sprint(want) {
		t.Fatalf("statuses = %v, want %v", statuses, want)
	}
	if stageEvents != 8 {
		t.Fatalf("stage events = %d, want 8", stageEvents)
	}
	if !got[len(got)-1].Terminal() || got[len(got)-1].Result == nil {
		t.Fatalf("last event = %+v", got[len(got)-1])
	}
	if fmt.Sprint(env.sink.finished) != "[success]" || env.sink.inflight != 0 {
		t.Fatalf("sink finished=%v inflight=%d", env.sink.finished, env.sink.inflight)
	}
}

func TestShutdownCancelsBackgroundJobs(t *testing.T) {
	fakes := newFakeStages()
	fakes.script.block = true
	env := newServiceEnv(t, fakes)
	ctx := context.Background()

	job, err := env.svc.SubmitAsync(ctx, validInput("blocked"))
	if err != nil {
		t.Fatalf("SubmitAsync: %v", err)
	}
	waitForStatus(t, env.store, job.ID, jobs.StatusRunning)

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := env.svc.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	final, err := env.store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if final.Status != jobs.StatusFailed || final.Failure.Stage != "script" {
		t.Fatalf("final = %+v", final)
	}
	if _, err := env.svc.SubmitAsync(ctx, validInput("late")); !errors.Is(err, pipeline.ErrShuttingDown) {
		t.Fatalf("expected ErrShuttingDown, got %v", err)
	}
}

func TestSubmitCanceledContextFailsJob(t *testing.T) {
	env := newServiceEnv(t, newFakeStages())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job, err := env.svc.Submit(ctx, validInput("canceled"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != jobs.StatusFailed || job.Failure.Message != "canceled before script stage: context canceled" {
		t.Fatalf("job = %+v", job)
	}
}

func waitForStatus(t *testing.T, store jobs.Store, id string, want jobs.Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.Get(context.Background(), id)
		if err == nil && job.Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s", id, want)
}

var errDiskIO = errors.New("disk I/O error")

// faultyStore fails the next writes that move a job into the listed statuses.
type faultyStore struct {
	*jobs.MemoryStore
	mu    sync.Mutex
	fails map[jobs.Status]int
}

func (s *faultyStore) Update(ctx context.Context, id string, patch jobs.Patch) (jobs.Job, error) {
	if patch.Status != nil {
		s.mu.Lock()
		n := s.fails[*patch.Status]
		if n > 0 {
			s.fails[*patch.Status] = n - 1
		}
		s.mu.Unlock()
		if n > 0 {
			return jobs.Job{}, errDiskIO
		}
	}
	return s.MemoryStore.Update(ctx, id, patch)
}

func newFaultyService(t *testing.T, fakes *fakeStages, fails map[jobs.Status]int) (*pipeline.Service, *faultyStore) {
	t.Helper()
	exec, err := pipeline.NewExecutor(fakes.stages(), pipeline.Options{Workspace: wsDir(t.TempDir())})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	store := &faultyStore{MemoryStore: jobs.NewMemoryStore(), fails: fails}
	svc, err := pipeline.NewService(store, exec)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })
	return svc, store
}

func TestSubmitRecordsFailureWhenOutcomeWriteFails(t *testing.T) {
	svc, store := newFaultyService(t, newFakeStages(), map[jobs.Status]int{jobs.StatusSuccess: 1})

	job, err := svc.Submit(context.Background(), scenarioInput())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != jobs.StatusFailed || job.Result != nil {
		t.Fatalf("job = %+v", job)
	}
	if job.Failure.Message != "record job outcome: disk I/O error" {
		t.Fatalf("failure message = %q", job.Failure.Message)
	}
	stored, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != jobs.StatusFailed {
		t.Fatalf("stored status = %s", stored.Status)
	}
}

func TestSubmitRecordsFailureWhenRunningMarkFails(t *testing.T) {
	fakes := newFakeStages()
	svc, store := newFaultyService(t, fakes, map[jobs.Status]int{jobs.StatusRunning: 1})

	job, err := svc.Submit(context.Background(), scenarioInput())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != jobs.StatusFailed || job.Failure.Stage != string(stage.NamePrepare) {
		t.Fatalf("job = %+v", job)
	}
	if job.Failure.Message != "mark job running: disk I/O error" {
		t.Fatalf("failure message = %q", job.Failure.Message)
	}
	if fakes.script.calls != 0 {
		t.Fatal("script ran although the job was never marked running")
	}
	stored, _ := store.Get(context.Background(), job.ID)
	if stored.Status != jobs.StatusFailed {
		t.Fatalf("stored status = %s", stored.Status)
	}
}

func TestSubmitReportsStoreThatCannotRecordAnyOutcome(t *testing.T) {
	svc, store := newFaultyService(t, newFakeStages(), map[jobs.Status]int{
		jobs.StatusSuccess: 1,
		jobs.StatusFailed:  1,
	})

	job, err := svc.Submit(context.Background(), scenarioInput())
	if !errors.Is(err, errDiskIO) {
		t.Fatalf("expected store error, got %v", err)
	}
	stored, _ := store.Get(context.Background(), job.ID)
	if stored.Status.IsTerminal() {
		t.Fatalf("store accepted no terminal write, yet status = %s", stored.Status)
	}
}

func TestShutdownCancelsSynchronousJobs(t *testing.T) {
	fakes := newFakeStages()
	fakes.script.block = true
	env := newServiceEnv(t, fakes)
	ctx := context.Background()

	type submitted struct {
		job jobs.Job
		err error
	}
	done := make(chan submitted, 1)
	go func() {
		job, err := env.svc.Submit(ctx, validInput("blocked"))
		done <- submitted{job, err}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		list, _ := env.store.List(ctx)
		if len(list) == 1 && list[0].Status == jobs.StatusRunning {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job never started running")
		}
		time.Sleep(5 * time.Millisecond)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := env.svc.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	got := <-done
	if got.err != nil {
		t.Fatalf("Submit: %v", got.err)
	}
	if got.job.Status != jobs.StatusFailed || got.job.Failure.Stage != "script" {
		t.Fatalf("job = %+v", got.job)
	}
}
