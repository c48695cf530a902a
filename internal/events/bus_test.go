package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"autotube/internal/events"
	"autotube/internal/jobs"
)

func TestBusDeliversToEverySubscriber(t *testing.T) {
	bus := events.NewBus(nil)
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	second, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	event := jobs.Event{Type: jobs.EventStatusChanged, JobID: "job-1", Status: jobs.StatusRunning, At: time.Now().UTC()}
	if err := bus.Publish(ctx, event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for i, stream := range []<-chan jobs.Event{first, second} {
		select {
		case got := <-stream:
			if got.JobID != "job-1" || got.Status != jobs.StatusRunning {
				t.Fatalf("subscriber %d got %#v", i, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("subscriber %d timed out", i)
		}
	}
}

func TestBusCloseEndsSubscriptions(t *testing.T) {
	bus := events.NewBus(nil)
	stream, err := bus.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case _, ok := <-stream:
		if ok {
			t.Fatal("expected closed stream")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after bus close")
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

type fakeRedis struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
	fail     bool
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.fail {
		cmd.SetErr(errors.New("connection refused"))
		return cmd
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channel)
	f.payloads = append(f.payloads, message.([]byte))
	cmd.SetVal(1)
	return cmd
}

func TestRedisForwarderPublishesJSON(t *testing.T) {
	client := &fakeRedis{}
	forwarder := events.NewRedisForwarder(client, "", nil)
	forwarder.Forward(context.Background(), jobs.Event{Type: jobs.EventStatusChanged, JobID: "j2", Status: jobs.StatusSuccess})

	if len(client.channels) != 1 || client.channels[0] != events.DefaultRedisChannel {
		t.Fatalf("unexpected channels %v", client.channels)
	}
	var decoded jobs.Event
	if err := json.Unmarshal(client.payloads[0], &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.JobID != "j2" || decoded.Status != jobs.StatusSuccess {
		t.Fatalf("unexpected payload %#v", decoded)
	}
}

func TestRedisForwarderRunForwardsEventsPublishedBeforeStart(t *testing.T) {
	bus := events.NewBus(nil)
	defer bus.Close()
	client := &fakeRedis{}
	forwarder := events.NewRedisForwarder(client, "custom", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := bus.Publish(ctx, jobs.Event{Type: jobs.EventStatusChanged, JobID: "j3", Status: jobs.StatusQueued}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	done := make(chan struct{})
	go func() {
		forwarder.Run(ctx, stream)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		client.mu.Lock()
		n := len(client.payloads)
		client.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("event published before Run was never forwarded")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done
	if client.channels[0] != "custom" {
		t.Fatalf("unexpected channel %q", client.channels[0])
	}
}

func TestRedisForwarderSwallowsErrors(t *testing.T) {
	forwarder := events.NewRedisForwarder(&fakeRedis{fail: true}, "c", nil)
	forwarder.Forward(context.Background(), jobs.Event{JobID: "j4"})
}
