package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"autotube/internal/jobs"
	"autotube/internal/logging"
)

// Topic is the watermill topic carrying job events.
const Topic = "job.events"

// Publisher is the write side used by the pipeline.
type Publisher interface {
	Publish(ctx context.Context, event jobs.Event) error
}

// Bus is an in-process event bus.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger

	closeOnce sync.Once
}

// NewBus constructs a bus; logger may be nil.
func NewBus(logger *slog.Logger) *Bus {
	logger = logging.NewComponentLogger(logger, "events")
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NewSlogLogger(logger)),
		logger: logger,
	}
}

// Publish encodes event as JSON and hands it to every current subscriber.
func (b *Bus) Publish(ctx context.Context, event jobs.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode job event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("job_id", event.JobID)
	msg.Metadata.Set("type", string(event.Type))
	if err := b.pubsub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("publish job event: %w", err)
	}
	return nil
}

// Subscribe returns a channel of decoded events that closes when ctx ends or
// the bus closes.
func (b *Bus) Subscribe(ctx context.Context) (<-chan jobs.Event, error) {
	messages, err := b.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe job events: %w", err)
	}
	out := make(chan jobs.Event, 16)
	go func() {
		defer close(out)
		for msg := range messages {
			var event jobs.Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.logger.Debug("dropping undecodable job event", logging.Error(err))
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close stops the bus and closes every subscription.
func (b *Bus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		err = b.pubsub.Close()
	})
	return err
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, jobs.Event) error { return nil }
