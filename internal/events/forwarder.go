package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"autotube/internal/jobs"
	"autotube/internal/logging"
)

// DefaultRedisChannel is used when no channel is configured.
const DefaultRedisChannel = "autotube:jobs"

// RedisPublisher is the subset of *redis.Client the forwarder needs.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisForwarder republishes bus events on a Redis pub/sub channel so other
// processes can follow job progress.
type RedisForwarder struct {
	client  RedisPublisher
	channel string
	logger  *slog.Logger
}

// NewRedisForwarder builds a forwarder; an empty channel selects the default.
func NewRedisForwarder(client RedisPublisher, channel string, logger *slog.Logger) *RedisForwarder {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisForwarder{
		client:  client,
		channel: channel,
		logger:  logging.NewComponentLogger(logger, "events.redis"),
	}
}

// NewRedisClient opens a client for addr; it does not dial until first use.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// Run forwards events from stream until it closes. Subscribe before starting
// Run so no event published in between is missed. Publish failures are
// logged and never stop forwarding.
func (f *RedisForwarder) Run(ctx context.Context, stream <-chan jobs.Event) {
	for event := range stream {
		f.Forward(ctx, event)
	}
}

// Forward publishes a single event.
func (f *RedisForwarder) Forward(ctx context.Context, event jobs.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		f.logger.Debug("encode event for redis failed", logging.Error(err))
		return
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		f.logger.Debug("redis publish failed",
			logging.String(logging.FieldJobID, event.JobID),
			logging.String("channel", f.channel),
			logging.Error(err),
		)
	}
}
