package notifications

import (
	"context"
	"log/slog"

	"autotube/internal/jobs"
	"autotube/internal/logging"
)

// Watch delivers a notification for every terminal event on stream until it
// closes. Delivery failures are logged at debug and otherwise ignored.
func Watch(ctx context.Context, stream <-chan jobs.Event, svc Service, logger *slog.Logger) {
	logger = logging.NewComponentLogger(logger, "notifications")
	for event := range stream {
		if !event.Terminal() {
			continue
		}
		var err error
		switch event.Status {
		case jobs.StatusSuccess:
			err = svc.NotifyJobSucceeded(ctx, event)
		case jobs.StatusFailed:
			err = svc.NotifyJobFailed(ctx, event)
		}
		if err != nil {
			logger.Debug("notification failed",
				logging.String(logging.FieldJobID, event.JobID),
				logging.Error(err),
			)
		}
	}
}
