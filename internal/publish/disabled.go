package publish

import (
	"context"

	"autotube/internal/stage"
)

// DisabledReason is reported when publishing is turned off.
const DisabledReason = "publishing disabled"

// Disabled never uploads.
type Disabled struct{}

func (Disabled) Publish(context.Context, stage.PublishRequest) (stage.PublishResult, error) {
	return stage.Skip(DisabledReason), nil
}
