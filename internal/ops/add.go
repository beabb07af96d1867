package ops

import (
	"context"

	"go.uber.org/zap"

	"github.com/hpungsan/feedq/internal/activity"
)

// AddActivityInput contains parameters for the AddActivity operation.
type AddActivityInput struct {
	Group    string
	User     string
	Activity map[string]any
}

// AddActivityOutput contains the result of the AddActivity operation.
type AddActivityOutput struct {
	FeedID   string             `json:"feed_id"`
	Activity *activity.Activity `json:"activity"`
}

// AddActivity stores an activity in a feed.
func AddActivity(ctx context.Context, d Deps, input AddActivityInput) (*AddActivityOutput, error) {
	addr, err := ValidateFeed(input.Group, input.User)
	if err != nil {
		return nil, err
	}

	f, err := d.OpenFeed(ctx, addr)
	if err != nil {
		return nil, err
	}

	l := f.Activities()
	stored, err := l.Add(ctx, l.New(input.Activity))
	if err != nil {
		return nil, err
	}

	d.logger().Debug("activity added",
		zap.String("feed_id", f.ID()),
		zap.String("id", stored.ID()),
	)

	return &AddActivityOutput{FeedID: f.ID(), Activity: stored}, nil
}
