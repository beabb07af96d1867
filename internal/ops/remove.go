package ops

import (
	"context"

	"github.com/hpungsan/feedq/internal/activity"
)

// RemoveActivityInput contains parameters for the RemoveActivity operation.
type RemoveActivityInput struct {
	Group     string
	User      string
	ForeignID string
}

// RemoveActivityOutput contains the result of the RemoveActivity operation.
type RemoveActivityOutput struct {
	Removed   bool   `json:"removed"`
	FeedID    string `json:"feed_id"`
	ForeignID string `json:"foreign_id"`
}

// RemoveActivity removes every activity with the given foreign id from a feed.
func RemoveActivity(ctx context.Context, d Deps, input RemoveActivityInput) (*RemoveActivityOutput, error) {
	addr, err := ValidateFeed(input.Group, input.User)
	if err != nil {
		return nil, err
	}

	f, err := d.OpenFeed(ctx, addr)
	if err != nil {
		return nil, err
	}

	l := f.Activities()
	if err := l.Destroy(ctx, l.New(activity.Record{activity.FieldForeignID: input.ForeignID})); err != nil {
		return nil, err
	}

	return &RemoveActivityOutput{
		Removed:   true,
		FeedID:    f.ID(),
		ForeignID: input.ForeignID,
	}, nil
}
