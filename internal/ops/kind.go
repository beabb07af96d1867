package ops

import (
	"context"

	"github.com/hpungsan/feedq/internal/db"
	"github.com/hpungsan/feedq/internal/feed"
)

// SetFeedKindInput contains parameters for the SetFeedKind operation.
type SetFeedKindInput struct {
	Group string
	User  string
	Kind  string
}

// SetFeedKindOutput contains the result of the SetFeedKind operation.
type SetFeedKindOutput struct {
	FeedID string    `json:"feed_id"`
	Kind   feed.Kind `json:"kind"`
}

// SetFeedKind records whether a feed is flat, aggregated or notification.
func SetFeedKind(ctx context.Context, d Deps, input SetFeedKindInput) (*SetFeedKindOutput, error) {
	addr, err := ValidateFeed(input.Group, input.User)
	if err != nil {
		return nil, err
	}

	kind, err := feed.ParseKind(input.Kind)
	if err != nil {
		return nil, err
	}

	if err := db.SetFeedKind(ctx, d.DB, addr.ID(), string(kind)); err != nil {
		return nil, err
	}

	return &SetFeedKindOutput{FeedID: addr.ID(), Kind: kind}, nil
}
