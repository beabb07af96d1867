package ops

import (
	"context"

	"github.com/hpungsan/feedq/internal/errors"
)

// UpdateActivityInput contains parameters for the UpdateActivity operation.
// The activity is addressed by its foreign_id and time, in every feed.
type UpdateActivityInput struct {
	Group    string
	User     string
	Activity map[string]any
}

// UpdateActivityOutput contains the result of the UpdateActivity operation.
type UpdateActivityOutput struct {
	Updated   bool   `json:"updated"`
	ForeignID string `json:"foreign_id"`
}

// UpdateActivity replaces an activity's fields.
func UpdateActivity(ctx context.Context, d Deps, input UpdateActivityInput) (*UpdateActivityOutput, error) {
	addr, err := ValidateFeed(input.Group, input.User)
	if err != nil {
		return nil, err
	}

	f, err := d.OpenFeed(ctx, addr)
	if err != nil {
		return nil, err
	}

	l := f.Activities()
	a := l.New(input.Activity)
	if a.ForeignID() == "" {
		return nil, errors.NewInvalidRequest("update requires foreign_id and time")
	}

	if err := l.Update(ctx, a); err != nil {
		return nil, err
	}

	return &UpdateActivityOutput{Updated: true, ForeignID: a.ForeignID()}, nil
}
