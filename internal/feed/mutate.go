package feed

import (
	"context"
	"fmt"

	"github.com/hpungsan/feedq/internal/activity"
	"github.com/hpungsan/feedq/internal/errors"
)

// New creates an activity owned by this feed without submitting it.
func (l *List) New(fields activity.Record) *activity.Activity {
	if fields == nil {
		fields = activity.Record{}
	}
	return activity.New(l.feed, fields)
}

// Add submits a to this feed and returns the activity as stored.
func (l *List) Add(ctx context.Context, a *activity.Activity) (*activity.Activity, error) {
	t, err := l.transport()
	if err != nil {
		return nil, err
	}
	stored, err := t.AddActivity(ctx, l.feed.ID(), a.Fields())
	if err != nil {
		return nil, err
	}
	return activity.New(l.feed, stored), nil
}

// Append is an alias for Add.
func (l *List) Append(ctx context.Context, a *activity.Activity) (*activity.Activity, error) {
	return l.Add(ctx, a)
}

// Update replaces a wherever it was fanned out to. The update is addressed by
// foreign_id and time, not by this feed.
func (l *List) Update(ctx context.Context, a *activity.Activity) error {
	t, err := l.transport()
	if err != nil {
		return err
	}
	return t.UpdateActivity(ctx, a.Fields())
}

// Destroy removes a from this feed by its foreign id.
func (l *List) Destroy(ctx context.Context, a *activity.Activity) error {
	t, err := l.transport()
	if err != nil {
		return err
	}
	foreignID := a.ForeignID()
	if foreignID == "" {
		return errors.NewInvalidArgument("activity has no foreign_id")
	}
	id, err := l.feed.resolver.CanonicalID(foreignID)
	if err != nil {
		return err
	}
	return t.RemoveActivity(ctx, l.feed.ID(), id, true)
}

func (l *List) transport() (Transport, error) {
	if l.feed.transport == nil {
		return nil, errors.NewInternal(fmt.Errorf("feed %s has no transport", l.feed.ID()))
	}
	return l.feed.transport, nil
}
