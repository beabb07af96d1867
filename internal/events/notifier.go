package events

import (
	"context"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/hpungsan/feedq/internal/activity"
	"github.com/hpungsan/feedq/internal/feed"
	"github.com/hpungsan/feedq/internal/observability"
)

// Notifier is a feed.Transport that publishes an event after every
// successful mutation of the transport it wraps. Reads pass through.
//
// Publish failures are logged and counted but never returned: by then the
// mutation has been committed.
type Notifier struct {
	next      feed.Transport
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

var _ feed.Transport = (*Notifier)(nil)

// NewNotifier wraps next. A nil logger discards publish failures.
func NewNotifier(next feed.Transport, publisher Publisher, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{next: next, publisher: publisher, logger: logger, now: time.Now}
}

// Get reads from the wrapped transport.
func (n *Notifier) Get(ctx context.Context, feedID string, params feed.Params) ([]activity.Record, error) {
	return n.next.Get(ctx, feedID, params)
}

// AddActivity adds through the wrapped transport and publishes activity.added.
func (n *Notifier) AddActivity(ctx context.Context, feedID string, rec activity.Record) (activity.Record, error) {
	stored, err := n.next.AddActivity(ctx, feedID, rec)
	if err != nil {
		return nil, err
	}
	n.publish(ctx, NewEvent(TypeAdded, feedID, cast.ToString(stored[activity.FieldForeignID]), n.now(), stored))
	return stored, nil
}

// UpdateActivity updates through the wrapped transport and publishes activity.updated.
func (n *Notifier) UpdateActivity(ctx context.Context, rec activity.Record) error {
	if err := n.next.UpdateActivity(ctx, rec); err != nil {
		return err
	}
	n.publish(ctx, NewEvent(TypeUpdated, "", cast.ToString(rec[activity.FieldForeignID]), n.now(), rec))
	return nil
}

// RemoveActivity removes through the wrapped transport and publishes activity.removed.
func (n *Notifier) RemoveActivity(ctx context.Context, feedID, id string, foreignID bool) error {
	if err := n.next.RemoveActivity(ctx, feedID, id, foreignID); err != nil {
		return err
	}
	evt := NewEvent(TypeRemoved, feedID, "", n.now(), map[string]any{activity.FieldID: id})
	if foreignID {
		evt.ForeignID = id
		evt.Payload = map[string]any{activity.FieldForeignID: id}
	}
	n.publish(ctx, evt)
	return nil
}

func (n *Notifier) publish(ctx context.Context, evt Event) {
	err := n.publisher.Publish(ctx, evt)
	observability.RecordEventPublished(evt.Type, err)
	if err != nil {
		n.logger.Warn("failed to publish activity event",
			zap.String("event_id", evt.ID),
			zap.String("type", evt.Type),
			zap.String("feed_id", evt.FeedID),
			zap.Error(err),
		)
		return
	}
	n.logger.Debug("published activity event",
		zap.String("event_id", evt.ID),
		zap.String("type", evt.Type),
	)
}
