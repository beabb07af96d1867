// Package events publishes activity mutations to downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeAdded   = "activity.added"
	TypeUpdated = "activity.updated"
	TypeRemoved = "activity.removed"
)

// Event describes one successful mutation. FeedID is empty for updates,
// which apply to every feed holding the activity.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	FeedID    string         `json:"feed_id,omitempty"`
	ForeignID string         `json:"foreign_id,omitempty"`
	Time      time.Time      `json:"time"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// NewEvent stamps a new event with a random id.
func NewEvent(eventType, feedID, foreignID string, at time.Time, payload map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		FeedID:    feedID,
		ForeignID: foreignID,
		Time:      at.UTC(),
		Payload:   payload,
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}
