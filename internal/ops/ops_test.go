package ops

import (
	"context"
	"database/sql"
	"testing"

	"github.com/hpungsan/feedq/internal/config"
	"github.com/hpungsan/feedq/internal/db"
	"github.com/hpungsan/feedq/internal/errors"
	"github.com/hpungsan/feedq/internal/events"
)

// newTestDeps initializes a database in a temp directory.
func newTestDeps(t *testing.T) Deps {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return Deps{DB: database, Config: config.DefaultConfig()}
}

// mustAdd adds an activity or fails the test.
func mustAdd(t *testing.T, d Deps, group, user string, fields map[string]any) *AddActivityOutput {
	t.Helper()
	out, err := AddActivity(context.Background(), d, AddActivityInput{Group: group, User: user, Activity: fields})
	if err != nil {
		t.Fatalf("AddActivity failed: %v", err)
	}
	return out
}

type capturePublisher struct {
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, evt events.Event) error {
	p.events = append(p.events, evt)
	return nil
}

func TestValidateFeed(t *testing.T) {
	addr, err := ValidateFeed(" user ", " 42 ")
	if err != nil {
		t.Fatalf("ValidateFeed failed: %v", err)
	}
	if addr.ID() != "user:42" {
		t.Errorf("ID() = %q, want %q", addr.ID(), "user:42")
	}
}

func TestValidateFeed_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		group, user string
	}{
		{"empty group", "", "1"},
		{"empty user", "user", "  "},
		{"colon in group", "a:b", "1"},
		{"colon in user", "user", "1:2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateFeed(tt.group, tt.user)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("ValidateFeed(%q, %q) error = %v, want INVALID_REQUEST", tt.group, tt.user, err)
			}
		})
	}
}

func TestOpenFeed_UsesRecordedKind(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	if _, err := SetFeedKind(ctx, d, SetFeedKindInput{Group: "notify", User: "1", Kind: "notification"}); err != nil {
		t.Fatalf("SetFeedKind failed: %v", err)
	}

	f, err := d.OpenFeed(ctx, &FeedAddress{Group: "notify", User: "1"})
	if err != nil {
		t.Fatalf("OpenFeed failed: %v", err)
	}
	if !f.IsAggregatedOrNotification() {
		t.Errorf("Kind() = %q, want notification", f.Kind())
	}

	f, err = d.OpenFeed(ctx, &FeedAddress{Group: "user", User: "1"})
	if err != nil {
		t.Fatalf("OpenFeed failed: %v", err)
	}
	if f.IsAggregatedOrNotification() {
		t.Errorf("Kind() = %q, want flat default", f.Kind())
	}
}

func TestOpenFeed_PublishesWhenConfigured(t *testing.T) {
	d := newTestDeps(t)
	pub := &capturePublisher{}
	d.Publisher = pub

	mustAdd(t, d, "user", "1", map[string]any{"actor": "User:1", "verb": "post", "object": "Post:1"})

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	if pub.events[0].Type != events.TypeAdded {
		t.Errorf("Type = %q, want %q", pub.events[0].Type, events.TypeAdded)
	}
}

func TestDeps_NilConfigUsesDefaults(t *testing.T) {
	d := Deps{DB: (*sql.DB)(nil)}
	if d.config().DefaultPageSize != config.DefaultConfig().DefaultPageSize {
		t.Errorf("DefaultPageSize = %d, want default", d.config().DefaultPageSize)
	}
	if d.logger() == nil {
		t.Error("logger() = nil, want no-op logger")
	}
}
