package events

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hpungsan/feedq/internal/activity"
	"github.com/hpungsan/feedq/internal/errors"
	"github.com/hpungsan/feedq/internal/feed"
)

type recordingPublisher struct {
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt Event) error {
	p.events = append(p.events, evt)
	return p.err
}

type stubTransport struct {
	err error
}

func (s *stubTransport) Get(context.Context, string, feed.Params) ([]activity.Record, error) {
	return []activity.Record{{"id": "a1"}}, s.err
}

func (s *stubTransport) AddActivity(_ context.Context, _ string, rec activity.Record) (activity.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := activity.Record{"id": "01STORED"}
	for k, v := range rec {
		out[k] = v
	}
	return out, nil
}

func (s *stubTransport) UpdateActivity(context.Context, activity.Record) error { return s.err }

func (s *stubTransport) RemoveActivity(context.Context, string, string, bool) error { return s.err }

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func newTestNotifier(next feed.Transport, pub Publisher, logger *zap.Logger) *Notifier {
	n := NewNotifier(next, pub, logger)
	n.now = func() time.Time { return fixedNow }
	return n
}

func TestNotifier_PublishesMutations(t *testing.T) {
	pub := &recordingPublisher{}
	n := newTestNotifier(&stubTransport{}, pub, nil)
	ctx := context.Background()

	stored, err := n.AddActivity(ctx, "user:1", activity.Record{"verb": "post", "foreign_id": "Post:1"})
	require.NoError(t, err)
	assert.Equal(t, "01STORED", stored["id"])

	require.NoError(t, n.UpdateActivity(ctx, activity.Record{"foreign_id": "Post:1", "verb": "edit"}))
	require.NoError(t, n.RemoveActivity(ctx, "user:1", "Post:1", true))
	require.NoError(t, n.RemoveActivity(ctx, "user:1", "01STORED", false))

	require.Len(t, pub.events, 4)

	added := pub.events[0]
	assert.Equal(t, TypeAdded, added.Type)
	assert.Equal(t, "user:1", added.FeedID)
	assert.Equal(t, "Post:1", added.ForeignID)
	assert.True(t, fixedNow.Equal(added.Time))
	assert.Equal(t, "01STORED", added.Payload["id"])
	_, err = uuid.Parse(added.ID)
	assert.NoError(t, err, "event id is a uuid")

	assert.Equal(t, TypeUpdated, pub.events[1].Type)
	assert.Empty(t, pub.events[1].FeedID, "updates are global")

	assert.Equal(t, TypeRemoved, pub.events[2].Type)
	assert.Equal(t, "Post:1", pub.events[2].ForeignID)
	assert.Equal(t, map[string]any{"id": "01STORED"}, pub.events[3].Payload)

	assert.NotEqual(t, pub.events[0].ID, pub.events[1].ID)
}

func TestNotifier_GetPassesThrough(t *testing.T) {
	pub := &recordingPublisher{}
	n := newTestNotifier(&stubTransport{}, pub, nil)

	recs, err := n.Get(context.Background(), "user:1", feed.Params{})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Empty(t, pub.events)
}

func TestNotifier_FailedMutationPublishesNothing(t *testing.T) {
	pub := &recordingPublisher{}
	want := errors.NewTransport("add_activity", nil)
	n := newTestNotifier(&stubTransport{err: want}, pub, nil)
	ctx := context.Background()

	_, err := n.AddActivity(ctx, "user:1", activity.Record{})
	assert.Same(t, want, err)
	assert.Same(t, want, n.UpdateActivity(ctx, activity.Record{}))
	assert.Same(t, want, n.RemoveActivity(ctx, "user:1", "x", false))
	assert.Empty(t, pub.events)
}

func TestNotifier_PublishFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	pub := &recordingPublisher{err: stderrors.New("broker unreachable")}
	n := newTestNotifier(&stubTransport{}, pub, zap.New(core))

	_, err := n.AddActivity(context.Background(), "user:1", activity.Record{"verb": "post"})
	require.NoError(t, err, "publish failures do not fail the mutation")

	entries := logs.FilterMessage("failed to publish activity event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, TypeAdded, entries[0].ContextMap()["type"])
	assert.Equal(t, "user:1", entries[0].ContextMap()["feed_id"])
}

func TestKafkaMessage(t *testing.T) {
	evt := NewEvent(TypeRemoved, "", "Post:1", fixedNow, map[string]any{"foreign_id": "Post:1"})

	msg, err := message(evt)
	require.NoError(t, err)
	assert.Equal(t, "Post:1", string(msg.Key), "falls back to foreign id without a feed")
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, TypeRemoved, string(msg.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, evt.ID, decoded.ID)
	assert.True(t, fixedNow.Equal(decoded.Time))
}

func TestKafkaPublisher_WritersAreLazyAndClosed(t *testing.T) {
	p := NewKafkaPublisher([]string{"127.0.0.1:9092"}, "feedq.activities")
	assert.Empty(t, p.writers)

	w := p.writerForTopic("feedq.activities")
	assert.Same(t, w, p.writerForTopic("feedq.activities"))
	assert.Len(t, p.writers, 1)

	require.NoError(t, p.Close())
	assert.Empty(t, p.writers)
}
