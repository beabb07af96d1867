package enrich

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/feedq/internal/activity"
	"github.com/hpungsan/feedq/internal/db"
	"github.com/hpungsan/feedq/internal/errors"
	"github.com/hpungsan/feedq/internal/feed"
)

type fakeStore struct {
	objects map[string]map[string]any
	err     error
	calls   [][]string
}

func (s *fakeStore) LookupObjects(_ context.Context, refs []string) (map[string]map[string]any, error) {
	s.calls = append(s.calls, refs)
	if s.err != nil {
		return nil, s.err
	}
	out := map[string]map[string]any{}
	for _, r := range refs {
		if o, ok := s.objects[r]; ok {
			out[r] = o
		}
	}
	return out, nil
}

func TestEnrichActivities(t *testing.T) {
	store := &fakeStore{objects: map[string]map[string]any{
		"User:1": {"name": "Ada"},
		"Post:7": {"title": "hi"},
	}}
	e := New(store)

	recs := []activity.Record{
		{"id": "a1", "actor": "User:1", "object": "Post:7"},
		{"id": "a2", "actor": "User:1", "object": "Post:404", "target": "Board:1"},
	}

	got, err := e.EnrichActivities(context.Background(), recs, []string{"actor", "object"})
	require.NoError(t, err)

	want := []activity.Record{
		{"id": "a1", "actor": map[string]any{"id": "1", "type": "User", "name": "Ada"}, "object": map[string]any{"id": "7", "type": "Post", "title": "hi"}},
		{"id": "a2", "actor": map[string]any{"id": "1", "type": "User", "name": "Ada"}, "object": "Post:404", "target": "Board:1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("EnrichActivities() mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, store.calls, 1, "one batched lookup")
	assert.Equal(t, []string{"Post:404", "Post:7", "User:1"}, store.calls[0])
	assert.Equal(t, "User:1", recs[0]["actor"], "input records untouched")
}

func TestEnrichActivities_NoRefsSkipsLookup(t *testing.T) {
	store := &fakeStore{}
	e := New(store)

	recs := []activity.Record{{"id": "a1", "actor": "not a ref"}}
	got, err := e.EnrichActivities(context.Background(), recs, []string{"actor", "object"})
	require.NoError(t, err)
	assert.Equal(t, recs, got)
	assert.Empty(t, store.calls)
}

func TestEnrichAggregatedActivities(t *testing.T) {
	store := &fakeStore{objects: map[string]map[string]any{"User:2": {"name": "Bo"}}}
	e := New(store)

	recs := []activity.Record{{
		"id":   "like:2026-10-18",
		"verb": "like",
		"activities": []any{
			activity.Record{"id": "a1", "actor": "User:2"},
			map[string]any{"id": "a2", "actor": "User:3"},
		},
	}}

	got, err := e.EnrichAggregatedActivities(context.Background(), recs, []string{"actor"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "like", got[0]["verb"])

	nested := activity.Records(got[0]["activities"])
	require.Len(t, nested, 2)
	assert.Equal(t, map[string]any{"id": "2", "type": "User", "name": "Bo"}, nested[0]["actor"])
	assert.Equal(t, "User:3", nested[1]["actor"])
}

func TestEnrich_LookupFailure(t *testing.T) {
	cause := stderrors.New("disk on fire")
	e := New(&fakeStore{err: cause})

	_, err := e.EnrichActivities(context.Background(), []activity.Record{{"actor": "User:1"}}, []string{"actor"})
	assert.True(t, errors.Is(err, errors.ErrEnrichment), "got %v", err)
	assert.ErrorIs(t, err, cause)
}

func TestEnrich_WithListStripsUnresolved(t *testing.T) {
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()
	ctx := context.Background()

	require.NoError(t, db.PutObject(ctx, database, "User:1", map[string]any{"name": "Ada"}))

	tr := &staticTransport{records: []activity.Record{
		{"id": "a1", "actor": "User:1", "verb": "post", "object": "Post:9"},
	}}
	f := feed.New("user", "1", feed.KindFlat,
		feed.WithTransport(tr),
		feed.WithEnricher(New(db.Objects{DB: database})),
	)

	nodes, err := f.Activities().Includes("actor", "object").ToArray(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	a := nodes[0].(*activity.Activity)
	actor, ok := a.Get("actor")
	require.True(t, ok)
	assert.Equal(t, "Ada", actor.(map[string]any)["name"])
	_, ok = a.Get("object")
	assert.False(t, ok, "unresolved object is stripped")

	id, ok := activity.ActorID(a.Actor())
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)
}

// staticTransport serves fixed records and rejects writes.
type staticTransport struct {
	records []activity.Record
}

func (s *staticTransport) Get(context.Context, string, feed.Params) ([]activity.Record, error) {
	return s.records, nil
}

func (s *staticTransport) AddActivity(context.Context, string, activity.Record) (activity.Record, error) {
	return nil, errors.NewTransport("add_activity", nil)
}

func (s *staticTransport) UpdateActivity(context.Context, activity.Record) error {
	return errors.NewTransport("update_activity", nil)
}

func (s *staticTransport) RemoveActivity(context.Context, string, string, bool) error {
	return errors.NewTransport("remove_activity", nil)
}
