package feed

import (
	"context"
	"testing"

	"go.uber.org/goleak"

	"github.com/hpungsan/feedq/internal/activity"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeTransport records calls and serves canned records.
type fakeTransport struct {
	records []activity.Record
	err     error

	gets    []Params
	added   []activity.Record
	updated []activity.Record
	removed []removeCall
}

type removeCall struct {
	feedID    string
	id        string
	foreignID bool
}

func (f *fakeTransport) Get(_ context.Context, _ string, params Params) ([]activity.Record, error) {
	f.gets = append(f.gets, params)
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeTransport) AddActivity(_ context.Context, _ string, rec activity.Record) (activity.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.added = append(f.added, rec)
	stored := activity.Record{"id": "generated"}
	for k, v := range rec {
		stored[k] = v
	}
	return stored, nil
}

func (f *fakeTransport) UpdateActivity(_ context.Context, rec activity.Record) error {
	if f.err != nil {
		return f.err
	}
	f.updated = append(f.updated, rec)
	return nil
}

func (f *fakeTransport) RemoveActivity(_ context.Context, feedID, id string, foreignID bool) error {
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, removeCall{feedID: feedID, id: id, foreignID: foreignID})
	return nil
}

// fakeEnricher resolves references from a fixed table and records which path
// was taken.
type fakeEnricher struct {
	objects map[string]map[string]any
	err     error

	flatCalls       int
	aggregatedCalls int
	fields          []string
}

func (e *fakeEnricher) resolve(rec activity.Record, fields []string) activity.Record {
	out := activity.Record{}
	for k, v := range rec {
		out[k] = v
	}
	for _, f := range fields {
		if ref, ok := out[f].(string); ok {
			if obj, found := e.objects[ref]; found {
				out[f] = obj
			}
		}
	}
	return out
}

func (e *fakeEnricher) EnrichActivities(_ context.Context, recs []activity.Record, fields []string) ([]activity.Record, error) {
	e.flatCalls++
	e.fields = fields
	if e.err != nil {
		return nil, e.err
	}
	out := make([]activity.Record, len(recs))
	for i, r := range recs {
		out[i] = e.resolve(r, fields)
	}
	return out, nil
}

func (e *fakeEnricher) EnrichAggregatedActivities(_ context.Context, recs []activity.Record, fields []string) ([]activity.Record, error) {
	e.aggregatedCalls++
	e.fields = fields
	if e.err != nil {
		return nil, e.err
	}
	out := make([]activity.Record, len(recs))
	for i, r := range recs {
		group := activity.Record{}
		for k, v := range r {
			group[k] = v
		}
		var nested []any
		for _, inner := range activity.Records(r["activities"]) {
			nested = append(nested, map[string]any(e.resolve(inner, fields)))
		}
		group["activities"] = nested
		out[i] = group
	}
	return out, nil
}
