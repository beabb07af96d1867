// Package enrich resolves "<type>:<id>" references in activity records
// against an object store.
package enrich

import (
	"context"
	"sort"
	"strings"

	"github.com/hpungsan/feedq/internal/activity"
	"github.com/hpungsan/feedq/internal/errors"
	"github.com/hpungsan/feedq/internal/feed"
	"github.com/hpungsan/feedq/internal/observability"
)

// ObjectStore loads referenced objects in bulk. Missing refs are left out of
// the result.
type ObjectStore interface {
	LookupObjects(ctx context.Context, refs []string) (map[string]map[string]any, error)
}

// Enricher replaces references with the stored objects they name.
type Enricher struct {
	store ObjectStore
}

// New returns an enricher backed by store.
func New(store ObjectStore) *Enricher {
	return &Enricher{store: store}
}

var _ feed.Enricher = (*Enricher)(nil)

// EnrichActivities resolves the given fields of flat activity records.
func (e *Enricher) EnrichActivities(ctx context.Context, recs []activity.Record, fields []string) ([]activity.Record, error) {
	return e.enrich(ctx, recs, fields, false)
}

// EnrichAggregatedActivities resolves the given fields of the activities
// nested in group records.
func (e *Enricher) EnrichAggregatedActivities(ctx context.Context, recs []activity.Record, fields []string) ([]activity.Record, error) {
	return e.enrich(ctx, recs, fields, true)
}

func (e *Enricher) enrich(ctx context.Context, recs []activity.Record, fields []string, grouped bool) ([]activity.Record, error) {
	leaves := func(rec activity.Record) []activity.Record {
		if grouped {
			return activity.Records(rec[activity.FieldActivities])
		}
		return []activity.Record{rec}
	}

	wanted := make(map[string]bool)
	for _, rec := range recs {
		for _, leaf := range leaves(rec) {
			for _, f := range fields {
				if ref, ok := leaf[f].(string); ok && isRef(ref) {
					wanted[ref] = true
				}
			}
		}
	}

	out := make([]activity.Record, len(recs))
	if len(wanted) == 0 {
		copy(out, recs)
		return out, nil
	}

	refs := make([]string, 0, len(wanted))
	for ref := range wanted {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	objects, err := e.store.LookupObjects(ctx, refs)
	observability.RecordEnrichment(len(objects), len(refs)-len(objects), err)
	if err != nil {
		return nil, errors.NewEnrichment(err)
	}

	resolve := func(leaf activity.Record) activity.Record {
		res := make(activity.Record, len(leaf))
		for k, v := range leaf {
			res[k] = v
		}
		for _, f := range fields {
			ref, ok := res[f].(string)
			if !ok {
				continue
			}
			if obj, found := objects[ref]; found {
				res[f] = objectValue(ref, obj)
			}
		}
		return res
	}

	for i, rec := range recs {
		if !grouped {
			out[i] = resolve(rec)
			continue
		}
		g := make(activity.Record, len(rec))
		for k, v := range rec {
			g[k] = v
		}
		nested := leaves(rec)
		acts := make([]any, 0, len(nested))
		for _, leaf := range nested {
			acts = append(acts, resolve(leaf))
		}
		g[activity.FieldActivities] = acts
		out[i] = g
	}
	return out, nil
}

// objectValue copies the stored data and sets its id and type from ref.
func objectValue(ref string, data map[string]any) map[string]any {
	typ, id, _ := strings.Cut(ref, ":")
	obj := make(map[string]any, len(data)+2)
	for k, v := range data {
		obj[k] = v
	}
	obj["id"] = id
	obj["type"] = typ
	return obj
}

func isRef(s string) bool {
	typ, id, ok := strings.Cut(s, ":")
	return ok && typ != "" && id != ""
}
