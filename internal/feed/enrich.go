package feed

import (
	"context"

	"github.com/hpungsan/feedq/internal/activity"
)

// Enrich resolves the included relationships of records, wraps them as
// groups (aggregated and notification feeds) or activities, and strips
// relationship fields the enricher could not resolve. It returns one node per
// record, in order.
func (l *List) Enrich(ctx context.Context, records []activity.Record) ([]activity.Node, error) {
	aggregated := l.feed.IsAggregatedOrNotification()

	if e := l.feed.enricher; e != nil {
		var err error
		if aggregated {
			records, err = e.EnrichAggregatedActivities(ctx, records, l.IncludedRelationships())
		} else {
			records, err = e.EnrichActivities(ctx, records, l.IncludedRelationships())
		}
		if err != nil {
			return nil, err
		}
	}

	nodes := make([]activity.Node, 0, len(records))
	for _, rec := range records {
		var n activity.Node
		if aggregated {
			n = activity.NewGroup(l.feed, rec)
		} else {
			n = activity.New(l.feed, rec)
		}
		nodes = append(nodes, l.stripUnfound(n))
	}
	return nodes, nil
}

// stripUnfound deletes included fields that are still reference strings, so
// consumers see either a resolved object or no field at all.
func (l *List) stripUnfound(n activity.Node) activity.Node {
	switch node := n.(type) {
	case *activity.Group:
		g := node.Clone()
		for i, a := range g.Activities {
			g.Activities[i] = l.stripUnfound(a).(*activity.Activity)
		}
		return g
	case *activity.Activity:
		a := node.Clone()
		for _, key := range l.including {
			if v, ok := a.Get(key); ok {
				if _, isString := v.(string); isString {
					a.Delete(key)
				}
			}
		}
		return a
	default:
		return n
	}
}
