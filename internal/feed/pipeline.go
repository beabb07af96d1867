package feed

import (
	"context"

	"github.com/hpungsan/feedq/internal/activity"
)

// Results fetches the raw records for the current parameters.
func (l *List) Results(ctx context.Context) ([]activity.Record, error) {
	t, err := l.transport()
	if err != nil {
		return nil, err
	}
	return t.Get(ctx, l.feed.ID(), l.params.Clone())
}

// ApplySelect keeps the nodes every registered predicate accepts.
func (l *List) ApplySelect(nodes []activity.Node) []activity.Node {
	out := make([]activity.Node, 0, len(nodes))
	for _, n := range nodes {
		if l.accepts(n) {
			out = append(out, n)
		}
	}
	return out
}

func (l *List) accepts(n activity.Node) bool {
	for _, pred := range l.selects {
		if !pred(n) {
			return false
		}
	}
	return true
}

// ApplyMap runs the registered transforms over every activity. Groups are
// not transformed themselves; their activities are replaced by the mapped
// ones. A leaf mapped to nil becomes a nil entry at the top level and is
// removed from its group otherwise.
func (l *List) ApplyMap(nodes []activity.Node) []activity.Node {
	out := make([]activity.Node, len(nodes))
	for i, n := range nodes {
		switch node := n.(type) {
		case *activity.Group:
			node.Activities = l.mapLeaves(node.Activities)
			out[i] = node
		case *activity.Activity:
			if mapped := l.transform(node); mapped != nil {
				out[i] = mapped
			}
		default:
			out[i] = n
		}
	}
	return out
}

func (l *List) mapLeaves(acts []*activity.Activity) []*activity.Activity {
	out := make([]*activity.Activity, 0, len(acts))
	for _, a := range acts {
		if mapped := l.transform(a); mapped != nil {
			out = append(out, mapped)
		}
	}
	return out
}

// transform folds the transforms left to right, stopping at nil.
func (l *List) transform(a *activity.Activity) *activity.Activity {
	for _, fn := range l.maps {
		if a == nil {
			return nil
		}
		a = fn(a)
	}
	return a
}

// ToArray executes the request: fetch, enrich, select, map, then drop nil
// results.
func (l *List) ToArray(ctx context.Context) ([]activity.Node, error) {
	if l.err != nil {
		return nil, l.err
	}

	records, err := l.Results(ctx)
	if err != nil {
		return nil, err
	}

	nodes, err := l.Enrich(ctx, records)
	if err != nil {
		return nil, err
	}

	nodes = l.ApplyMap(l.ApplySelect(nodes))

	out := make([]activity.Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// IsEmpty executes the request and reports whether it produced no results.
func (l *List) IsEmpty(ctx context.Context) (bool, error) {
	nodes, err := l.ToArray(ctx)
	if err != nil {
		return false, err
	}
	return len(nodes) == 0, nil
}
