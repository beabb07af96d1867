package activity

import "encoding/json"

// Group is a set of activities bundled by the feed's aggregation rules.
type Group struct {
	owner  Owner
	fields Record

	// Activities is owned by the group; every enrichment pass builds a new slice.
	Activities []*Activity
}

// NewGroup creates a group from an aggregated record. The nested "activities"
// list becomes Activities; the remaining keys are kept as group fields.
func NewGroup(owner Owner, rec Record) *Group {
	g := &Group{owner: owner, fields: copyRecord(rec)}
	nested := g.fields[FieldActivities]
	delete(g.fields, FieldActivities)

	for _, r := range Records(nested) {
		g.Activities = append(g.Activities, New(owner, r))
	}
	return g
}

func (*Group) isNode() {}

// Owner returns the owning feed.
func (g *Group) Owner() Owner { return g.owner }

// Get returns a group-level field.
func (g *Group) Get(key string) (any, bool) {
	v, ok := g.fields[NormalizeKey(key)]
	return v, ok
}

// ID returns the group id.
func (g *Group) ID() string {
	if s, ok := g.fields[FieldID].(string); ok {
		return s
	}
	return ""
}

// Fields returns a copy of the group-level fields, without the activities.
func (g *Group) Fields() Record {
	return copyRecord(g.fields)
}

// Clone returns a copy with a fresh Activities slice of cloned activities.
func (g *Group) Clone() *Group {
	out := &Group{owner: g.owner, fields: copyRecord(g.fields)}
	if g.Activities != nil {
		out.Activities = make([]*Activity, len(g.Activities))
		for i, a := range g.Activities {
			out.Activities[i] = a.Clone()
		}
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (g *Group) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(g.fields)+1)
	for k, v := range g.fields {
		out[k] = v
	}
	acts := g.Activities
	if acts == nil {
		acts = []*Activity{}
	}
	out[FieldActivities] = acts
	return json.Marshal(out)
}

// Leaves returns the activities under a node: the node itself for an
// activity, the contained activities for a group.
func Leaves(n Node) []*Activity {
	switch node := n.(type) {
	case *Activity:
		return []*Activity{node}
	case *Group:
		return node.Activities
	default:
		return nil
	}
}

// Records converts a nested activities value into records. Elements that are
// not key/value maps are skipped.
func Records(v any) []Record {
	switch list := v.(type) {
	case []Record:
		return list
	case []map[string]any:
		out := make([]Record, 0, len(list))
		for _, m := range list {
			out = append(out, Record(m))
		}
		return out
	case []any:
		out := make([]Record, 0, len(list))
		for _, item := range list {
			switch m := item.(type) {
			case Record:
				out = append(out, m)
			case map[string]any:
				out = append(out, Record(m))
			}
		}
		return out
	default:
		return nil
	}
}
