// Package activity defines the materialized feed objects: single activities,
// aggregated groups, and the Node union over both.
package activity

import (
	"encoding/json"
	"fmt"
)

// Well-known activity fields.
const (
	FieldID         = "id"
	FieldForeignID  = "foreign_id"
	FieldActor      = "actor"
	FieldVerb       = "verb"
	FieldObject     = "object"
	FieldTarget     = "target"
	FieldTime       = "time"
	FieldActivities = "activities"
)

// Record is a raw key/value activity record as returned by the feed service.
type Record map[string]any

// Owner is the feed an activity or group belongs to.
type Owner interface {
	ID() string
}

// Node is either an *Activity or a *Group.
type Node interface {
	Owner() Owner
	isNode()
}

// Activity wraps a single activity record.
type Activity struct {
	owner  Owner
	fields Record
}

// New creates an activity owned by owner. The fields are copied and their keys
// normalized; the caller's map is not retained.
func New(owner Owner, fields Record) *Activity {
	return &Activity{owner: owner, fields: copyRecord(fields)}
}

func (*Activity) isNode() {}

// Owner returns the owning feed.
func (a *Activity) Owner() Owner { return a.owner }

// Get returns the value of a field.
func (a *Activity) Get(key string) (any, bool) {
	v, ok := a.fields[NormalizeKey(key)]
	return v, ok
}

// Set assigns a field.
func (a *Activity) Set(key string, value any) {
	a.fields[NormalizeKey(key)] = value
}

// Delete removes a field. Deleting a missing field is a no-op.
func (a *Activity) Delete(key string) {
	delete(a.fields, NormalizeKey(key))
}

// String returns a field formatted as a string, or "" when absent.
func (a *Activity) String(key string) string {
	v, ok := a.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ID returns the service-assigned id.
func (a *Activity) ID() string { return a.String(FieldID) }

// ForeignID returns the externally assigned id.
func (a *Activity) ForeignID() string { return a.String(FieldForeignID) }

// Actor classifies the actor field.
func (a *Activity) Actor() ActorRef {
	v, _ := a.Get(FieldActor)
	return actorFromValue(v)
}

// Fields returns a copy of the activity's fields. This is the serialized form
// submitted to the feed service.
func (a *Activity) Fields() Record {
	return copyRecord(a.fields)
}

// Clone returns a deep copy bound to the same owner.
func (a *Activity) Clone() *Activity {
	return &Activity{owner: a.owner, fields: copyRecord(a.fields)}
}

// MarshalJSON implements json.Marshaler.
func (a *Activity) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.fields)
}

// copyRecord deep-copies a record, normalizing top-level keys.
func copyRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[NormalizeKey(k)] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = copyValue(inner)
		}
		return m
	case Record:
		m := make(Record, len(val))
		for k, inner := range val {
			m[k] = copyValue(inner)
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, inner := range val {
			s[i] = copyValue(inner)
		}
		return s
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
