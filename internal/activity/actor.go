package activity

import (
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// ActorRef is either a ResolvedActor or an UnresolvedActor.
type ActorRef interface {
	actorRef()
}

// ResolvedActor is an actor that enrichment replaced with the full object.
type ResolvedActor struct {
	ID   any
	Data map[string]any
}

// UnresolvedActor is a bare "<type>:<id>" reference string.
type UnresolvedActor struct {
	Ref string
}

func (ResolvedActor) actorRef()   {}
func (UnresolvedActor) actorRef() {}

// actorFromValue classifies a raw actor field value.
func actorFromValue(v any) ActorRef {
	switch actor := v.(type) {
	case nil:
		return nil
	case string:
		return UnresolvedActor{Ref: actor}
	case map[string]any:
		return ResolvedActor{ID: actor["id"], Data: actor}
	case Record:
		return ResolvedActor{ID: actor["id"], Data: actor}
	default:
		return nil
	}
}

// ActorID extracts the numeric user id from an actor reference.
// Resolved actors use their id field. Unresolved references are parsed from the
// second colon-delimited segment ("user:42" -> 42). ok is false when no id can
// be derived.
func ActorID(ref ActorRef) (int64, bool) {
	switch actor := ref.(type) {
	case ResolvedActor:
		if actor.ID == nil {
			return 0, false
		}
		id, err := cast.ToInt64E(actor.ID)
		if err != nil {
			return 0, false
		}
		return id, true
	case UnresolvedActor:
		parts := strings.Split(actor.Ref, ":")
		if len(parts) < 2 {
			return 0, false
		}
		id, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}
