package feed

import (
	"fmt"

	"github.com/hpungsan/feedq/internal/activity"
	"github.com/hpungsan/feedq/internal/errors"
)

// Predicate decides whether a result is kept.
type Predicate func(activity.Node) bool

// Transform rewrites a single activity. Returning nil drops it.
type Transform func(*activity.Activity) *activity.Activity

// List builds one request against a feed and shapes its results.
//
// Configuration methods mutate the List and return it for chaining. A List is
// not safe for concurrent configuration, but terminal operations only read it
// and may run concurrently once configuration is done. Terminal operations do
// not reset anything, so a List can be executed repeatedly.
type List struct {
	feed   *Feed
	params Params

	pageNumber int
	pageSize   int
	// paginated is set while limit/offset hold values computed from the page.
	paginated bool

	including []string
	sfw       bool

	selects []Predicate
	maps    []Transform

	// err is the first invalid configuration call; terminal operations return it.
	err error
}

func newList(f *Feed) *List {
	return &List{feed: f, params: Params{}}
}

// Feed returns the owning feed.
func (l *List) Feed() *Feed { return l.feed }

// Err returns the first configuration error, if any.
func (l *List) Err() error { return l.err }

// Params returns a copy of the request parameters built so far.
func (l *List) Params() Params { return l.params.Clone() }

// IncludedRelationships returns the relationship names to enrich, in order.
func (l *List) IncludedRelationships() []string {
	return append([]string(nil), l.including...)
}

// SFWEnabled reports whether SFW was called. The flag is tracked only; applying
// it is up to the feed service.
func (l *List) SFWEnabled() bool { return l.sfw }

func (l *List) fail(err error) *List {
	if l.err == nil {
		l.err = err
	}
	return l
}

// SetParameter sets one of the directly settable parameters verbatim.
func (l *List) SetParameter(name Param, value any) *List {
	if !knownParams[name] {
		return l.fail(errors.NewInvalidArgument(fmt.Sprintf("unknown parameter %q", name)))
	}
	if name == ParamLimit || name == ParamOffset {
		l.paginated = false
	}
	l.params.Set(string(name), value)
	return l
}

// Limit sets the limit parameter.
func (l *List) Limit(n int) *List { return l.SetParameter(ParamLimit, n) }

// Offset sets the offset parameter.
func (l *List) Offset(n int) *List { return l.SetParameter(ParamOffset, n) }

// Ranking selects a ranking method by name.
func (l *List) Ranking(name string) *List { return l.SetParameter(ParamRanking, name) }

// MarkRead marks the given group ids as read, or every group when called
// without ids.
func (l *List) MarkRead(ids ...string) *List { return l.SetParameter(ParamMarkRead, markValue(ids)) }

// MarkSeen marks the given group ids as seen, or every group when called
// without ids.
func (l *List) MarkSeen(ids ...string) *List { return l.SetParameter(ParamMarkSeen, markValue(ids)) }

// Mark sets mark_<kind>: true without values, otherwise the value list.
func (l *List) Mark(kind string, values ...string) *List {
	l.params.Set("mark_"+kind, markValue(values))
	return l
}

func markValue(ids []string) any {
	if len(ids) == 0 {
		return true
	}
	return append([]string(nil), ids...)
}

// PageRef selects a page either by number or by cursor.
type PageRef struct {
	number int
	idLT   string
}

// PageNumber selects a 1-based page; the page size comes from Per.
func PageNumber(n int) PageRef { return PageRef{number: n} }

// IDLessThan selects the page of activities older than id.
func IDLessThan(id string) PageRef { return PageRef{idLT: id} }

// Page selects a page. A PageRef with neither a positive page number nor a
// cursor records an INVALID_ARGUMENT error.
func (l *List) Page(ref PageRef) *List {
	switch {
	case ref.number > 0:
		l.pageNumber = ref.number
		l.updatePagination()
		return l
	case ref.idLT != "":
		return l.WhereID(OpLT, ref.idLT)
	default:
		return l.fail(errors.NewInvalidArgument("must provide a page number or id_lt"))
	}
}

// Per sets the page size used with PageNumber.
func (l *List) Per(pageSize int) *List {
	l.pageSize = pageSize
	l.updatePagination()
	return l
}

// updatePagination writes limit/offset once both page number and size are known.
func (l *List) updatePagination() {
	limit, offset, ok := Paginate(l.pageNumber, l.pageSize)
	if !ok {
		if l.paginated {
			l.params.Delete(string(ParamLimit))
			l.params.Delete(string(ParamOffset))
			l.paginated = false
		}
		return
	}
	l.paginated = true
	l.params.Set(string(ParamLimit), limit)
	l.params.Set(string(ParamOffset), offset)
}

// SFW requests safe-for-work results.
func (l *List) SFW() *List {
	l.sfw = true
	return l
}

// Includes adds relationships to enrich. "subject" is stored as "object".
func (l *List) Includes(names ...string) *List {
	for _, name := range names {
		name = activity.NormalizeKey(name)
		if name == "subject" {
			name = activity.FieldObject
		}
		l.including = append(l.including, name)
	}
	return l
}

// WhereID sets id_<op>.
func (l *List) WhereID(op Operator, id string) *List {
	if !op.valid() {
		return l.fail(errors.NewInvalidArgument(fmt.Sprintf("unknown id operator %q", op)))
	}
	l.params.Set("id_"+string(op), id)
	return l
}

// Select registers a predicate. Results must satisfy every predicate.
func (l *List) Select(pred Predicate) *List {
	l.selects = append(l.selects, pred)
	return l
}

// Map registers a transform. Transforms run in registration order on every
// activity, including activities inside groups.
func (l *List) Map(fn Transform) *List {
	l.maps = append(l.maps, fn)
	return l
}

// Blocking drops results whose actor is one of userIDs. A group is dropped
// only when none of its activities has an unblocked actor. With a non-empty
// block set, an activity without an actor is dropped too: an included actor
// that failed to resolve has been stripped and could be a blocked user.
func (l *List) Blocking(userIDs ...int64) *List {
	blocked := make(map[int64]bool, len(userIDs))
	for _, id := range userIDs {
		blocked[id] = true
	}
	isBlocked := func(a *activity.Activity) bool {
		actor := a.Actor()
		if actor == nil {
			return len(blocked) > 0
		}
		id, ok := activity.ActorID(actor)
		return ok && blocked[id]
	}
	return l.Select(func(n activity.Node) bool {
		switch node := n.(type) {
		case *activity.Activity:
			return !isBlocked(node)
		case *activity.Group:
			for _, a := range node.Activities {
				if !isBlocked(a) {
					return true
				}
			}
			return false
		default:
			return true
		}
	})
}
