package feed

import (
	"github.com/spf13/cast"

	"github.com/hpungsan/feedq/internal/activity"
)

// Param is a request parameter name that can be set directly.
type Param string

const (
	ParamLimit    Param = "limit"
	ParamOffset   Param = "offset"
	ParamRanking  Param = "ranking"
	ParamMarkRead Param = "mark_read"
	ParamMarkSeen Param = "mark_seen"
)

// knownParams is the closed set accepted by SetParameter.
var knownParams = map[Param]bool{
	ParamLimit:    true,
	ParamOffset:   true,
	ParamRanking:  true,
	ParamMarkRead: true,
	ParamMarkSeen: true,
}

// Operator is an id comparison used by WhereID.
type Operator string

const (
	OpLT  Operator = "lt"
	OpLTE Operator = "lte"
	OpGT  Operator = "gt"
	OpGTE Operator = "gte"
)

func (op Operator) valid() bool {
	switch op {
	case OpLT, OpLTE, OpGT, OpGTE:
		return true
	}
	return false
}

// Params is the request parameter map. Keys are normalized on every write and
// lookup, so "Limit" and "limit" are the same parameter.
type Params map[string]any

// Set assigns a parameter.
func (p Params) Set(name string, value any) {
	p[activity.NormalizeKey(name)] = value
}

// Delete removes a parameter.
func (p Params) Delete(name string) {
	delete(p, activity.NormalizeKey(name))
}

// Get returns a parameter.
func (p Params) Get(name string) (any, bool) {
	v, ok := p[activity.NormalizeKey(name)]
	return v, ok
}

// Int returns a parameter coerced to int. ok is false when it is absent or
// not numeric.
func (p Params) Int(name string) (int, bool) {
	v, ok := p.Get(name)
	if !ok {
		return 0, false
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// String returns a parameter coerced to string, or "" when absent.
func (p Params) String(name string) string {
	v, ok := p.Get(name)
	if !ok {
		return ""
	}
	return cast.ToString(v)
}

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
