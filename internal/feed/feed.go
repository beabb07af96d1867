// Package feed builds activity-feed requests and shapes their results.
//
// A List accumulates request parameters, enrichment targets and
// post-processing steps through chained calls. Its terminal operations fetch
// raw records through a Transport, resolve references through an Enricher,
// strip references that stayed unresolved, then run the registered predicates
// and transforms.
package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/feedq/internal/activity"
	"github.com/hpungsan/feedq/internal/errors"
)

// Kind is the feed type, which decides how results are enriched and wrapped.
type Kind string

const (
	KindFlat         Kind = "flat"
	KindAggregated   Kind = "aggregated"
	KindNotification Kind = "notification"
)

// ParseKind parses a feed kind. An empty string is a flat feed.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindFlat:
		return KindFlat, nil
	case KindAggregated:
		return KindAggregated, nil
	case KindNotification:
		return KindNotification, nil
	default:
		return "", errors.NewInvalidArgument(fmt.Sprintf("unknown feed kind %q (want flat, aggregated or notification)", s))
	}
}

// Transport executes requests against the feed service.
type Transport interface {
	// Get returns the feed's raw records for the given parameters, in feed order.
	Get(ctx context.Context, feedID string, params Params) ([]activity.Record, error)
	// AddActivity stores an activity in the feed and returns it as stored.
	AddActivity(ctx context.Context, feedID string, rec activity.Record) (activity.Record, error)
	// UpdateActivity replaces an activity, addressed by foreign_id and time, in every feed.
	UpdateActivity(ctx context.Context, rec activity.Record) error
	// RemoveActivity removes an activity from the feed by id or by foreign id.
	RemoveActivity(ctx context.Context, feedID, id string, foreignID bool) error
}

// Enricher resolves references inside raw records.
type Enricher interface {
	EnrichActivities(ctx context.Context, recs []activity.Record, fields []string) ([]activity.Record, error)
	EnrichAggregatedActivities(ctx context.Context, recs []activity.Record, fields []string) ([]activity.Record, error)
}

// IDResolver translates a foreign id into the service's canonical id form.
type IDResolver interface {
	CanonicalID(foreignID string) (string, error)
}

// ForeignIDResolver accepts "<type>:<id>" foreign ids.
type ForeignIDResolver struct{}

// CanonicalID trims both segments and rejects ids that are not "<type>:<id>".
func (ForeignIDResolver) CanonicalID(foreignID string) (string, error) {
	typ, id, ok := strings.Cut(foreignID, ":")
	typ = strings.TrimSpace(typ)
	id = strings.TrimSpace(id)
	if !ok || typ == "" || id == "" {
		return "", errors.NewInvalidArgument(fmt.Sprintf("foreign id %q must have the form <type>:<id>", foreignID))
	}
	return typ + ":" + id, nil
}

// Feed is a handle on one feed of the service.
type Feed struct {
	group     string
	userID    string
	kind      Kind
	transport Transport
	enricher  Enricher
	resolver  IDResolver
}

// Option configures a Feed.
type Option func(*Feed)

// WithTransport sets the transport used for reads and writes.
func WithTransport(t Transport) Option {
	return func(f *Feed) { f.transport = t }
}

// WithEnricher sets the enricher. Without one, records are materialized as fetched.
func WithEnricher(e Enricher) Option {
	return func(f *Feed) { f.enricher = e }
}

// WithIDResolver overrides the foreign id resolver used by Destroy.
func WithIDResolver(r IDResolver) Option {
	return func(f *Feed) { f.resolver = r }
}

// New creates a feed handle for group:userID.
func New(group, userID string, kind Kind, opts ...Option) *Feed {
	f := &Feed{
		group:    group,
		userID:   userID,
		kind:     kind,
		resolver: ForeignIDResolver{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ID returns "<group>:<user>".
func (f *Feed) ID() string { return f.group + ":" + f.userID }

// Kind returns the feed type.
func (f *Feed) Kind() Kind { return f.kind }

// IsAggregatedOrNotification reports whether results come back as groups.
func (f *Feed) IsAggregatedOrNotification() bool {
	return f.kind == KindAggregated || f.kind == KindNotification
}

// Activities starts a new request against this feed.
func (f *Feed) Activities() *List {
	return newList(f)
}
