package ops

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/feedq/internal/config"
	"github.com/hpungsan/feedq/internal/db"
	"github.com/hpungsan/feedq/internal/enrich"
	"github.com/hpungsan/feedq/internal/errors"
	"github.com/hpungsan/feedq/internal/events"
	"github.com/hpungsan/feedq/internal/feed"
	"github.com/hpungsan/feedq/internal/transport"
)

// Deps are the shared resources every operation runs against.
type Deps struct {
	DB     *sql.DB
	Config *config.Config
	Logger *zap.Logger

	// Publisher receives mutation events. Nil disables publishing.
	Publisher events.Publisher
}

func (d Deps) config() *config.Config {
	if d.Config == nil {
		return config.DefaultConfig()
	}
	return d.Config
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// FeedAddress identifies a feed as group:user.
type FeedAddress struct {
	Group string
	User  string
}

// ID returns "<group>:<user>".
func (a FeedAddress) ID() string { return a.Group + ":" + a.User }

// ValidateFeed trims the feed group and user id and rejects empty values or
// values containing ':'.
func ValidateFeed(group, user string) (*FeedAddress, error) {
	group = strings.TrimSpace(group)
	user = strings.TrimSpace(user)

	if group == "" || user == "" {
		return nil, errors.NewInvalidRequest("feed group and user are required")
	}
	if strings.Contains(group, ":") || strings.Contains(user, ":") {
		return nil, errors.NewInvalidRequest("feed group and user must not contain ':'")
	}

	return &FeedAddress{Group: group, User: user}, nil
}

// OpenFeed builds a feed handle over the local store, with the kind recorded
// for the feed and object enrichment. Mutations publish events when d has a
// publisher.
func (d Deps) OpenFeed(ctx context.Context, addr *FeedAddress) (*feed.Feed, error) {
	kindName, err := db.GetFeedKind(ctx, d.DB, addr.ID())
	if err != nil {
		return nil, err
	}
	kind, err := feed.ParseKind(kindName)
	if err != nil {
		return nil, err
	}

	var t feed.Transport = transport.NewSQL(d.DB, d.config())
	if d.Publisher != nil {
		t = events.NewNotifier(t, d.Publisher, d.logger())
	}

	return feed.New(addr.Group, addr.User, kind,
		feed.WithTransport(t),
		feed.WithEnricher(enrich.New(db.Objects{DB: d.DB})),
	), nil
}
