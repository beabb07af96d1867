package ops

import (
	"context"

	"github.com/hpungsan/feedq/internal/activity"
	"github.com/hpungsan/feedq/internal/feed"
	"github.com/hpungsan/feedq/internal/observability"
)

// RenderMarkdown is the only supported ListFeedInput.Render value.
const RenderMarkdown = "markdown"

// ListFeedInput contains parameters for the ListFeed operation.
type ListFeedInput struct {
	Group string
	User  string

	// Page and Per select a numbered page; IDLT selects the page of ids
	// below a cursor and takes precedence over Page. Limit and Offset are
	// used only when neither is set.
	Page   int
	Per    int
	IDLT   string
	Limit  int
	Offset int

	Includes []string
	Blocked  []int64
	SFW      bool
	Ranking  string

	// MarkReadAll and MarkSeenAll mark every group; the id lists mark only
	// the listed groups.
	MarkReadAll bool
	MarkRead    []string
	MarkSeenAll bool
	MarkSeen    []string

	Render string
}

// ListFeedOutput contains the result of the ListFeed operation.
type ListFeedOutput struct {
	FeedID string          `json:"feed_id"`
	Kind   feed.Kind       `json:"kind"`
	Items  []activity.Node `json:"items"`
	Params feed.Params     `json:"params"`
	Count  int             `json:"count"`
	Empty  bool            `json:"empty"`
}

// ListFeed reads one page of a feed.
func ListFeed(ctx context.Context, d Deps, input ListFeedInput) (*ListFeedOutput, error) {
	addr, err := ValidateFeed(input.Group, input.User)
	if err != nil {
		return nil, err
	}

	f, err := d.OpenFeed(ctx, addr)
	if err != nil {
		return nil, err
	}

	l := BuildList(f, d, input)
	items, err := l.ToArray(ctx)
	if err != nil {
		return nil, err
	}
	observability.RecordResults(len(items))

	return &ListFeedOutput{
		FeedID: f.ID(),
		Kind:   f.Kind(),
		Items:  items,
		Params: l.Params(),
		Count:  len(items),
		Empty:  len(items) == 0,
	}, nil
}

// BuildList translates input into a request on f. Errors from invalid
// combinations surface from the list's terminal operation.
func BuildList(f *feed.Feed, d Deps, input ListFeedInput) *feed.List {
	l := f.Activities()

	per := input.Per
	if per <= 0 && (input.Page > 0 || input.IDLT != "") {
		per = d.config().DefaultPageSize
	}

	switch {
	case input.IDLT != "":
		l.Per(per).Page(feed.IDLessThan(input.IDLT))
	case input.Page > 0:
		l.Per(per).Page(feed.PageNumber(input.Page))
	default:
		if input.Limit > 0 {
			l.Limit(input.Limit)
		}
		if input.Offset > 0 {
			l.Offset(input.Offset)
		}
	}

	if len(input.Includes) > 0 {
		l.Includes(input.Includes...)
	}
	if len(input.Blocked) > 0 {
		l.Blocking(input.Blocked...)
	}
	if input.SFW {
		l.SFW()
	}
	if input.Ranking != "" {
		l.Ranking(input.Ranking)
	}

	switch {
	case input.MarkReadAll:
		l.MarkRead()
	case len(input.MarkRead) > 0:
		l.MarkRead(input.MarkRead...)
	}
	switch {
	case input.MarkSeenAll:
		l.MarkSeen()
	case len(input.MarkSeen) > 0:
		l.MarkSeen(input.MarkSeen...)
	}

	if input.Render == RenderMarkdown {
		l.Map(RenderMessage)
	}
	return l
}
