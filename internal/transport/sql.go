// Package transport implements feed.Transport on the local SQLite store.
package transport

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cast"

	"github.com/hpungsan/feedq/internal/activity"
	"github.com/hpungsan/feedq/internal/config"
	"github.com/hpungsan/feedq/internal/db"
	"github.com/hpungsan/feedq/internal/errors"
	"github.com/hpungsan/feedq/internal/feed"
	"github.com/hpungsan/feedq/internal/observability"
)

// Cursor parameters accepted by Get, as set by List.WhereID.
const (
	paramIDLT  = "id_lt"
	paramIDLTE = "id_lte"
	paramIDGT  = "id_gt"
	paramIDGTE = "id_gte"
)

// coreFields are stored in their own columns; every other field goes to extra_json.
var coreFields = map[string]bool{
	activity.FieldID:        true,
	activity.FieldForeignID: true,
	activity.FieldActor:     true,
	activity.FieldVerb:      true,
	activity.FieldObject:    true,
	activity.FieldTarget:    true,
	activity.FieldTime:      true,
}

// SQL serves feeds from the local database.
type SQL struct {
	db  *sql.DB
	cfg *config.Config
	now func() time.Time
}

// NewSQL returns a transport over an initialized database. A nil cfg uses
// config.DefaultConfig.
func NewSQL(database *sql.DB, cfg *config.Config) *SQL {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &SQL{db: database, cfg: cfg, now: time.Now}
}

var _ feed.Transport = (*SQL)(nil)

// Get returns a page of the feed. Flat feeds yield activity records newest
// first; aggregated and notification feeds yield group records.
func (s *SQL) Get(ctx context.Context, feedID string, params feed.Params) ([]activity.Record, error) {
	start := time.Now()
	recs, err := s.get(ctx, feedID, params)
	observability.RecordTransport("get", start, err)
	if err != nil {
		return nil, wrap("get", err)
	}
	return recs, nil
}

func (s *SQL) get(ctx context.Context, feedID string, params feed.Params) ([]activity.Record, error) {
	if ranking := params.String(string(feed.ParamRanking)); ranking != "" && ranking != "time" {
		return nil, errors.NewInvalidRequest("unsupported ranking: " + ranking)
	}

	limit, _ := params.Int(string(feed.ParamLimit))
	limit = s.cfg.ClampLimit(limit)
	offset, _ := params.Int(string(feed.ParamOffset))
	if offset < 0 {
		return nil, errors.NewInvalidRequest("offset must not be negative")
	}

	kindName, err := db.GetFeedKind(ctx, s.db, feedID)
	if err != nil {
		return nil, err
	}
	kind, err := feed.ParseKind(kindName)
	if err != nil {
		return nil, err
	}

	q := db.ListQuery{
		FeedID: feedID,
		IDLT:   params.String(paramIDLT),
		IDLTE:  params.String(paramIDLTE),
		IDGT:   params.String(paramIDGT),
		IDGTE:  params.String(paramIDGTE),
	}

	if kind == feed.KindFlat {
		q.Limit, q.Offset = limit, offset
		rows, err := db.ListActivities(ctx, s.db, q)
		if err != nil {
			return nil, err
		}
		out := make([]activity.Record, 0, len(rows))
		for _, row := range rows {
			out = append(out, toRecord(row))
		}
		return out, nil
	}

	// Cursors and pages address groups, not the activities inside them.
	cursor := q
	q.IDLT, q.IDLTE, q.IDGT, q.IDGTE = "", "", "", ""
	rows, err := db.ListActivities(ctx, s.db, q)
	if err != nil {
		return nil, err
	}
	groups := page(filterGroups(aggregate(rows), cursor), limit, offset)

	if kind == feed.KindNotification {
		if err := s.applyMarks(ctx, feedID, groups, rows, params); err != nil {
			return nil, err
		}
	}

	out := make([]activity.Record, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.record())
	}
	return out, nil
}

// applyMarks reports each group's read/seen state as it was before this
// request, then records the requested marks.
func (s *SQL) applyMarks(ctx context.Context, feedID string, groups []*group, all []*db.Activity, params feed.Params) error {
	marks, err := db.GetMarks(ctx, s.db, feedID)
	if err != nil {
		return err
	}
	for _, g := range groups {
		g.read, g.seen = true, true
		for _, a := range g.rows {
			m := marks[a.ID]
			g.read = g.read && m.Read
			g.seen = g.seen && m.Seen
		}
		g.marked = true
	}

	byGroup := make(map[string][]string)
	var every []string
	for _, a := range all {
		id := groupID(a)
		byGroup[id] = append(byGroup[id], a.ID)
		every = append(every, a.ID)
	}

	for _, m := range []struct {
		param      feed.Param
		read, seen bool
	}{
		{feed.ParamMarkRead, true, false},
		{feed.ParamMarkSeen, false, true},
	} {
		v, ok := params.Get(string(m.param))
		if !ok {
			continue
		}
		ids, err := markTargets(v, every, byGroup)
		if err != nil {
			return err
		}
		if err := db.MarkActivities(ctx, s.db, feedID, ids, m.read, m.seen); err != nil {
			return err
		}
	}
	return nil
}

// markTargets resolves a mark parameter: true marks every activity in the
// feed, a list marks the activities of the listed groups.
func markTargets(v any, every []string, byGroup map[string][]string) ([]string, error) {
	if b, ok := v.(bool); ok {
		if b {
			return every, nil
		}
		return nil, nil
	}
	groupIDs, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil, errors.NewInvalidRequest("mark parameters take true or a list of group ids")
	}
	var ids []string
	for _, gid := range groupIDs {
		ids = append(ids, byGroup[gid]...)
	}
	return ids, nil
}

// AddActivity stores rec in the feed. Adding the same foreign id and time
// twice returns the first activity.
func (s *SQL) AddActivity(ctx context.Context, feedID string, rec activity.Record) (activity.Record, error) {
	start := time.Now()
	out, err := s.addActivity(ctx, feedID, rec)
	observability.RecordTransport("add_activity", start, err)
	if err != nil {
		return nil, wrap("add_activity", err)
	}
	return out, nil
}

func (s *SQL) addActivity(ctx context.Context, feedID string, rec activity.Record) (activity.Record, error) {
	now := s.now()
	row, err := fromRecord(rec, now)
	if err != nil {
		return nil, err
	}
	id, err := activityID(row.Time)
	if err != nil {
		return nil, err
	}
	row.ID = id
	row.FeedID = feedID
	row.CreatedAt = now.Unix()
	row.UpdatedAt = row.CreatedAt

	err = db.InsertActivity(ctx, s.db, row)
	if err == db.ErrUniqueConstraint {
		existing, err := db.GetByForeignID(ctx, s.db, feedID, row.ForeignID, row.Time)
		if err != nil {
			return nil, err
		}
		return toRecord(existing), nil
	}
	if err != nil {
		return nil, err
	}
	return toRecord(row), nil
}

// UpdateActivity rewrites the activity with rec's foreign_id and time in every feed.
func (s *SQL) UpdateActivity(ctx context.Context, rec activity.Record) error {
	start := time.Now()
	err := s.updateActivity(ctx, rec)
	observability.RecordTransport("update_activity", start, err)
	return wrap("update_activity", err)
}

func (s *SQL) updateActivity(ctx context.Context, rec activity.Record) error {
	if _, ok := rec[activity.FieldTime]; !ok {
		return errors.NewInvalidRequest("update requires foreign_id and time")
	}
	row, err := fromRecord(rec, s.now())
	if err != nil {
		return err
	}
	if row.ForeignID == "" {
		return errors.NewInvalidRequest("update requires foreign_id and time")
	}
	_, err = db.UpdateByForeignID(ctx, s.db, row)
	return err
}

// RemoveActivity removes an activity by id, or by foreign id when foreignID is set.
func (s *SQL) RemoveActivity(ctx context.Context, feedID, id string, foreignID bool) error {
	start := time.Now()
	err := db.DeleteActivity(ctx, s.db, feedID, id, foreignID)
	observability.RecordTransport("remove_activity", start, err)
	return wrap("remove_activity", err)
}

// wrap reports store failures as TRANSPORT errors. Caller mistakes and
// missing activities keep their own codes.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, code := range []errors.ErrorCode{errors.ErrInvalidRequest, errors.ErrInvalidArgument, errors.ErrNotFound} {
		if errors.Is(err, code) {
			return err
		}
	}
	return errors.NewTransport(op, err)
}

// activityID returns a ULID stamped with the activity time rather than the
// insert time, so id order follows feed order for back-dated activities.
func activityID(at string) (string, error) {
	t, err := time.Parse(db.TimeLayout, at)
	if err != nil {
		return "", errors.NewInvalidRequest("invalid activity time: " + err.Error())
	}
	if t.Before(time.UnixMilli(0)) {
		t = time.UnixMilli(0)
	}
	id, err := ulid.New(ulid.Timestamp(t), ulid.DefaultEntropy())
	if err != nil {
		return "", errors.NewInvalidRequest("invalid activity time: " + err.Error())
	}
	return id.String(), nil
}

// fromRecord validates rec and converts it to a row. Time defaults to now.
func fromRecord(rec activity.Record, now time.Time) (*db.Activity, error) {
	row := &db.Activity{
		ForeignID: cast.ToString(rec[activity.FieldForeignID]),
		Actor:     cast.ToString(rec[activity.FieldActor]),
		Verb:      cast.ToString(rec[activity.FieldVerb]),
		Object:    cast.ToString(rec[activity.FieldObject]),
		Target:    cast.ToString(rec[activity.FieldTarget]),
	}
	if row.Actor == "" || row.Verb == "" || row.Object == "" {
		return nil, errors.NewInvalidRequest("activity requires actor, verb and object")
	}

	row.Time = db.FormatTime(now)
	if v, ok := rec[activity.FieldTime]; ok && v != nil && v != "" {
		t, err := db.NormalizeTime(v)
		if err != nil {
			return nil, err
		}
		row.Time = t
	}

	for k, v := range rec {
		if !coreFields[k] {
			if row.Extra == nil {
				row.Extra = make(map[string]any)
			}
			row.Extra[k] = v
		}
	}
	return row, nil
}

// toRecord converts a row back into the record shape the feed service returns.
func toRecord(a *db.Activity) activity.Record {
	rec := activity.Record{}
	for k, v := range a.Extra {
		rec[k] = v
	}
	rec[activity.FieldID] = a.ID
	rec[activity.FieldActor] = a.Actor
	rec[activity.FieldVerb] = a.Verb
	rec[activity.FieldObject] = a.Object
	rec[activity.FieldTime] = a.Time
	if a.ForeignID != "" {
		rec[activity.FieldForeignID] = a.ForeignID
	}
	if a.Target != "" {
		rec[activity.FieldTarget] = a.Target
	}
	return rec
}

// group is the aggregation of one verb on one UTC day.
type group struct {
	id   string
	verb string
	rows []*db.Activity // newest first

	marked     bool
	read, seen bool
}

// groupID returns "<verb>:<yyyy-mm-dd>" for the activity's UTC day. Stored
// times are UTC, so the day is the first ten bytes.
func groupID(a *db.Activity) string {
	day := a.Time
	if len(day) >= 10 {
		day = day[:10]
	}
	return a.Verb + ":" + day
}

// aggregate groups rows (newest first) by verb and day, most recently
// updated group first.
func aggregate(rows []*db.Activity) []*group {
	var (
		groups []*group
		byID   = make(map[string]*group)
	)
	for _, a := range rows {
		id := groupID(a)
		g, ok := byID[id]
		if !ok {
			g = &group{id: id, verb: a.Verb}
			byID[id] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, a)
	}
	// Rows arrive newest first, so first appearance already orders groups by
	// their latest activity; the stable sort only settles equal times.
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].rows[0].Time > groups[j].rows[0].Time
	})
	return groups
}

func filterGroups(groups []*group, q db.ListQuery) []*group {
	out := groups[:0:0]
	for _, g := range groups {
		if q.IDLT != "" && !(g.id < q.IDLT) ||
			q.IDLTE != "" && !(g.id <= q.IDLTE) ||
			q.IDGT != "" && !(g.id > q.IDGT) ||
			q.IDGTE != "" && !(g.id >= q.IDGTE) {
			continue
		}
		out = append(out, g)
	}
	return out
}

func page(groups []*group, limit, offset int) []*group {
	if offset >= len(groups) {
		return nil
	}
	groups = groups[offset:]
	if limit > 0 && limit < len(groups) {
		groups = groups[:limit]
	}
	return groups
}

func (g *group) record() activity.Record {
	actors := make(map[string]bool)
	acts := make([]any, 0, len(g.rows))
	for _, a := range g.rows {
		actors[a.Actor] = true
		acts = append(acts, toRecord(a))
	}

	rec := activity.Record{
		activity.FieldID:         g.id,
		"group":                  g.id,
		activity.FieldVerb:       g.verb,
		"activity_count":         len(g.rows),
		"actor_count":            len(actors),
		"created_at":             g.rows[len(g.rows)-1].Time,
		"updated_at":             g.rows[0].Time,
		activity.FieldActivities: acts,
	}
	if g.marked {
		rec["is_read"] = g.read
		rec["is_seen"] = g.seen
	}
	return rec
}
