package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/hpungsan/feedq/internal/errors"
)

// TimeLayout is the fixed-width UTC layout activity times are stored in, so
// that string order is time order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.FeedError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// Activity is one stored activity row.
type Activity struct {
	ID        string
	FeedID    string
	ForeignID string
	Actor     string
	Verb      string
	Object    string
	Target    string
	Time      string
	Extra     map[string]any
	CreatedAt int64
	UpdatedAt int64
}

// ListQuery selects a page of a feed's activities. Zero values are unset;
// a zero Limit returns every matching row.
type ListQuery struct {
	FeedID string
	IDLT   string
	IDLTE  string
	IDGT   string
	IDGTE  string
	Limit  int
	Offset int
}

// Mark is the read/seen state of an activity in a feed.
type Mark struct {
	Read bool
	Seen bool
}

// FormatTime returns t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// NormalizeTime coerces a time value (time.Time, RFC 3339 string, unix
// seconds) to TimeLayout.
func NormalizeTime(v any) (string, error) {
	t, err := cast.ToTimeE(v)
	if err != nil {
		return "", errors.NewInvalidRequest("invalid activity time: " + err.Error())
	}
	return FormatTime(t), nil
}

// InsertActivity stores a new activity.
func InsertActivity(ctx context.Context, db *sql.DB, a *Activity) error {
	extraJSON, err := toNullJSON(a.Extra)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO activities (
			id, feed_id, foreign_id, actor, verb, object, target,
			time, extra_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.ExecContext(ctx, query,
		a.ID, a.FeedID, toNullString(a.ForeignID), a.Actor, a.Verb, a.Object,
		toNullString(a.Target), a.Time, extraJSON, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const activityColumns = `
	id, feed_id, foreign_id, actor, verb, object, target,
	time, extra_json, created_at, updated_at
`

// GetByForeignID retrieves a feed's activity by foreign id and time.
func GetByForeignID(ctx context.Context, db *sql.DB, feedID, foreignID, at string) (*Activity, error) {
	query := `SELECT ` + activityColumns + `
		FROM activities
		WHERE feed_id = ? AND foreign_id = ? AND time = ?
	`

	a, err := scanActivity(db.QueryRowContext(ctx, query, feedID, foreignID, at))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(foreignID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return a, nil
}

// cursorTime returns the time of the cursor activity, or "" when the feed
// no longer holds it.
func cursorTime(ctx context.Context, db *sql.DB, feedID, id string) (string, error) {
	var at string
	err := db.QueryRowContext(ctx,
		`SELECT time FROM activities WHERE feed_id = ? AND id = ?`, feedID, id,
	).Scan(&at)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return at, nil
}

// ListActivities returns a feed's activities newest first.
func ListActivities(ctx context.Context, db *sql.DB, q ListQuery) ([]*Activity, error) {
	var (
		where = []string{"feed_id = ?"}
		args  = []any{q.FeedID}
	)
	for _, c := range []struct {
		op    string
		value string
	}{
		{"<", q.IDLT}, {"<=", q.IDLTE}, {">", q.IDGT}, {">=", q.IDGTE},
	} {
		if c.value == "" {
			continue
		}
		at, err := cursorTime(ctx, db, q.FeedID, c.value)
		if err != nil {
			return nil, err
		}
		if at == "" {
			where = append(where, "id "+c.op+" ?")
			args = append(args, c.value)
			continue
		}
		// Cursors compare by feed position, so an activity stored after
		// the cursor with an earlier time is still on a later page.
		where = append(where, "(time "+c.op[:1]+" ? OR (time = ? AND id "+c.op+" ?))")
		args = append(args, at, at, c.value)
	}

	query := `SELECT ` + activityColumns + `
		FROM activities
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY time DESC, id DESC
	`
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []*Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return out, nil
}

// UpdateByForeignID rewrites the mutable fields of every activity, in any
// feed, with the given foreign id and time. Returns the number of rows changed.
func UpdateByForeignID(ctx context.Context, db *sql.DB, a *Activity) (int64, error) {
	extraJSON, err := toNullJSON(a.Extra)
	if err != nil {
		return 0, err
	}

	query := `
		UPDATE activities
		SET actor = ?, verb = ?, object = ?, target = ?, extra_json = ?, updated_at = ?
		WHERE foreign_id = ? AND time = ?
	`

	result, err := db.ExecContext(ctx, query,
		a.Actor, a.Verb, a.Object, toNullString(a.Target), extraJSON, time.Now().Unix(),
		a.ForeignID, a.Time,
	)
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return 0, errors.NewNotFound(a.ForeignID)
	}

	return rowsAffected, nil
}

// DeleteActivity removes a feed's activity by id, or every activity with the
// given foreign id when byForeignID is set. Marks of removed activities go
// with them.
func DeleteActivity(ctx context.Context, db *sql.DB, feedID, id string, byForeignID bool) error {
	column := "id"
	if byForeignID {
		column = "foreign_id"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM activity_marks
		WHERE feed_id = ? AND activity_id IN (
			SELECT id FROM activities WHERE feed_id = ? AND `+column+` = ?
		)
	`, feedID, feedID, id)
	if err != nil {
		return errors.NewInternal(err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM activities WHERE feed_id = ? AND `+column+` = ?`, feedID, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetMarks returns the read/seen state of every marked activity in a feed,
// keyed by activity id.
func GetMarks(ctx context.Context, db *sql.DB, feedID string) (map[string]Mark, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT activity_id, read_at, seen_at
		FROM activity_marks
		WHERE feed_id = ?
	`, feedID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	marks := make(map[string]Mark)
	for rows.Next() {
		var (
			id     string
			readAt sql.NullInt64
			seenAt sql.NullInt64
		)
		if err := rows.Scan(&id, &readAt, &seenAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		marks[id] = Mark{Read: readAt.Valid, Seen: seenAt.Valid}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return marks, nil
}

// MarkActivities records the given activities as read and/or seen. Existing
// marks are kept.
func MarkActivities(ctx context.Context, db *sql.DB, feedID string, activityIDs []string, read, seen bool) error {
	if len(activityIDs) == 0 || (!read && !seen) {
		return nil
	}

	now := time.Now().Unix()
	var readAt, seenAt sql.NullInt64
	if read {
		readAt = sql.NullInt64{Int64: now, Valid: true}
	}
	if seen {
		seenAt = sql.NullInt64{Int64: now, Valid: true}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO activity_marks (feed_id, activity_id, read_at, seen_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(feed_id, activity_id) DO UPDATE SET
			read_at = COALESCE(activity_marks.read_at, excluded.read_at),
			seen_at = COALESCE(activity_marks.seen_at, excluded.seen_at)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for _, id := range activityIDs {
		if _, err := stmt.ExecContext(ctx, feedID, id, readAt, seenAt); err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// SetFeedKind records the kind of a feed, replacing any earlier one.
func SetFeedKind(ctx context.Context, db *sql.DB, feedID, kind string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO feeds (id, kind) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET kind = excluded.kind
	`, feedID, kind)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetFeedKind returns the recorded kind of a feed, or "" if none was set.
func GetFeedKind(ctx context.Context, db *sql.DB, feedID string) (string, error) {
	var kind string
	err := db.QueryRowContext(ctx, `SELECT kind FROM feeds WHERE id = ?`, feedID).Scan(&kind)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return kind, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanActivity scans a single row into an Activity struct.
func scanActivity(row rowScanner) (*Activity, error) {
	var (
		a         Activity
		foreignID sql.NullString
		target    sql.NullString
		extraJSON sql.NullString
	)

	err := row.Scan(
		&a.ID, &a.FeedID, &foreignID, &a.Actor, &a.Verb, &a.Object, &target,
		&a.Time, &extraJSON, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.ForeignID = foreignID.String
	a.Target = target.String

	if extraJSON.Valid && extraJSON.String != "" {
		if err := json.Unmarshal([]byte(extraJSON.String), &a.Extra); err != nil {
			return nil, err
		}
	}

	return &a, nil
}

// toNullJSON marshals m, or returns NULL for an empty map.
func toNullJSON(m map[string]any) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, errors.NewInternal(err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// toNullString maps "" to NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
