package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/hpungsan/feedq/internal/errors"
)

// PutObject stores the data of a referenced object under ref ("<type>:<id>").
func PutObject(ctx context.Context, db *sql.DB, ref string, data map[string]any) error {
	typ, _, ok := strings.Cut(ref, ":")
	if !ok || typ == "" {
		return errors.NewInvalidRequest("object ref must have the form <type>:<id>")
	}
	if data == nil {
		data = map[string]any{}
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return errors.NewInternal(err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO objects (ref, type, data_json, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(ref) DO UPDATE SET
			type = excluded.type,
			data_json = excluded.data_json,
			updated_at = excluded.updated_at
	`, ref, typ, string(raw), time.Now().Unix())
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Objects looks up stored objects by reference.
type Objects struct {
	DB *sql.DB
}

// LookupObjects returns the stored data of every ref that exists. Missing refs
// are absent from the result.
func (o Objects) LookupObjects(ctx context.Context, refs []string) (map[string]map[string]any, error) {
	out := make(map[string]map[string]any, len(refs))
	if len(refs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(refs)), ",")
	args := make([]any, len(refs))
	for i, r := range refs {
		args[i] = r
	}

	rows, err := o.DB.QueryContext(ctx,
		`SELECT ref, data_json FROM objects WHERE ref IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		var ref, raw string
		if err := rows.Scan(&ref, &raw); err != nil {
			return nil, errors.NewInternal(err)
		}
		data := map[string]any{}
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, errors.NewInternal(err)
		}
		out[ref] = data
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return out, nil
}
