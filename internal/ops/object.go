package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/feedq/internal/db"
	"github.com/hpungsan/feedq/internal/feed"
)

// PutObjectInput contains parameters for the PutObject operation.
type PutObjectInput struct {
	Ref  string
	Data map[string]any
}

// PutObjectOutput contains the result of the PutObject operation.
type PutObjectOutput struct {
	Ref  string `json:"ref"`
	Type string `json:"type"`
}

// PutObject stores the object a "<type>:<id>" reference resolves to during
// enrichment.
func PutObject(ctx context.Context, d Deps, input PutObjectInput) (*PutObjectOutput, error) {
	ref, err := feed.ForeignIDResolver{}.CanonicalID(input.Ref)
	if err != nil {
		return nil, err
	}

	if err := db.PutObject(ctx, d.DB, ref, input.Data); err != nil {
		return nil, err
	}

	typ, _, _ := strings.Cut(ref, ":")
	return &PutObjectOutput{Ref: ref, Type: typ}, nil
}
