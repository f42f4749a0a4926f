package activities

import (
	"context"

	"github.com/yourorg/cc-corpus/internal/pipeline"
	"github.com/yourorg/cc-corpus/internal/types"
)

// CleanupRecord removes the source and staging artifacts of a preprocessed
// record. It is safe to call when they are already gone.
func (a *Activities) CleanupRecord(ctx context.Context, p types.RecordParams) (types.RecordResult, error) {
	rec, err := a.load(p)
	if err != nil {
		return types.RecordResult{}, classify(err)
	}
	removed, err := pipeline.Cleanup(rec)
	if err != nil {
		return types.RecordResult{}, classify(err)
	}
	return types.RecordResult{Record: *rec, Removed: removed}, nil
}
