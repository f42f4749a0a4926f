package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourorg/cc-corpus/internal/logging"
	"github.com/yourorg/cc-corpus/internal/record"
	"github.com/yourorg/cc-corpus/internal/storage"
)

// Publish uploads the Preprocessed artifact of rec under prefix and
// returns the object URI. The record's stage does not change, and a
// failed upload does not move it to Error.
func (r *Runner) Publish(ctx context.Context, rec *record.Record, st storage.ObjectStore, prefix string) (string, error) {
	if rec.Stage != record.Preprocessed {
		return "", fmt.Errorf("publish %s: %w (at %s)", rec.ID, record.ErrNotPreprocessed, rec.Stage)
	}
	p, err := rec.Path(record.Preprocessed)
	if err != nil {
		return "", err
	}
	loc, _ := record.LocationOf(record.Preprocessed)
	uri, err := storage.PutFile(ctx, st, p, storage.ObjectURI(prefix, rec.ID, loc.Ext))
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", rec.ID, err)
	}
	logging.OrNop(r.Logger).Info("record published", zap.String("record", rec.ID), zap.String("uri", uri))
	return uri, nil
}
