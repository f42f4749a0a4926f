package activities

import (
	"context"
	"errors"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yourorg/cc-corpus/internal/iopkg"
	"github.com/yourorg/cc-corpus/internal/pipeline"
	"github.com/yourorg/cc-corpus/internal/record"
	"github.com/yourorg/cc-corpus/internal/storage"
	"github.com/yourorg/cc-corpus/internal/types"
)

type Config struct {
	// Layout is this worker's storage tree; it overrides the layout of
	// records passed in by the workflow.
	Layout record.Layout
}

type Activities struct {
	cfg    Config
	runner *pipeline.Runner
}

func New(cfg Config, runner *pipeline.Runner) *Activities {
	return &Activities{cfg: cfg, runner: runner}
}

// Overridden in tests.
var storeFor = storage.ForURI

const heartbeatEvery = 10 * time.Second

// Precondition and data errors fail the activity for good; anything else
// (network, disk) is left to the retry policy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, record.ErrNotVoid),
		errors.Is(err, record.ErrNotSourced),
		errors.Is(err, record.ErrNotStaged),
		errors.Is(err, record.ErrNotPreprocessed),
		errors.Is(err, record.ErrMalformedURL),
		errors.Is(err, record.ErrInvalidStage),
		errors.Is(err, record.ErrEmptyHistory):
		return temporal.NewNonRetryableApplicationError(err.Error(), "Precondition", err)
	case errors.Is(err, record.ErrExtraction),
		errors.Is(err, record.ErrSourceMissing),
		errors.Is(err, iopkg.ErrDestinationExists),
		errors.Is(err, iopkg.ErrUnsupportedScheme):
		return temporal.NewNonRetryableApplicationError(err.Error(), "StageFailed", err)
	}
	return err
}

func (a *Activities) load(p types.RecordParams) (*record.Record, error) {
	if p.Record == nil {
		return record.FromURL(p.URL, a.cfg.Layout)
	}
	rec := *p.Record
	rec.History = append([]record.Stage(nil), p.Record.History...)
	rec.Layout = a.cfg.Layout
	return &rec, nil
}

// heartbeat records progress on a ticker until stop is called.
func heartbeat(ctx context.Context, id string) (stop func()) {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(heartbeatEvery)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx, id)
			}
		}
	}()
	return func() { close(done) }
}
