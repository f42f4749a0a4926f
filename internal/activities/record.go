package activities

import (
	"context"

	"go.temporal.io/sdk/activity"

	"github.com/yourorg/cc-corpus/internal/pipeline"
	"github.com/yourorg/cc-corpus/internal/record"
	"github.com/yourorg/cc-corpus/internal/types"
)

// FetchRecord copies the source archive of a Void record into the layout.
func (a *Activities) FetchRecord(ctx context.Context, p types.RecordParams) (types.RecordResult, error) {
	rec, err := a.load(p)
	if err != nil {
		return types.RecordResult{}, classify(err)
	}
	stop := heartbeat(ctx, rec.ID)
	defer stop()
	rec, err = a.runner.Fetch(ctx, rec, p.Source)
	if err != nil {
		return types.RecordResult{}, classify(err)
	}
	activity.GetLogger(ctx).Info("record fetched", "record", rec.ID)
	return types.RecordResult{Record: *rec}, nil
}

// StageRecord decompresses the fetched archive.
func (a *Activities) StageRecord(ctx context.Context, p types.RecordParams) (types.RecordResult, error) {
	rec, err := a.load(p)
	if err != nil {
		return types.RecordResult{}, classify(err)
	}
	stop := heartbeat(ctx, rec.ID)
	defer stop()
	rec, err = a.runner.Stage(ctx, rec)
	if err != nil {
		return types.RecordResult{}, classify(err)
	}
	return types.RecordResult{Record: *rec}, nil
}

// ProcessRecord extracts and filters the documents of a staged archive.
// An attempt interrupted mid-extraction is retried from Staged.
func (a *Activities) ProcessRecord(ctx context.Context, p types.RecordParams) (types.RecordResult, error) {
	rec, err := a.load(p)
	if err != nil {
		return types.RecordResult{}, classify(err)
	}
	if rec.Stage == record.Preprocessing {
		if err := rec.Rewind(); err != nil {
			return types.RecordResult{}, classify(err)
		}
	}

	// Progress is per attempt; the shared runner stays untouched
	loop := *a.runner.Loop
	loop.Progress = func(st pipeline.Stats) {
		activity.RecordHeartbeat(ctx, map[string]any{"record": rec.ID, "seen": st.Seen, "accepted": st.Accepted})
	}
	runner := *a.runner
	runner.Loop = &loop

	rec, st, err := runner.Process(ctx, rec)
	if err != nil {
		return types.RecordResult{}, classify(err)
	}
	activity.GetLogger(ctx).Info("record processed", "record", rec.ID, "seen", st.Seen, "accepted", st.Accepted)
	return types.RecordResult{Record: *rec, Stats: st}, nil
}

// PublishRecord uploads the extracted output under p.PublishURI.
func (a *Activities) PublishRecord(ctx context.Context, p types.RecordParams) (types.RecordResult, error) {
	rec, err := a.load(p)
	if err != nil {
		return types.RecordResult{}, classify(err)
	}
	st, err := storeFor(ctx, p.PublishURI)
	if err != nil {
		return types.RecordResult{}, classify(err)
	}
	stop := heartbeat(ctx, rec.ID)
	defer stop()
	uri, err := a.runner.Publish(ctx, rec, st, p.PublishURI)
	if err != nil {
		return types.RecordResult{}, classify(err)
	}
	return types.RecordResult{Record: *rec, Published: uri}, nil
}
