package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yourorg/cc-corpus/internal/dispatch"
	"github.com/yourorg/cc-corpus/internal/record"
	"github.com/yourorg/cc-corpus/internal/types"
)

// Activity names, as registered by the worker.
const (
	FetchActivity   = "Activities.FetchRecord"
	StageActivity   = "Activities.StageRecord"
	ProcessActivity = "Activities.ProcessRecord"
	PublishActivity = "Activities.PublishRecord"
	CleanupActivity = "Activities.CleanupRecord"
)

// BatchWorkflow takes every job of the batch to Preprocessed, one
// coroutine per record. Parallelism is bounded by the workers' activity
// slots. Under fail_fast the first failure cancels the rest and fails the
// workflow; under collect_all failures are only reported in the result.
func BatchWorkflow(ctx workflow.Context, p types.BatchParams) (types.BatchResult, error) {
	policy, err := dispatch.ParsePolicy(p.Policy)
	if err != nil {
		return types.BatchResult{}, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidParams", err)
	}
	urls := make([]string, len(p.Jobs))
	for i, j := range p.Jobs {
		urls[i] = j.URL
	}
	if err := dispatch.CheckDistinct(urls); err != nil {
		return types.BatchResult{}, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidParams", err)
	}
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		HeartbeatTimeout:    1 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	}
	root := ctx
	ctx, cancel := workflow.WithCancel(workflow.WithActivityOptions(ctx, ao))
	// Extraction heartbeats per 1000 captures; give it more slack.
	processAO := ao
	processAO.HeartbeatTimeout = 5 * time.Minute
	processCtx := workflow.WithActivityOptions(ctx, processAO)

	res := types.BatchResult{Outcomes: make([]types.RecordOutcome, len(p.Jobs))}
	var firstErr error
	wg := workflow.NewWaitGroup(root)
	for i, j := range p.Jobs {
		wg.Add(1)
		workflow.Go(ctx, func(gctx workflow.Context) {
			defer wg.Done()
			out, err := runRecord(gctx, processCtx, p, j)
			res.Outcomes[i] = out
			if err != nil && firstErr == nil {
				firstErr = err
				if policy == dispatch.FailFast {
					cancel()
				}
			}
		})
	}
	wg.Wait(root)
	cancel()

	for _, o := range res.Outcomes {
		if o.Error != "" {
			res.Failed++
		} else {
			res.OK++
		}
	}
	workflow.GetLogger(root).Info("batch finished", "ok", res.OK, "failed", res.Failed)
	if policy == dispatch.FailFast && firstErr != nil {
		return res, firstErr
	}
	return res, nil
}

func runRecord(ctx, processCtx workflow.Context, p types.BatchParams, j types.JobSpec) (types.RecordOutcome, error) {
	out := types.RecordOutcome{URL: j.URL, Stage: record.Void.String()}
	var cur types.RecordResult
	step := func(c workflow.Context, name string, params types.RecordParams) error {
		var next types.RecordResult
		if err := workflow.ExecuteActivity(c, name, params).Get(c, &next); err != nil {
			return err
		}
		cur = next
		out.RecordID = cur.Record.ID
		out.Stage = cur.Record.Stage.String()
		return nil
	}
	fail := func(err error) (types.RecordOutcome, error) {
		out.Stage = record.Error.String()
		out.Error = err.Error()
		return out, err
	}

	if err := step(ctx, FetchActivity, types.RecordParams{URL: j.URL, Source: j.Source}); err != nil {
		return fail(err)
	}
	if err := step(ctx, StageActivity, types.RecordParams{Record: &cur.Record}); err != nil {
		return fail(err)
	}
	if err := step(processCtx, ProcessActivity, types.RecordParams{Record: &cur.Record}); err != nil {
		return fail(err)
	}
	out.Stats = cur.Stats
	if p.PublishURI != "" {
		if err := step(ctx, PublishActivity, types.RecordParams{Record: &cur.Record, PublishURI: p.PublishURI}); err != nil {
			return fail(err)
		}
		out.Published = cur.Published
	}
	if p.Cleanup {
		if err := step(ctx, CleanupActivity, types.RecordParams{Record: &cur.Record}); err != nil {
			return fail(err)
		}
	}
	return out, nil
}
