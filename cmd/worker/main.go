package main

import (
	"log"

	tactivity "go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/yourorg/cc-corpus/internal/activities"
	"github.com/yourorg/cc-corpus/internal/app"
	"github.com/yourorg/cc-corpus/internal/config"
	"github.com/yourorg/cc-corpus/internal/dispatch"
	"github.com/yourorg/cc-corpus/internal/logging"
	ccmetrics "github.com/yourorg/cc-corpus/internal/metrics"
	"github.com/yourorg/cc-corpus/internal/workflow"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal("config:", err)
	}
	slots := cfg.Workers
	if slots == 0 {
		slots = dispatch.DefaultWorkers()
	}

	zl := logging.New(cfg.Log.Level)
	defer zl.Sync()

	ccmetrics.Init()
	go func() {
		if err := ccmetrics.Serve(cfg.Metrics.Addr); err != nil {
			zl.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	c, err := client.Dial(client.Options{HostPort: cfg.Temporal.HostPort, Namespace: cfg.Temporal.Namespace})
	if err != nil {
		log.Fatal("temporal client:", err)
	}
	defer c.Close()

	// One activity slot per archive; extraction is CPU bound.
	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{MaxConcurrentActivityExecutionSize: slots})
	acts := activities.New(activities.Config{Layout: cfg.Layout()}, app.NewRunner(cfg, zl))
	w.RegisterActivityWithOptions(acts.FetchRecord, tactivity.RegisterOptions{Name: workflow.FetchActivity})
	w.RegisterActivityWithOptions(acts.StageRecord, tactivity.RegisterOptions{Name: workflow.StageActivity})
	w.RegisterActivityWithOptions(acts.ProcessRecord, tactivity.RegisterOptions{Name: workflow.ProcessActivity})
	w.RegisterActivityWithOptions(acts.PublishRecord, tactivity.RegisterOptions{Name: workflow.PublishActivity})
	w.RegisterActivityWithOptions(acts.CleanupRecord, tactivity.RegisterOptions{Name: workflow.CleanupActivity})
	w.RegisterWorkflow(workflow.BatchWorkflow)

	zl.Info("worker started",
		zap.String("namespace", cfg.Temporal.Namespace),
		zap.String("taskQueue", cfg.Temporal.TaskQueue),
		zap.String("root", cfg.Root),
		zap.Int("slots", slots),
		zap.String("metrics", cfg.Metrics.Addr),
	)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal("worker failed:", err)
	}
}
