package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/yourorg/cc-corpus/internal/app"
	"github.com/yourorg/cc-corpus/internal/config"
	"github.com/yourorg/cc-corpus/internal/dispatch"
	"github.com/yourorg/cc-corpus/internal/ledger"
	"github.com/yourorg/cc-corpus/internal/logging"
	ccmetrics "github.com/yourorg/cc-corpus/internal/metrics"
	"github.com/yourorg/cc-corpus/internal/quality"
	"github.com/yourorg/cc-corpus/internal/storage"
)

type outcomeView struct {
	dispatch.Outcome
	Error string `json:"error,omitempty"`
}

func runBatch(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file (yaml)")
	jobsFile := fs.String("jobs", "", "file with one crawl url per line, optionally followed by a source location")
	root := fs.String("root", "", "storage root (cc_path) override")
	workers := fs.Int("workers", 0, "parallel archives; 0 keeps the config value")
	policy := fs.String("policy", "", "fail_fast|collect_all")
	overwrite := fs.String("overwrite", "", "always|never|rename")
	ledgerDir := fs.String("ledger", "", "badger ledger directory for resume")
	publish := fs.String("publish", "", "s3:// or file:// prefix to upload outputs to")
	cleanup := fs.Bool("cleanup", false, "remove source and staging files after extraction")
	legacy := fs.Bool("legacy-filter", false, "use the 20-word filter variant without the stop-word check")
	skipExtract := fs.Bool("skip-extract-errors", false, "drop captures the extractor fails on instead of failing the archive")
	serveMetrics := fs.Bool("metrics", false, "serve /metrics while running")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	override(&cfg.Root, *root)
	override(&cfg.Policy, *policy)
	override(&cfg.Overwrite, *overwrite)
	override(&cfg.LedgerDir, *ledgerDir)
	override(&cfg.PublishURI, *publish)
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *cleanup {
		cfg.Cleanup = true
	}
	if *legacy {
		cfg.Quality = quality.LegacyConfig()
	}
	if *skipExtract {
		cfg.SkipExtractErrors = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	jobs, err := collectJobs(fs.Args(), *jobsFile)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fs.Usage()
		return errors.New("no jobs: pass crawl urls or --jobs")
	}

	zl := logging.New(cfg.Log.Level)
	defer zl.Sync()

	if *serveMetrics {
		ccmetrics.Init()
		go func() {
			if err := ccmetrics.Serve(cfg.Metrics.Addr); err != nil {
				zl.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := &dispatch.Dispatcher{
		Runner:  app.NewRunner(cfg, zl),
		Layout:  cfg.Layout(),
		Workers: cfg.Workers,
		Policy:  cfg.BatchPolicy(),
		Cleanup: cfg.Cleanup,
		Logger:  zl,
	}
	if cfg.LedgerDir != "" {
		l, err := ledger.Open(cfg.LedgerDir)
		if err != nil {
			return err
		}
		defer l.Close()
		d.Ledger = l
	}
	if cfg.PublishURI != "" {
		st, err := storage.ForURI(ctx, cfg.PublishURI)
		if err != nil {
			return err
		}
		d.Store, d.PublishPrefix = st, cfg.PublishURI
	}

	out, runErr := d.Run(ctx, jobs)
	if *jsonOut {
		views := make([]outcomeView, len(out))
		for i, o := range out {
			views[i] = outcomeView{Outcome: o}
			if o.Err != nil {
				views[i].Error = o.Err.Error()
			}
		}
		if err := printJSON(views); err != nil {
			return err
		}
		return runErr
	}
	for _, o := range out {
		id, stage := "-", "-"
		if o.Record != nil {
			id, stage = o.Record.ID, o.Record.Stage.String()
		}
		switch {
		case o.Err != nil:
			fmt.Fprintf(stdout, "FAIL  %s  %s  %v\n", id, stage, o.Err)
		case o.Skipped:
			fmt.Fprintf(stdout, "SKIP  %s  %s\n", id, stage)
		default:
			fmt.Fprintf(stdout, "OK    %s  seen=%d accepted=%d\n", id, o.Stats.Seen, o.Stats.Accepted)
		}
	}
	ok, failed, skipped := dispatch.Summarize(out)
	fmt.Fprintf(stdout, "ok: %d  failed: %d  skipped: %d\n", ok, failed, skipped)
	return runErr
}

func override(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// collectJobs merges positional urls with the lines of file. Blank lines
// and # comments are ignored.
func collectJobs(args []string, file string) ([]dispatch.Job, error) {
	var jobs []dispatch.Job
	for _, a := range args {
		jobs = append(jobs, dispatch.Job{URL: a})
	}
	if file == "" {
		return jobs, nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch len(fields) {
		case 1:
			jobs = append(jobs, dispatch.Job{URL: fields[0]})
		case 2:
			jobs = append(jobs, dispatch.Job{URL: fields[0], Source: fields[1]})
		default:
			return nil, fmt.Errorf("%s:%d: expected \"url [source]\"", file, n)
		}
	}
	return jobs, sc.Err()
}
