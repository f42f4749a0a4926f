// Package dispatch fans the stage runner out over a batch of archives.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/cc-corpus/internal/ledger"
	"github.com/yourorg/cc-corpus/internal/logging"
	"github.com/yourorg/cc-corpus/internal/pipeline"
	"github.com/yourorg/cc-corpus/internal/record"
	"github.com/yourorg/cc-corpus/internal/storage"
)

// Policy decides what a failed job does to the rest of the batch.
type Policy int

const (
	// FailFast cancels outstanding jobs on the first failure and returns it.
	FailFast Policy = iota
	// CollectAll runs every job and reports all failures together.
	CollectAll
)

var (
	ErrBatchFailed  = errors.New("batch had failures")
	ErrDuplicateJob = errors.New("duplicate job")
)

func (p Policy) String() string {
	if p == CollectAll {
		return "collect_all"
	}
	return "fail_fast"
}

// ParsePolicy accepts fail_fast (the default for "") or collect_all.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "", "fail_fast":
		return FailFast, nil
	case "collect_all":
		return CollectAll, nil
	}
	return FailFast, fmt.Errorf("unknown policy %q", s)
}

// DefaultWorkers leaves two cores for the rest of the host.
func DefaultWorkers() int {
	if n := runtime.NumCPU() - 2; n > 1 {
		return n
	}
	return 1
}

// StageRunner is the part of pipeline.Runner the dispatcher drives.
type StageRunner interface {
	Run(ctx context.Context, rec *record.Record, src string) (*record.Record, pipeline.Stats, error)
	Publish(ctx context.Context, rec *record.Record, st storage.ObjectStore, prefix string) (string, error)
}

// Job is one archive to take to Preprocessed. Source optionally points at
// a copy of the archive (local path, s3:// or http URL).
type Job struct {
	URL    string `json:"url"`
	Source string `json:"source,omitempty"`
}

// Outcome is the result of one job, stored at the job's index.
type Outcome struct {
	Job       Job            `json:"job"`
	Record    *record.Record `json:"record,omitempty"`
	Stats     pipeline.Stats `json:"stats"`
	Published string         `json:"published,omitempty"`
	Skipped   bool           `json:"skipped,omitempty"`
	Err       error          `json:"-"`
}

// Dispatcher runs jobs with at most Workers in flight. Jobs share nothing
// but the ledger; each writes under its own record id.
type Dispatcher struct {
	Runner  StageRunner
	Layout  record.Layout
	Workers int
	Policy  Policy

	// Ledger, when set, records every outcome and lets a rerun skip or
	// resume records.
	Ledger *ledger.Ledger

	// Store and PublishPrefix enable publishing of finished records.
	Store         storage.ObjectStore
	PublishPrefix string

	// Cleanup removes source and staging artifacts once a record is done.
	Cleanup bool
	Logger  *zap.Logger
}

// Run processes jobs and returns one outcome per job in input order.
// Under FailFast the first failure is returned and jobs not yet started
// carry the cancellation error. A job naming the same record as an
// earlier one is not run; its outcome is skipped and shares the earlier
// job's record.
func (d *Dispatcher) Run(ctx context.Context, jobs []Job) ([]Outcome, error) {
	workers := d.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	log := logging.OrNop(d.Logger)
	out := make([]Outcome, len(jobs))

	g, gctx := &errgroup.Group{}, ctx
	if d.Policy == FailFast {
		g, gctx = errgroup.WithContext(ctx)
	}
	g.SetLimit(workers)
	log.Info("batch started", zap.Int("jobs", len(jobs)), zap.Int("workers", workers), zap.Stringer("policy", d.Policy))

	dups := duplicates(jobs)
	for i, j := range jobs {
		if _, dup := dups[i]; dup {
			continue
		}
		g.Go(func() error {
			out[i] = d.runOne(gctx, j)
			if out[i].Err != nil && d.Policy == FailFast {
				return out[i].Err
			}
			return nil
		})
	}
	err := g.Wait()
	for i, first := range dups {
		out[i] = Outcome{Job: jobs[i], Record: out[first].Record, Skipped: true}
		log.Warn("duplicate job skipped", zap.String("url", jobs[i].URL), zap.Int("index", i), zap.Int("first", first))
	}

	ok, failed, skipped := Summarize(out)
	log.Info("batch finished", zap.Int("ok", ok), zap.Int("failed", failed), zap.Int("skipped", skipped))
	if d.Policy == FailFast {
		return out, err
	}
	if failed == 0 {
		return out, nil
	}
	errs := []error{fmt.Errorf("%w: %d of %d jobs", ErrBatchFailed, failed, len(jobs))}
	for _, o := range out {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return out, errors.Join(errs...)
}

// duplicates maps the index of every job whose record id already
// appeared earlier in jobs to the index of that first job. Jobs with
// malformed urls are left for runOne to report.
func duplicates(jobs []Job) map[int]int {
	dups := map[int]int{}
	first := make(map[string]int, len(jobs))
	for i, j := range jobs {
		u, err := record.ParseURL(j.URL)
		if err != nil {
			continue
		}
		if k, seen := first[u.ID()]; seen {
			dups[i] = k
			continue
		}
		first[u.ID()] = i
	}
	return dups
}

// CheckDistinct fails with ErrDuplicateJob when two urls name the same
// record. Malformed urls are ignored.
func CheckDistinct(urls []string) error {
	jobs := make([]Job, len(urls))
	for i, u := range urls {
		jobs[i] = Job{URL: u}
	}
	dups := duplicates(jobs)
	for i := range urls {
		if first, ok := dups[i]; ok {
			return fmt.Errorf("%w: job %d (%s) repeats job %d", ErrDuplicateJob, i, urls[i], first)
		}
	}
	return nil
}

func (d *Dispatcher) runOne(ctx context.Context, j Job) Outcome {
	o := Outcome{Job: j}
	if err := ctx.Err(); err != nil {
		o.Err = err
		return o
	}
	rec, err := d.load(j)
	if err != nil {
		o.Err = err
		return o
	}
	o.Record = rec
	if rec.Stage >= record.Preprocessed && rec.Stage != record.Error {
		o.Skipped = true
		return o
	}

	rec, o.Stats, o.Err = d.Runner.Run(ctx, rec, j.Source)
	o.Record = rec
	if o.Err == nil && d.Store != nil && d.PublishPrefix != "" {
		o.Published, o.Err = d.Runner.Publish(ctx, rec, d.Store, d.PublishPrefix)
	}
	if o.Err == nil && d.Cleanup {
		_, o.Err = pipeline.Cleanup(rec)
	}
	if d.Ledger != nil {
		if err := d.Ledger.Put(rec, o.Err); err != nil && o.Err == nil {
			o.Err = fmt.Errorf("ledger %s: %w", rec.ID, err)
		}
	}
	return o
}

// load builds the record for j, resuming from the ledger when it knows
// the id. A failed record is rewound to its last good stage.
func (d *Dispatcher) load(j Job) (*record.Record, error) {
	rec, err := record.FromURL(j.URL, d.Layout)
	if err != nil || d.Ledger == nil {
		return rec, err
	}
	e, err := d.Ledger.Get(rec.ID)
	if errors.Is(err, ledger.ErrNotFound) {
		return rec, nil
	}
	if err != nil {
		return nil, err
	}
	prev := e.Record
	prev.Layout = d.Layout
	if prev.Stage == record.Error {
		if err := prev.Rewind(); err != nil {
			return rec, nil
		}
	}
	return &prev, nil
}

// Summarize counts finished, failed and skipped outcomes.
func Summarize(out []Outcome) (ok, failed, skipped int) {
	for _, o := range out {
		switch {
		case o.Err != nil:
			failed++
		case o.Skipped:
			skipped++
		default:
			ok++
		}
	}
	return
}
