package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/yourorg/cc-corpus/internal/iopkg"
	"github.com/yourorg/cc-corpus/internal/logging"
	ccmetrics "github.com/yourorg/cc-corpus/internal/metrics"
	"github.com/yourorg/cc-corpus/internal/record"
	"github.com/yourorg/cc-corpus/internal/sink"
	"github.com/yourorg/cc-corpus/internal/warc"
)

// DefaultSourceBase is where crawl paths are fetched from when a job has
// no explicit location.
const DefaultSourceBase = "https://data.commoncrawl.org/"

// Options tune a Runner.
type Options struct {
	// SourceBase is prepended to the crawl path of a record by Fetch.
	SourceBase string
	Overwrite  iopkg.Overwrite
	Sink       sink.Options
}

// Runner performs the stage transitions of one record. Every failure
// after the precondition check leaves the record in the Error stage;
// the record is returned either way.
type Runner struct {
	Loop   *Loop
	Opts   Options
	Logger *zap.Logger
}

// NewRunner wires a runner with the given loop.
func NewRunner(loop *Loop, opts Options, logger *zap.Logger) *Runner {
	if opts.SourceBase == "" {
		opts.SourceBase = DefaultSourceBase
	}
	return &Runner{Loop: loop, Opts: opts, Logger: logger}
}

func (r *Runner) fail(rec *record.Record, op string, err error) (*record.Record, error) {
	from := rec.Stage
	rec.Advance(record.Error)
	ccmetrics.RecordsFailed.WithLabelValues(op).Inc()
	logging.OrNop(r.Logger).Warn("stage failed",
		zap.String("record", rec.ID), zap.String("op", op), zap.Stringer("from", from), zap.Error(err))
	return rec, fmt.Errorf("%s %s: %w", op, rec.ID, err)
}

func (r *Runner) advance(rec *record.Record, st record.Stage) {
	rec.Advance(st)
	ccmetrics.RecordsAdvanced.WithLabelValues(st.String()).Inc()
}

// Fetch copies the source archive into the layout (Void to Source). src
// overrides the location; empty means SourceBase joined with the crawl
// path. An existing source file is reused unless the policy is Always.
func (r *Runner) Fetch(ctx context.Context, rec *record.Record, src string) (*record.Record, error) {
	if rec.Stage != record.Void {
		return rec, fmt.Errorf("fetch %s: %w (at %s)", rec.ID, record.ErrNotVoid, rec.Stage)
	}
	if err := rec.Layout.EnsureDirs(rec.ID); err != nil {
		return r.fail(rec, "fetch", err)
	}
	dest, err := rec.Path(record.Source)
	if err != nil {
		return r.fail(rec, "fetch", err)
	}
	if iopkg.Exists(dest) && r.Opts.Overwrite != iopkg.Always {
		logging.OrNop(r.Logger).Debug("source present, skipping download", zap.String("path", dest))
		r.advance(rec, record.Source)
		return rec, nil
	}
	if src == "" {
		src = strings.TrimSuffix(r.Opts.SourceBase, "/") + "/" + rec.Raw
	}
	if err := copyTo(ctx, src, dest); err != nil {
		return r.fail(rec, "fetch", err)
	}
	r.advance(rec, record.Source)
	return rec, nil
}

func copyTo(ctx context.Context, src, dest string) error {
	rc, _, err := iopkg.Open(ctx, src)
	if err != nil {
		return err
	}
	defer rc.Close()
	af, err := iopkg.CreateAtomic(dest)
	if err != nil {
		return err
	}
	defer af.Abort()
	if _, err := io.Copy(af, ctxReader{ctx: ctx, r: rc}); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return af.Commit()
}

// Stage decompresses the source archive into the staging location
// (Source to Staged).
func (r *Runner) Stage(ctx context.Context, rec *record.Record) (*record.Record, error) {
	if rec.Stage != record.Source {
		return rec, fmt.Errorf("stage %s: %w (at %s)", rec.ID, record.ErrNotSourced, rec.Stage)
	}
	src, err := rec.Path(record.Source)
	if err != nil {
		return r.fail(rec, "stage", err)
	}
	if !iopkg.Exists(src) {
		return r.fail(rec, "stage", fmt.Errorf("%w: %s", record.ErrSourceMissing, src))
	}
	dest, err := rec.Path(record.Staged)
	if err != nil {
		return r.fail(rec, "stage", err)
	}
	if err := r.prepare(dest); err != nil {
		return r.fail(rec, "stage", err)
	}
	if err := gunzipTo(ctx, src, dest); err != nil {
		return r.fail(rec, "stage", err)
	}
	r.advance(rec, record.Staged)
	return rec, nil
}

func gunzipTo(ctx context.Context, src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", record.ErrExtraction, src, err)
	}
	defer zr.Close()
	af, err := iopkg.CreateAtomic(dest)
	if err != nil {
		return err
	}
	defer af.Abort()
	if _, err := io.Copy(af, ctxReader{ctx: ctx, r: zr}); err != nil {
		return fmt.Errorf("decompress %s: %w", src, err)
	}
	return af.Commit()
}

// Process runs the extraction loop over the staged archive (Staged to
// Preprocessing to Preprocessed). A record in any other stage is
// returned untouched. Buffered output is flushed on every exit path.
func (r *Runner) Process(ctx context.Context, rec *record.Record) (*record.Record, Stats, error) {
	if rec.Stage != record.Staged {
		return rec, Stats{}, fmt.Errorf("process %s: %w (at %s)", rec.ID, record.ErrNotStaged, rec.Stage)
	}
	r.advance(rec, record.Preprocessing)
	in, err := rec.Path(record.Preprocessing)
	if err != nil {
		rec, err = r.fail(rec, "process", err)
		return rec, Stats{}, err
	}
	if !iopkg.Exists(in) {
		rec, err = r.fail(rec, "process", fmt.Errorf("%w: %s", record.ErrSourceMissing, in))
		return rec, Stats{}, err
	}
	out, err := rec.Path(record.Preprocessed)
	if err != nil {
		rec, err = r.fail(rec, "process", err)
		return rec, Stats{}, err
	}
	if err := r.prepare(out); err != nil {
		rec, err = r.fail(rec, "process", err)
		return rec, Stats{}, err
	}

	st, err := r.extract(ctx, rec, in, out)
	if err != nil {
		rec, err = r.fail(rec, "process", err)
		return rec, st, err
	}
	r.advance(rec, record.Preprocessed)
	logging.OrNop(r.Logger).Info("record processed",
		zap.String("record", rec.ID),
		zap.Int("seen", st.Seen),
		zap.Int("accepted", st.Accepted),
		zap.Int("flushes", st.Sink.Flushes),
	)
	return rec, st, nil
}

func (r *Runner) extract(ctx context.Context, rec *record.Record, in, out string) (st Stats, err error) {
	f, err := os.Open(in)
	if err != nil {
		return st, err
	}
	defer f.Close()
	var src io.Reader = f
	if strings.HasSuffix(strings.ToLower(in), ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return st, fmt.Errorf("%w: %v", record.ErrExtraction, err)
		}
		defer zr.Close()
		src = zr
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return st, err
	}
	w, err := os.Create(out)
	if err != nil {
		return st, err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	s := sink.New(w, nil, r.Opts.Sink)
	s.OnFlush(ccmetrics.ObserveFlush)
	defer func() {
		cerr := s.Close()
		st.Sink = s.Stats()
		if cerr != nil && err == nil {
			err = cerr
		}
	}()
	return r.Loop.Run(ctx, warc.NewReader(src), rec, s)
}

func (r *Runner) prepare(path string) error {
	backup, err := iopkg.Prepare(path, r.Opts.Overwrite)
	if err != nil {
		return err
	}
	if backup != "" {
		logging.OrNop(r.Logger).Info("moved existing output aside", zap.String("path", path), zap.String("backup", backup))
	}
	return nil
}

// ErrUnrunnable reports a record Run cannot move forward, i.e. one in
// the Error stage that was not rewound.
var ErrUnrunnable = errors.New("record cannot be advanced")

// Run takes a record from wherever it is up to Preprocessed. src is
// passed to Fetch when the record is still Void. Records already at or
// past Preprocessed are returned as is.
func (r *Runner) Run(ctx context.Context, rec *record.Record, src string) (*record.Record, Stats, error) {
	var err error
	if rec.Stage == record.Error {
		return rec, Stats{}, fmt.Errorf("run %s: %w", rec.ID, ErrUnrunnable)
	}
	if rec.Stage == record.Preprocessing {
		// interrupted; the staged file is still the input
		if err := rec.Rewind(); err != nil {
			return rec, Stats{}, err
		}
	}
	if rec.Stage == record.Void {
		if rec, err = r.Fetch(ctx, rec, src); err != nil {
			return rec, Stats{}, err
		}
	}
	if rec.Stage == record.Source {
		if rec, err = r.Stage(ctx, rec); err != nil {
			return rec, Stats{}, err
		}
	}
	if rec.Stage == record.Staged {
		return r.Process(ctx, rec)
	}
	return rec, Stats{}, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
