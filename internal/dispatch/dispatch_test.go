package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yourorg/cc-corpus/internal/ledger"
	"github.com/yourorg/cc-corpus/internal/pipeline"
	"github.com/yourorg/cc-corpus/internal/record"
	"github.com/yourorg/cc-corpus/internal/storage"
)

var errBoom = errors.New("boom")

func crawlURL(n int) string {
	return fmt.Sprintf("crawl-data/CC-MAIN-2023-09/segments/1234567890.12/warc/CC-MAIN-20230101000000-20230101000001-%05d.warc.gz", n)
}

type fakeRunner struct {
	mu        sync.Mutex
	fail      map[string]bool
	seen      map[string]record.Stage
	published []string
	inflight  atomic.Int32
	maxSeen   atomic.Int32
	delay     time.Duration
}

func newFake() *fakeRunner {
	return &fakeRunner{fail: map[string]bool{}, seen: map[string]record.Stage{}}
}

func (f *fakeRunner) Run(ctx context.Context, rec *record.Record, _ string) (*record.Record, pipeline.Stats, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	f.mu.Lock()
	f.seen[rec.ID] = rec.Stage
	fail := f.fail[rec.ID]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if fail {
		rec.Advance(record.Error)
		return rec, pipeline.Stats{}, errBoom
	}
	for rec.Stage < record.Preprocessed {
		rec.Advance(rec.Stage + 1)
	}
	return rec, pipeline.Stats{Seen: 3, Accepted: 1}, nil
}

func (f *fakeRunner) Publish(_ context.Context, rec *record.Record, _ storage.ObjectStore, prefix string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uri := prefix + "/" + rec.ID + ".jsonl"
	f.published = append(f.published, uri)
	return uri, nil
}

type nopStore struct{}

func (nopStore) Put(context.Context, string, io.Reader) (string, error) { return "", nil }

func jobs(n int) []Job {
	out := make([]Job, n)
	for i := range out {
		out[i] = Job{URL: crawlURL(i + 1)}
	}
	return out
}

func idOf(n int) string { return fmt.Sprintf("2023-09/1234567890.12/%05d", n) }

func TestRunAllSucceed(t *testing.T) {
	f := newFake()
	f.delay = 10 * time.Millisecond
	d := &Dispatcher{Runner: f, Layout: record.Layout{Root: t.TempDir()}, Workers: 2}
	out, err := d.Run(context.Background(), jobs(6))
	if err != nil {
		t.Fatal(err)
	}
	for i, o := range out {
		if o.Err != nil || o.Record == nil || o.Record.ID != idOf(i+1) || o.Record.Stage != record.Preprocessed {
			t.Fatalf("outcome %d: %+v", i, o)
		}
	}
	if m := f.maxSeen.Load(); m > 2 {
		t.Fatalf("ran %d jobs at once with 2 workers", m)
	}
	if ok, failed, skipped := Summarize(out); ok != 6 || failed != 0 || skipped != 0 {
		t.Fatalf("summary %d %d %d", ok, failed, skipped)
	}
}

func TestFailFastCancelsRemaining(t *testing.T) {
	f := newFake()
	f.fail[idOf(1)] = true
	d := &Dispatcher{Runner: f, Layout: record.Layout{Root: t.TempDir()}, Workers: 1, Policy: FailFast}
	out, err := d.Run(context.Background(), jobs(3))
	if !errors.Is(err, errBoom) {
		t.Fatalf("err=%v", err)
	}
	if out[0].Record.Stage != record.Error {
		t.Fatalf("failed record at %v", out[0].Record.Stage)
	}
	for _, o := range out[1:] {
		if !errors.Is(o.Err, context.Canceled) {
			t.Fatalf("later job err=%v; want canceled", o.Err)
		}
	}
	if len(f.seen) != 1 {
		t.Fatalf("runner saw %d records", len(f.seen))
	}
}

func TestCollectAllReportsEveryFailure(t *testing.T) {
	f := newFake()
	f.fail[idOf(2)] = true
	d := &Dispatcher{Runner: f, Layout: record.Layout{Root: t.TempDir()}, Workers: 1, Policy: CollectAll}
	out, err := d.Run(context.Background(), append(jobs(3), Job{URL: "not-a-crawl-path"}))
	if !errors.Is(err, ErrBatchFailed) || !errors.Is(err, errBoom) || !errors.Is(err, record.ErrMalformedURL) {
		t.Fatalf("err=%v", err)
	}
	if out[0].Err != nil || out[2].Err != nil {
		t.Fatalf("healthy jobs failed: %v %v", out[0].Err, out[2].Err)
	}
	if ok, failed, _ := Summarize(out); ok != 2 || failed != 2 {
		t.Fatalf("summary ok=%d failed=%d", ok, failed)
	}
}

func TestLedgerSkipsAndResumes(t *testing.T) {
	l, err := ledger.Open("")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	layout := record.Layout{Root: t.TempDir()}

	done, _ := record.FromURL(crawlURL(1), layout)
	for done.Stage < record.Preprocessed {
		done.Advance(done.Stage + 1)
	}
	failed, _ := record.FromURL(crawlURL(2), layout)
	failed.Advance(record.Source)
	failed.Advance(record.Staged)
	failed.Advance(record.Error)
	for _, r := range []*record.Record{done, failed} {
		if err := l.Put(r, nil); err != nil {
			t.Fatal(err)
		}
	}

	f := newFake()
	d := &Dispatcher{Runner: f, Layout: layout, Workers: 2, Ledger: l}
	out, err := d.Run(context.Background(), jobs(3))
	if err != nil {
		t.Fatal(err)
	}
	if !out[0].Skipped {
		t.Fatalf("preprocessed record not skipped")
	}
	if _, ran := f.seen[idOf(1)]; ran {
		t.Fatalf("runner called for finished record")
	}
	if f.seen[idOf(2)] != record.Staged {
		t.Fatalf("failed record resumed at %v; want staged", f.seen[idOf(2)])
	}
	if f.seen[idOf(3)] != record.Void {
		t.Fatalf("new record started at %v", f.seen[idOf(3)])
	}
	for i := 2; i <= 3; i++ {
		e, err := l.Get(idOf(i))
		if err != nil || e.Record.Stage != record.Preprocessed {
			t.Fatalf("ledger %d: %+v %v", i, e, err)
		}
	}
}

func TestLedgerRecordsFailure(t *testing.T) {
	l, err := ledger.Open("")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	f := newFake()
	f.fail[idOf(1)] = true
	d := &Dispatcher{Runner: f, Layout: record.Layout{Root: t.TempDir()}, Workers: 1, Policy: CollectAll, Ledger: l}
	if _, err := d.Run(context.Background(), jobs(1)); err == nil {
		t.Fatal("expected failure")
	}
	e, err := l.Get(idOf(1))
	if err != nil || e.Record.Stage != record.Error || e.Error == "" {
		t.Fatalf("ledger %+v %v", e, err)
	}
}

func TestPublishAfterRun(t *testing.T) {
	f := newFake()
	d := &Dispatcher{
		Runner: f, Layout: record.Layout{Root: t.TempDir()}, Workers: 2,
		Store: nopStore{}, PublishPrefix: "s3://corpus/prepared",
	}
	out, err := d.Run(context.Background(), jobs(2))
	if err != nil {
		t.Fatal(err)
	}
	if out[1].Published != "s3://corpus/prepared/"+idOf(2)+".jsonl" || len(f.published) != 2 {
		t.Fatalf("published %v", f.published)
	}
}

func TestDuplicateJobsRunOnce(t *testing.T) {
	f := newFake()
	f.delay = 10 * time.Millisecond
	d := &Dispatcher{Runner: f, Layout: record.Layout{Root: t.TempDir()}, Workers: 4}
	batch := []Job{
		{URL: crawlURL(1)},
		{URL: "https://data.commoncrawl.org/" + crawlURL(1)},
		{URL: crawlURL(2)},
		{URL: "s3://commoncrawl/" + crawlURL(1)},
	}
	out, err := d.Run(context.Background(), batch)
	if err != nil {
		t.Fatal(err)
	}
	if m := f.maxSeen.Load(); m > 2 || len(f.seen) != 2 {
		t.Fatalf("runner saw %d records, %d at once", len(f.seen), m)
	}
	for _, i := range []int{1, 3} {
		if !out[i].Skipped || out[i].Record != out[0].Record || out[i].Job != batch[i] {
			t.Fatalf("duplicate outcome %d: %+v", i, out[i])
		}
	}
	if ok, failed, skipped := Summarize(out); ok != 2 || failed != 0 || skipped != 2 {
		t.Fatalf("summary %d %d %d", ok, failed, skipped)
	}
}

func TestCheckDistinct(t *testing.T) {
	if err := CheckDistinct([]string{crawlURL(1), crawlURL(2), "not-a-crawl-path", "not-a-crawl-path"}); err != nil {
		t.Fatal(err)
	}
	err := CheckDistinct([]string{crawlURL(1), crawlURL(2), "s3://commoncrawl/" + crawlURL(2)})
	if !errors.Is(err, ErrDuplicateJob) {
		t.Fatalf("err=%v", err)
	}
}

func TestParsePolicy(t *testing.T) {
	cases := map[string]Policy{"": FailFast, "fail_fast": FailFast, "fail-fast": FailFast, "COLLECT_ALL": CollectAll}
	for in, want := range cases {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParsePolicy(%q)=%v,%v", in, got, err)
		}
	}
	if _, err := ParsePolicy("yolo"); err == nil {
		t.Fatal("expected error")
	}
	if DefaultWorkers() < 1 {
		t.Fatal("DefaultWorkers below floor")
	}
}
