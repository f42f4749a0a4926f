package ledger

import (
	"errors"
	"testing"

	"github.com/yourorg/cc-corpus/internal/record"
)

func mustRecord(t *testing.T, n string) *record.Record {
	t.Helper()
	url := "crawl-data/CC-MAIN-2023-09/segments/1234567890.12/warc/CC-MAIN-20230101000000-20230101000001-" + n + ".warc.gz"
	r, err := record.FromURL(url, record.Layout{Root: "/cc"})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestPutGet(t *testing.T) {
	l, err := Open("")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	r := mustRecord(t, "00001")
	if _, err := l.Get(r.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing: %v", err)
	}
	r.Advance(record.Source)
	r.Advance(record.Error)
	if err := l.Put(r, errors.New("disk full")); err != nil {
		t.Fatal(err)
	}
	e, err := l.Get(r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if e.Record.Stage != record.Error || e.Error != "disk full" || len(e.Record.History) != 2 {
		t.Fatalf("entry %+v", e)
	}
	if e.Record.Layout.Root != "/cc" || e.UpdatedAt.IsZero() {
		t.Fatalf("entry %+v", e)
	}
}

func TestListByStage(t *testing.T) {
	l, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	for i, n := range []string{"00003", "00001", "00002"} {
		r := mustRecord(t, n)
		r.Advance(record.Source)
		if i != 1 {
			r.Advance(record.Staged)
		}
		if err := l.Put(r, nil); err != nil {
			t.Fatal(err)
		}
	}
	staged, err := l.ListByStage(record.Staged)
	if err != nil {
		t.Fatal(err)
	}
	if len(staged) != 2 || staged[0].Record.FileNum != "00002" || staged[1].Record.FileNum != "00003" {
		t.Fatalf("staged %+v", staged)
	}
	counts, err := l.Counts()
	if err != nil {
		t.Fatal(err)
	}
	if counts[record.Source] != 1 || counts[record.Staged] != 2 {
		t.Fatalf("counts %v", counts)
	}

	if err := l.Delete(staged[0].Record.ID); err != nil {
		t.Fatal(err)
	}
	all, _ := l.List()
	if len(all) != 2 {
		t.Fatalf("after delete %d entries", len(all))
	}
}

func TestReopenKeepsState(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	r := mustRecord(t, "00007")
	r.Advance(record.Source)
	if err := l.Put(r, nil); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	l, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	e, err := l.Get(r.ID)
	if err != nil || e.Record.Stage != record.Source {
		t.Fatalf("reopened %+v %v", e, err)
	}
}
