package iopkg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, p string) {
	t.Helper()
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "00042.warc")

	for _, pol := range []Overwrite{Always, Never, Rename} {
		got, err := Resolve(p, pol)
		if err != nil || got != p {
			t.Fatalf("%s on free path: %q %v", pol, got, err)
		}
	}

	touch(t, p)
	if _, err := Resolve(p, Never); !errors.Is(err, ErrDestinationExists) {
		t.Fatalf("never: err=%v", err)
	}

	got, err := Resolve(p, Rename)
	if err != nil || got != filepath.Join(dir, "00042_1.warc") {
		t.Fatalf("rename: %q %v", got, err)
	}
	touch(t, got)
	got, _ = Resolve(p, Rename)
	if got != filepath.Join(dir, "00042_2.warc") {
		t.Fatalf("rename second: %q", got)
	}

	got, err = Resolve(p, Always)
	if err != nil || got != p || Exists(p) {
		t.Fatalf("always: %q %v exists=%v", got, err, Exists(p))
	}
}

func TestParseOverwrite(t *testing.T) {
	for in, want := range map[string]Overwrite{"always": Always, "NEVER": Never, "rename": Rename, "": Rename} {
		got, err := ParseOverwrite(in)
		if err != nil || got != want {
			t.Fatalf("ParseOverwrite(%q)=%v,%v", in, got, err)
		}
	}
	if _, err := ParseOverwrite("sometimes"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPrepare(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "00042.jsonl")

	if b, err := Prepare(p, Never); err != nil || b != "" {
		t.Fatalf("free path: %q %v", b, err)
	}
	touch(t, p)
	if _, err := Prepare(p, Never); !errors.Is(err, ErrDestinationExists) {
		t.Fatalf("never: %v", err)
	}
	b, err := Prepare(p, Rename)
	if err != nil || b != filepath.Join(dir, "00042_1.jsonl") {
		t.Fatalf("rename: %q %v", b, err)
	}
	if Exists(p) || !Exists(b) {
		t.Fatalf("existing file not moved aside")
	}
	touch(t, p)
	if _, err := Prepare(p, Always); err != nil || Exists(p) {
		t.Fatalf("always: %v", err)
	}
}
