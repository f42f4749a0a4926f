package warc

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/yourorg/cc-corpus/internal/warc/warctest"
)

func TestReaderFiltersResponses(t *testing.T) {
	data := warctest.Archive(
		warctest.Entry{Type: TypeWarcinfo, Block: []byte("software: test\r\n")},
		warctest.Page("http://a.example/", "one"),
		warctest.Entry{Type: TypeRequest, TargetURI: "http://b.example/", Block: []byte("GET / HTTP/1.1\r\n\r\n")},
		warctest.Page("http://b.example/", "two"),
	)
	r := NewReader(bytes.NewReader(data))
	var got []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, rec)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records; want 2", len(got))
	}
	for i, rec := range got {
		if rec.Ordinal != i+1 {
			t.Fatalf("ordinal %d at %d", rec.Ordinal, i)
		}
		if rec.Type() != TypeResponse {
			t.Fatalf("type %q", rec.Type())
		}
		if !bytes.HasPrefix(rec.Body, []byte("HTTP/1.1 200 OK")) {
			t.Fatalf("body %q", rec.Body[:20])
		}
	}
	if got[1].Header.Get(HdrTargetURI) != "http://b.example/" {
		t.Fatalf("target %q", got[1].Header.Get(HdrTargetURI))
	}
}

func TestReaderMultistreamGzip(t *testing.T) {
	data := warctest.Gzip(warctest.Page("http://a.example/", "x"), warctest.Page("http://b.example/", "y"))
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	r := NewReader(zr)
	n := 0
	for {
		_, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		n++
	}
	if n != 2 {
		t.Fatalf("read %d records across gzip members; want 2", n)
	}
}

func TestReaderMalformed(t *testing.T) {
	cases := map[string]string{
		"version":   "HTTP/1.1 200 OK\r\n\r\n",
		"length":    "WARC/1.0\r\nWARC-Type: response\r\nContent-Length: nope\r\n\r\n",
		"truncated": "WARC/1.0\r\nWARC-Type: response\r\nContent-Length: 100\r\n\r\nshort",
		"huge":      "WARC/1.0\r\nWARC-Type: response\r\nContent-Length: 9223372036854775807\r\n\r\nshort",
		"huge-skip": "WARC/1.0\r\nWARC-Type: request\r\nContent-Length: 9223372036854775807\r\n\r\nshort",
	}
	for name, in := range cases {
		_, err := NewReader(bytes.NewReader([]byte(in))).Next()
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: err=%v; want ErrMalformed", name, err)
		}
	}
}

func TestHeaderFromMap(t *testing.T) {
	data := warctest.Archive(warctest.Page("http://a.example/page", "hello"))
	rec, err := NewReader(bytes.NewReader(data)).Next()
	if err != nil {
		t.Fatal(err)
	}
	h, err := HeaderFromMap(rec.Header)
	if err != nil {
		t.Fatalf("HeaderFromMap: %v", err)
	}
	if h.TargetURI != "http://a.example/page" || h.Type != TypeResponse || h.IPAddress != "192.0.2.1" {
		t.Fatalf("header %+v", h)
	}
	if h.ContentLength != int64(len(rec.Body)) {
		t.Fatalf("content length %d; body %d", h.ContentLength, len(rec.Body))
	}
	if h.RecordID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatalf("record id not parsed")
	}

	rec.Header.Set(HdrRecordID, "<not-a-uuid>")
	if _, err := HeaderFromMap(rec.Header); err == nil {
		t.Fatalf("expected error for bad record id")
	}
}
