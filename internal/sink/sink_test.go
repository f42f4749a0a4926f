package sink

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// rawEncoder appends strings verbatim so sizes are exact.
type rawEncoder struct{}

func (rawEncoder) Encode(dst []byte, v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return dst, errors.New("not a string")
	}
	return append(dst, s...), nil
}

type countingWriter struct {
	bytes.Buffer
	writes []int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes = append(w.writes, len(p))
	return w.Buffer.Write(p)
}

func TestFlushWhenThresholdExceeded(t *testing.T) {
	w := &countingWriter{}
	s := New(w, rawEncoder{}, Options{})
	// 499_999+1, 499_999+1, 500_000+1 = 1_500_001 bytes including newlines.
	docs := []string{strings.Repeat("a", 499_999), strings.Repeat("b", 499_999), strings.Repeat("c", 500_000)}
	for i, d := range docs {
		if err := s.Write(d); err != nil {
			t.Fatal(err)
		}
		if i < 2 && len(w.writes) != 0 {
			t.Fatalf("flushed early after doc %d", i)
		}
	}
	if len(w.writes) != 1 || w.writes[0] != 1_500_001 {
		t.Fatalf("writes=%v; want one write of 1500001 bytes", w.writes)
	}
	if s.Buffered() != 0 {
		t.Fatalf("buffer not cleared: %d", s.Buffered())
	}
	if err := s.Write("d"); err != nil {
		t.Fatal(err)
	}
	if len(w.writes) != 1 {
		t.Fatalf("write after flush should buffer; writes=%v", w.writes)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if len(w.writes) != 2 || w.writes[1] != 2 {
		t.Fatalf("writes=%v", w.writes)
	}
}

func TestExactThresholdDoesNotFlush(t *testing.T) {
	w := &countingWriter{}
	s := New(w, rawEncoder{}, Options{FlushThreshold: 10})
	_ = s.Write("123456789") // 10 bytes with newline
	if len(w.writes) != 0 {
		t.Fatalf("buffer equal to threshold must not flush")
	}
	_ = s.Write("")
	if len(w.writes) != 1 {
		t.Fatalf("buffer over threshold must flush")
	}
}

func TestResidualFlushOnClose(t *testing.T) {
	w := &countingWriter{}
	s := New(w, rawEncoder{}, Options{})
	var want bytes.Buffer
	for i := 0; i < 10; i++ {
		d := strings.Repeat(string(rune('a'+i)), 100)
		want.WriteString(d + "\n")
		if err := s.Write(d); err != nil {
			t.Fatal(err)
		}
	}
	if len(w.writes) != 0 {
		t.Fatalf("unexpected flush before close: %v", w.writes)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if len(w.writes) != 1 {
		t.Fatalf("writes=%v; want exactly one final flush", w.writes)
	}
	if !bytes.Equal(w.Bytes(), want.Bytes()) {
		t.Fatalf("output not byte-exact")
	}
	st := s.Stats()
	if st.Docs != 10 || st.Flushes != 1 || st.Bytes != int64(want.Len()) {
		t.Fatalf("stats %+v", st)
	}
	if err := s.Write("late"); !errors.Is(err, ErrClosed) {
		t.Fatalf("write after close err=%v", err)
	}
}

func TestEncodeErrorLeavesBufferIntact(t *testing.T) {
	w := &countingWriter{}
	s := New(w, rawEncoder{}, Options{})
	_ = s.Write("ok")
	if err := s.Write(42); err == nil {
		t.Fatalf("expected encode error")
	}
	_ = s.Close()
	if w.String() != "ok\n" {
		t.Fatalf("output %q", w.String())
	}
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestFlushErrorSurfaces(t *testing.T) {
	s := New(failWriter{}, rawEncoder{}, Options{FlushThreshold: 1})
	if err := s.Write("xx"); err == nil {
		t.Fatalf("expected flush error")
	}
}

func TestJSONEncoder(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, nil, Options{})
	_ = s.Write(map[string]string{"id": "a/b/c/1"})
	_ = s.Close()
	if buf.String() != "{\"id\":\"a/b/c/1\"}\n" {
		t.Fatalf("json output %q", buf.String())
	}
}

func TestOnFlushHook(t *testing.T) {
	var seen []int
	s := New(&bytes.Buffer{}, rawEncoder{}, Options{FlushThreshold: 3})
	s.OnFlush(func(n int) { seen = append(seen, n) })
	_ = s.Write("abc")
	_ = s.Close()
	if len(seen) != 1 || seen[0] != 4 {
		t.Fatalf("hook saw %v", seen)
	}
}
