// Package sink batches encoded documents in memory and writes them to a
// single output stream in large, ordered chunks.
package sink

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	DefaultFlushThreshold  = 1_500_000
	DefaultInitialCapacity = 2_000_000
)

var ErrClosed = errors.New("sink closed")

// Encoder appends the serialized form of v to dst.
type Encoder interface {
	Encode(dst []byte, v any) ([]byte, error)
}

// JSONEncoder serializes with encoding/json.
type JSONEncoder struct{}

func (JSONEncoder) Encode(dst []byte, v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return dst, err
	}
	return append(dst, b...), nil
}

// Options tune buffering. Zero values take the defaults.
type Options struct {
	FlushThreshold  int `yaml:"flush_threshold"`
	InitialCapacity int `yaml:"initial_capacity"`
}

func (o Options) withDefaults() Options {
	if o.FlushThreshold <= 0 {
		o.FlushThreshold = DefaultFlushThreshold
	}
	if o.InitialCapacity <= 0 {
		o.InitialCapacity = DefaultInitialCapacity
	}
	return o
}

// Stats counts what reached the underlying writer.
type Stats struct {
	Docs    int   `json:"docs"`
	Flushes int   `json:"flushes"`
	Bytes   int64 `json:"bytes"`
}

// FlushHook observes every flush; used for metrics.
type FlushHook func(n int)

// Sink is owned by a single producer and is not safe for concurrent use.
type Sink struct {
	w      io.Writer
	enc    Encoder
	opts   Options
	buf    []byte
	stats  Stats
	onFl   FlushHook
	closed bool
}

func New(w io.Writer, enc Encoder, opts Options) *Sink {
	if enc == nil {
		enc = JSONEncoder{}
	}
	opts = opts.withDefaults()
	return &Sink{w: w, enc: enc, opts: opts, buf: make([]byte, 0, opts.InitialCapacity)}
}

// OnFlush registers a hook called after each successful flush.
func (s *Sink) OnFlush(h FlushHook) { s.onFl = h }

// Write encodes v followed by a newline and flushes once the buffer
// exceeds the threshold.
func (s *Sink) Write(v any) error {
	if s.closed {
		return ErrClosed
	}
	mark := len(s.buf)
	buf, err := s.enc.Encode(s.buf, v)
	if err != nil {
		s.buf = s.buf[:mark]
		return fmt.Errorf("encode: %w", err)
	}
	s.buf = append(buf, '\n')
	s.stats.Docs++
	if len(s.buf) > s.opts.FlushThreshold {
		return s.Flush()
	}
	return nil
}

// Flush writes the buffered bytes in one call and clears the buffer.
func (s *Sink) Flush() error {
	if len(s.buf) == 0 {
		return nil
	}
	n, err := s.w.Write(s.buf)
	s.stats.Bytes += int64(n)
	if err != nil {
		return fmt.Errorf("flush %d bytes: %w", len(s.buf), err)
	}
	s.stats.Flushes++
	if s.onFl != nil {
		s.onFl(n)
	}
	s.buf = s.buf[:0]
	return nil
}

// Close flushes the residual buffer. It is idempotent and meant to be deferred.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.Flush()
}

// Buffered is the number of bytes waiting for a flush.
func (s *Sink) Buffered() int { return len(s.buf) }

func (s *Sink) Stats() Stats { return s.stats }
