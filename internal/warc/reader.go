// Package warc reads WARC/1.x records from an uncompressed stream and
// defines the document type the pipeline emits for each capture.
package warc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"strings"
)

// Record types.
const (
	TypeResponse = "response"
	TypeRequest  = "request"
	TypeMetadata = "metadata"
	TypeWarcinfo = "warcinfo"
)

var ErrMalformed = errors.New("malformed warc record")

// MaxBlock bounds the block of a yielded record. Larger Content-Length
// values are treated as corrupt headers.
const MaxBlock = 64 << 20

// Record is one yielded capture. Ordinal counts only yielded records,
// starting at 1.
type Record struct {
	Ordinal int
	Header  textproto.MIMEHeader
	Body    []byte
}

func (r Record) Type() string { return r.Header.Get(HdrType) }

// Reader iterates records in file order. It is single pass.
type Reader struct {
	br      *bufio.Reader
	tp      *textproto.Reader
	types   map[string]bool
	ordinal int
}

// NewReader yields only the given record types; none means responses only.
func NewReader(r io.Reader, types ...string) *Reader {
	if len(types) == 0 {
		types = []string{TypeResponse}
	}
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[strings.ToLower(t)] = true
	}
	br := bufio.NewReaderSize(r, 1<<20)
	return &Reader{br: br, tp: textproto.NewReader(br), types: want}
}

// Next returns the next matching record, or io.EOF when the stream ends.
func (r *Reader) Next() (Record, error) {
	for {
		h, err := r.readHeader()
		if err != nil {
			return Record{}, err
		}
		n, err := strconv.ParseInt(strings.TrimSpace(h.Get(HdrContentLength)), 10, 64)
		if err != nil || n < 0 {
			return Record{}, fmt.Errorf("%w: bad Content-Length %q", ErrMalformed, h.Get(HdrContentLength))
		}
		if !r.types[strings.ToLower(h.Get(HdrType))] {
			if _, err := io.CopyN(io.Discard, r.br, n); err != nil {
				return Record{}, fmt.Errorf("%w: skip block: %v", ErrMalformed, err)
			}
			continue
		}
		if n > MaxBlock {
			return Record{}, fmt.Errorf("%w: Content-Length %d exceeds %d", ErrMalformed, n, MaxBlock)
		}
		body := make([]byte, n)
		if _, err := io.ReadFull(r.br, body); err != nil {
			return Record{}, fmt.Errorf("%w: read block: %v", ErrMalformed, err)
		}
		r.ordinal++
		return Record{Ordinal: r.ordinal, Header: h, Body: body}, nil
	}
}

// readHeader skips the blank separator lines, checks the version line and
// parses the header block.
func (r *Reader) readHeader() (textproto.MIMEHeader, error) {
	var line string
	for {
		l, err := r.tp.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && l == "" {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}
	if !strings.HasPrefix(line, "WARC/") {
		return nil, fmt.Errorf("%w: version line %q", ErrMalformed, line)
	}
	h, err := r.tp.ReadMIMEHeader()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	return h, nil
}
