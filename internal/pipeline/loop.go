// Package pipeline moves a record through its stages: fetch the source
// archive, stage (decompress) it, and extract filtered documents from it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/cc-corpus/internal/extract"
	"github.com/yourorg/cc-corpus/internal/logging"
	ccmetrics "github.com/yourorg/cc-corpus/internal/metrics"
	"github.com/yourorg/cc-corpus/internal/quality"
	"github.com/yourorg/cc-corpus/internal/record"
	"github.com/yourorg/cc-corpus/internal/sink"
	"github.com/yourorg/cc-corpus/internal/warc"
)

// ReasonExtractError labels captures the extractor could not handle when
// SkipExtractErrors is set, and captures with an unreadable WARC header.
const ReasonExtractError quality.Reason = "extract_error"

// RecordIterator yields captures in archive order; io.EOF ends the stream.
type RecordIterator interface {
	Next() (warc.Record, error)
}

// Stats summarises one run of the loop.
type Stats struct {
	Seen     int                    `json:"seen"`
	Accepted int                    `json:"accepted"`
	Rejected map[quality.Reason]int `json:"rejected"`
	Sink     sink.Stats             `json:"sink"`
}

const (
	progressEvery    = 1000
	progressInterval = 10 * time.Second
)

// Loop extracts, filters and emits documents for one archive.
type Loop struct {
	Extractor extract.Extractor
	Filter    *quality.Filter
	Logger    *zap.Logger

	// SkipExtractErrors counts extractor errors as rejections instead of
	// failing the archive.
	SkipExtractErrors bool

	// Progress, when set, is called every 1000 captures and at least every
	// 10s of wall time while captures keep arriving.
	Progress func(Stats)
}

// Run consumes it until EOF. Documents reach s in input order; rejected
// captures produce nothing. Cancellation is checked between captures.
// Document ids end in the capture's 1-based ordinal.
func (l *Loop) Run(ctx context.Context, it RecordIterator, rec *record.Record, s *sink.Sink) (Stats, error) {
	log := logging.OrNop(l.Logger).With(zap.String("record", rec.ID))
	st := Stats{Rejected: make(map[quality.Reason]int)}
	reject := func(r quality.Reason) {
		st.Rejected[r]++
		ccmetrics.DocumentsRejected.WithLabelValues(string(r)).Inc()
	}
	lastProgress := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		c, err := it.Next()
		if errors.Is(err, io.EOF) {
			return st, nil
		}
		if err != nil {
			return st, fmt.Errorf("%w: after %d captures: %v", record.ErrExtraction, st.Seen, err)
		}
		st.Seen++
		ccmetrics.DocumentsSeen.Inc()
		if l.Progress != nil && (st.Seen%progressEvery == 0 || time.Since(lastProgress) > progressInterval) {
			l.Progress(st)
			lastProgress = time.Now()
		}

		target := c.Header.Get(warc.HdrTargetURI)
		text, err := l.Extractor.Extract(ctx, c.Body, target)
		if err != nil {
			if ctx.Err() != nil {
				return st, ctx.Err()
			}
			if !l.SkipExtractErrors {
				return st, fmt.Errorf("%w: capture %d (%s): %v", record.ErrExtraction, c.Ordinal, target, err)
			}
			log.Debug("extract failed", zap.Int("ordinal", c.Ordinal), zap.String("uri", target), zap.Error(err))
			reject(ReasonExtractError)
			continue
		}
		v := l.Filter.Check(text)
		if !v.Accepted {
			reject(v.Reason)
			continue
		}
		hdr, err := warc.HeaderFromMap(c.Header)
		if err != nil {
			log.Debug("bad warc header", zap.Int("ordinal", c.Ordinal), zap.Error(err))
			reject(ReasonExtractError)
			continue
		}
		doc := warc.TextDocument{
			ID:             rec.ID + "/" + strconv.Itoa(c.Ordinal),
			Header:         hdr,
			RawText:        text,
			PipelineStatus: warc.StatusRaw,
		}
		if err := s.Write(doc); err != nil {
			return st, fmt.Errorf("write %s: %w", doc.ID, err)
		}
		st.Accepted++
		ccmetrics.DocumentsAccepted.Inc()
		log.Debug("document accepted", zap.String("id", doc.ID), zap.Int("words", v.Words))
	}
}
