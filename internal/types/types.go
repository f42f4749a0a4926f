package types

import (
	"github.com/yourorg/cc-corpus/internal/pipeline"
	"github.com/yourorg/cc-corpus/internal/record"
)

// JobSpec names one archive of a batch.
type JobSpec struct {
	URL    string `json:"url"`              // crawl-data/... path, optionally with scheme and host
	Source string `json:"source,omitempty"` // optional explicit location: local path, file://, s3:// or http(s)://
}

// BatchParams is the input of BatchWorkflow.
type BatchParams struct {
	Jobs       []JobSpec `json:"jobs"`
	Policy     string    `json:"policy"`                // "fail_fast" (default) | "collect_all"
	PublishURI string    `json:"publish_uri,omitempty"` // s3:// or file:// prefix; empty skips publishing
	// If true, source and staging artifacts are removed once a record is preprocessed.
	Cleanup bool `json:"cleanup"`
}

// RecordParams is the input of every per-record activity. Record is nil
// for the first activity; the URL is parsed then.
type RecordParams struct {
	URL        string         `json:"url"`
	Source     string         `json:"source,omitempty"`
	Record     *record.Record `json:"record,omitempty"`
	PublishURI string         `json:"publish_uri,omitempty"`
}

// RecordResult is the record after an activity and what it produced.
type RecordResult struct {
	Record    record.Record  `json:"record"`
	Stats     pipeline.Stats `json:"stats"`
	Published string         `json:"published,omitempty"`
	Removed   []string       `json:"removed,omitempty"`
}

// RecordOutcome is the final state of one job of a batch.
type RecordOutcome struct {
	URL       string         `json:"url"`
	RecordID  string         `json:"record_id"`
	Stage     string         `json:"stage"`
	Stats     pipeline.Stats `json:"stats"`
	Published string         `json:"published,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// BatchResult contains the outcome of every job, in input order.
type BatchResult struct {
	Outcomes []RecordOutcome `json:"outcomes"`
	OK       int             `json:"ok"`
	Failed   int             `json:"failed"`
}
