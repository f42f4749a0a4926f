package warc

// StatusRaw marks text that has only passed extraction and the quality filter.
const StatusRaw = "raw"

// TextDocument is one accepted document. It is written once and never mutated.
type TextDocument struct {
	ID             string `json:"id"`
	Header         Header `json:"header"`
	RawText        string `json:"raw_text"`
	PipelineStatus string `json:"pipeline_status"`
}
