package record

import "errors"

var (
	// ErrInvalidStage indicates a stage value outside the known enumeration.
	ErrInvalidStage = errors.New("invalid stage")
	// ErrEmptyHistory indicates an Error path was requested for a record that never left its first stage.
	ErrEmptyHistory = errors.New("stage history is empty")
	// ErrMalformedURL indicates a crawl path that does not follow the segment layout.
	ErrMalformedURL = errors.New("malformed crawl url")
	// ErrInvalidLayout indicates a layout that cannot address any files.
	ErrInvalidLayout = errors.New("invalid layout")

	// ErrNotVoid, ErrNotSourced and ErrNotStaged report an operation invoked on a record in the wrong stage.
	ErrNotVoid    = errors.New("record is not void")
	ErrNotSourced = errors.New("record is not sourced")
	ErrNotStaged  = errors.New("record is not staged")

	// ErrNotPreprocessed reports a publish of a record without extracted output.
	ErrNotPreprocessed = errors.New("record is not preprocessed")

	// ErrSourceMissing indicates the artifact of an earlier stage is absent on disk.
	ErrSourceMissing = errors.New("source artifact missing")
	// ErrExtraction wraps failures raised while reading or extracting an archive.
	ErrExtraction = errors.New("extraction failure")
)
