package record

import (
	"fmt"
	"path/filepath"
)

// Record tracks one WARC segment file through the pipeline. It is a
// logical cursor over the files of its id; the files are the state.
type Record struct {
	Snapshot string  `json:"snapshot"`
	Segment  string  `json:"segment"`
	FileNum  string  `json:"file_num"`
	Raw      string  `json:"raw"`
	ID       string  `json:"record_id"`
	Stage    Stage   `json:"stage"`
	History  []Stage `json:"stage_history"`
	Layout   Layout  `json:"layout"`
}

// FromURL builds a Void record for a crawl path.
func FromURL(url string, layout Layout) (*Record, error) {
	u, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	if layout.Root == "" {
		return nil, fmt.Errorf("%w: empty root", ErrInvalidLayout)
	}
	return &Record{
		Snapshot: u.Snapshot,
		Segment:  u.Segment,
		FileNum:  u.FileNum,
		Raw:      u.Raw,
		ID:       u.ID(),
		Stage:    Void,
		Layout:   layout,
	}, nil
}

// Advance moves the record to stage, remembering where it came from.
// Ordering is the caller's responsibility.
func (r *Record) Advance(stage Stage) {
	r.History = append(r.History, r.Stage)
	r.Stage = stage
}

// LastGood returns the stage the record held before its current one.
func (r *Record) LastGood() (Stage, error) {
	if len(r.History) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrEmptyHistory, r.ID)
	}
	return r.History[len(r.History)-1], nil
}

// Path resolves the artifact path of stage. Error resolves to the last
// known-good stage.
func (r *Record) Path(stage Stage) (string, error) {
	if stage == Error {
		last, err := r.LastGood()
		if err != nil {
			return "", err
		}
		if last == Error {
			return "", fmt.Errorf("%w: %s failed twice without a good stage between", ErrInvalidStage, r.ID)
		}
		stage = last
	}
	return r.Layout.PathFor(r.ID, stage)
}

// Current resolves the path of the record's current stage.
func (r *Record) Current() (string, error) { return r.Path(r.Stage) }

// Dir is the parent directory of Path.
func (r *Record) Dir(stage Stage) (string, error) {
	p, err := r.Path(stage)
	if err != nil || p == "" {
		return "", err
	}
	return filepath.Dir(p), nil
}

// Failed reports whether the record ended in the Error stage.
func (r *Record) Failed() bool { return r.Stage == Error }

func (r *Record) String() string {
	return fmt.Sprintf("%s@%s", r.ID, r.Stage)
}

// Rewind undoes the last Advance. Used to retry a failed or interrupted
// record from the stage it held before.
func (r *Record) Rewind() error {
	last, err := r.LastGood()
	if err != nil {
		return err
	}
	r.History = r.History[:len(r.History)-1]
	r.Stage = last
	return nil
}
