package record

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Stage is a point in a record's processing lifecycle.
type Stage int

const (
	Void Stage = iota
	Source
	Staged
	Preprocessing
	Preprocessed
	Filtering
	Filtered
	Deduplicating
	Deduplicated
	Final
	Error
)

var stageNames = [...]string{
	Void:          "void",
	Source:        "source",
	Staged:        "staged",
	Preprocessing: "preprocessing",
	Preprocessed:  "preprocessed",
	Filtering:     "filtering",
	Filtered:      "filtered",
	Deduplicating: "deduplicating",
	Deduplicated:  "deduplicated",
	Final:         "final",
	Error:         "error",
}

// Stages lists every stage in pipeline order, Error last.
func Stages() []Stage {
	out := make([]Stage, 0, len(stageNames))
	for s := Void; s <= Error; s++ {
		out = append(out, s)
	}
	return out
}

func (s Stage) Valid() bool { return s >= Void && s <= Error }

func (s Stage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// ParseStage is the inverse of String; matching is case-insensitive.
func ParseStage(name string) (Stage, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, v := range stageNames {
		if v == n {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStage, name)
}

func (s Stage) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStage, int(s))
	}
	return json.Marshal(s.String())
}

func (s *Stage) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	v, err := ParseStage(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
