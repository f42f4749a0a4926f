package record

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Location is a physical place in the storage tree: a subdirectory of the
// root and the extension every artifact there carries.
type Location struct {
	Dir string
	Ext string
}

type locationKey int

const (
	locNone locationKey = iota
	locSource
	locStaging
	locPrepared
	locFiltered
	locDeduplicated
	locFinal
)

var locations = map[locationKey]Location{
	locSource:       {Dir: "source", Ext: ".warc.gz"},
	locStaging:      {Dir: "staging", Ext: ".warc"},
	locPrepared:     {Dir: filepath.Join("local", "prepared"), Ext: ".jsonl"},
	locFiltered:     {Dir: filepath.Join("local", "filtered"), Ext: ".jsonl"},
	locDeduplicated: {Dir: filepath.Join("local", "deduplicated"), Ext: ".jsonl"},
	locFinal:        {Dir: filepath.Join("local", "final"), Ext: ".jsonl"},
}

// stageLocation maps a stage to the place its artifact lives. A stage that
// is "in transit" shares the location of the artifact it is consuming.
var stageLocation = map[Stage]locationKey{
	Void:          locNone,
	Source:        locSource,
	Staged:        locStaging,
	Preprocessing: locStaging,
	Preprocessed:  locPrepared,
	Filtering:     locPrepared,
	Filtered:      locFiltered,
	Deduplicating: locFiltered,
	Deduplicated:  locDeduplicated,
	Final:         locFinal,
}

// SharesLocation reports whether two stages resolve to the same artifact.
func SharesLocation(a, b Stage) bool {
	ka, okA := stageLocation[a]
	kb, okB := stageLocation[b]
	return okA && okB && ka == kb
}

// LocationOf returns the location of a stage; Void has the zero Location.
func LocationOf(s Stage) (Location, error) {
	k, ok := stageLocation[s]
	if !ok {
		return Location{}, fmt.Errorf("%w: %s has no location", ErrInvalidStage, s)
	}
	return locations[k], nil
}

// Layout roots the fixed stage table at a storage directory (cc_path).
type Layout struct {
	Root string `json:"root" yaml:"root"`
}

// NewLayout validates the root at construction time.
func NewLayout(root string) (Layout, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return Layout{}, fmt.Errorf("%w: empty root", ErrInvalidLayout)
	}
	return Layout{Root: filepath.Clean(root)}, nil
}

// PathFor resolves the artifact path of id at stage. It performs no I/O.
// Void resolves to the empty string.
func (l Layout) PathFor(id string, stage Stage) (string, error) {
	k, ok := stageLocation[stage]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidStage, stage)
	}
	if k == locNone {
		return "", nil
	}
	loc := locations[k]
	return filepath.Join(l.Root, loc.Dir, filepath.FromSlash(id)+loc.Ext), nil
}

// DirFor is the parent directory of PathFor.
func (l Layout) DirFor(id string, stage Stage) (string, error) {
	p, err := l.PathFor(id, stage)
	if err != nil || p == "" {
		return "", err
	}
	return filepath.Dir(p), nil
}

// Dirs lists the directory of every distinct location for id.
func (l Layout) Dirs(id string) []string {
	keys := []locationKey{locSource, locStaging, locPrepared, locFiltered, locDeduplicated, locFinal}
	parent := filepath.Dir(filepath.FromSlash(id))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, filepath.Join(l.Root, locations[k].Dir, parent))
	}
	return out
}

// EnsureDirs creates every stage directory for id. Safe to race with
// other workers sharing a parent.
func (l Layout) EnsureDirs(id string) error {
	for _, d := range l.Dirs(id) {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}
