package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/yourorg/cc-corpus/internal/record"
)

// Cleanup removes the source and staging artifacts of a Preprocessed
// record. Missing files are fine. It returns the paths removed.
func Cleanup(rec *record.Record) ([]string, error) {
	if rec.Stage != record.Preprocessed {
		return nil, fmt.Errorf("cleanup %s: %w (at %s)", rec.ID, record.ErrNotPreprocessed, rec.Stage)
	}
	var removed []string
	for _, st := range []record.Stage{record.Source, record.Staged} {
		p, err := rec.Path(st)
		if err != nil {
			return removed, err
		}
		if err := os.Remove(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, err
		}
		removed = append(removed, p)
	}
	return removed, nil
}
