package iopkg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Overwrite decides what happens when an output path is already taken.
type Overwrite int

const (
	// Rename picks the first free "<stem>_<n><ext>" name.
	Rename Overwrite = iota
	// Always deletes the existing file.
	Always
	// Never fails with ErrDestinationExists.
	Never
)

var ErrDestinationExists = errors.New("destination exists")

func (o Overwrite) String() string {
	switch o {
	case Always:
		return "always"
	case Never:
		return "never"
	case Rename:
		return "rename"
	default:
		return "overwrite(" + strconv.Itoa(int(o)) + ")"
	}
}

// ParseOverwrite accepts always, never and rename; empty means rename.
func ParseOverwrite(s string) (Overwrite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "always":
		return Always, nil
	case "never":
		return Never, nil
	case "rename", "":
		return Rename, nil
	default:
		return 0, fmt.Errorf("invalid overwrite policy %q", s)
	}
}

func (o Overwrite) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Overwrite) UnmarshalText(b []byte) error {
	v, err := ParseOverwrite(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Resolve returns the path to write according to the policy.
func Resolve(path string, policy Overwrite) (string, error) {
	if !Exists(path) {
		return path, nil
	}
	switch policy {
	case Always:
		if err := os.Remove(path); err != nil {
			return "", fmt.Errorf("remove %s: %w", path, err)
		}
		return path, nil
	case Never:
		return "", fmt.Errorf("%w: %s", ErrDestinationExists, path)
	case Rename:
		ext := filepath.Ext(path)
		stem := strings.TrimSuffix(path, ext)
		for n := 1; ; n++ {
			p := stem + "_" + strconv.Itoa(n) + ext
			if !Exists(p) {
				return p, nil
			}
		}
	default:
		return "", fmt.Errorf("invalid overwrite policy %d", int(policy))
	}
}

// Prepare clears path for writing according to the policy. Rename moves
// the existing file aside to the name Resolve would pick and returns it,
// so the canonical path stays the one written.
func Prepare(path string, policy Overwrite) (backup string, err error) {
	if !Exists(path) {
		return "", nil
	}
	if policy != Rename {
		_, err := Resolve(path, policy)
		return "", err
	}
	backup, err = Resolve(path, Rename)
	if err != nil {
		return "", err
	}
	if err := os.Rename(path, backup); err != nil {
		return "", fmt.Errorf("move %s aside: %w", path, err)
	}
	return backup, nil
}
