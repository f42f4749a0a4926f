package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/yourorg/cc-corpus/internal/iopkg"
)

// ObjectStore receives published stage artifacts.
type ObjectStore interface {
	// Put writes content to uri (s3://bucket/key or file://path); returns final URI.
	Put(ctx context.Context, uri string, body io.Reader) (string, error)
}

// ForURI returns the store that can write under prefix.
func ForURI(ctx context.Context, prefix string) (ObjectStore, error) {
	switch {
	case strings.HasPrefix(prefix, "s3://"):
		return NewS3(ctx)
	case strings.HasPrefix(prefix, "file://"), !strings.Contains(prefix, "://"):
		return FileStore{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", iopkg.ErrUnsupportedScheme, prefix)
	}
}

// ObjectURI is where the artifact of record id lands under prefix.
func ObjectURI(prefix, id, ext string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + path.Clean(id) + ext
}

// PutFile uploads the local file at src to uri.
func PutFile(ctx context.Context, st ObjectStore, src, uri string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return st.Put(ctx, uri, f)
}

// FileStore writes to the local filesystem; used for file:// prefixes.
type FileStore struct{}

func (FileStore) Put(ctx context.Context, uri string, body io.Reader) (string, error) {
	dest := strings.TrimPrefix(uri, "file://")
	af, err := iopkg.CreateAtomic(dest)
	if err != nil {
		return "", err
	}
	defer af.Abort()
	if _, err := io.Copy(af, body); err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	if err := af.Commit(); err != nil {
		return "", err
	}
	return uri, nil
}
