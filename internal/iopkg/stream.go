package iopkg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3iface is the minimal subset of s3 client methods we use; allows test fakes.
type s3iface interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// newS3Client constructs an s3 client; overridden in tests.
var newS3Client = func(ctx context.Context) (s3iface, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if ep := os.Getenv("AWS_ENDPOINT_URL_S3"); ep != "" {
			o.BaseEndpoint = aws.String(ep)
		}
		if strings.EqualFold(os.Getenv("AWS_S3_FORCE_PATH_STYLE"), "true") {
			o.UsePathStyle = true
		}
	}), nil
}

// httpClient fetches http(s) sources; overridden in tests.
var httpClient = http.DefaultClient

var ErrUnsupportedScheme = errors.New("unsupported scheme")

// Open returns a ReadCloser and (if known) size for file://, s3:// and
// http(s):// URIs. A bare path is a local file.
func Open(ctx context.Context, uri string) (io.ReadCloser, int64, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, 0, err
	}
	switch u.Scheme {
	case "file", "":
		f, err := os.Open(strings.TrimPrefix(uri, "file://"))
		if err != nil {
			return nil, 0, err
		}
		var sz int64
		if st, _ := f.Stat(); st != nil {
			sz = st.Size()
		}
		return f, sz, nil
	case "s3":
		cl, err := newS3Client(ctx)
		if err != nil {
			return nil, 0, err
		}
		resp, err := cl.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(u.Host), Key: aws.String(strings.TrimPrefix(u.Path, "/")),
		})
		if err != nil {
			return nil, 0, err
		}
		var sz int64
		if resp.ContentLength != nil {
			sz = *resp.ContentLength
		}
		return resp.Body, sz, nil
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, 0, err
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, 0, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, 0, fmt.Errorf("get %s: HTTP %d", uri, resp.StatusCode)
		}
		return resp.Body, resp.ContentLength, nil
	default:
		return nil, 0, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}

// Exists reports whether a local path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// AtomicFile is written under a temporary name in the destination
// directory and renamed into place on Commit.
type AtomicFile struct {
	*os.File
	dest string
	done bool
}

// CreateAtomic creates the parent directory if missing and opens a
// temporary file next to dest.
func CreateAtomic(dest string) (*AtomicFile, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create parent for %s: %w", dest, err)
	}
	f, err := os.CreateTemp(dir, ".cc-tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file for %s: %w", dest, err)
	}
	return &AtomicFile{File: f, dest: dest}, nil
}

// Commit syncs, closes and renames the file to its destination.
func (a *AtomicFile) Commit() error {
	if a.done {
		return nil
	}
	a.done = true
	tmp := a.File.Name()
	if err := a.File.Sync(); err != nil {
		_ = a.File.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync %s: %w", a.dest, err)
	}
	if err := a.File.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", a.dest, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("chmod %s: %w", a.dest, err)
	}
	if err := os.Rename(tmp, a.dest); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename into %s: %w", a.dest, err)
	}
	return nil
}

// Abort discards the temporary file. Safe after Commit.
func (a *AtomicFile) Abort() {
	if a.done {
		return
	}
	a.done = true
	_ = a.File.Close()
	_ = os.Remove(a.File.Name())
}

// Dest is the final path of the file.
func (a *AtomicFile) Dest() string { return a.dest }
