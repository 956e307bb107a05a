// Package source reads input files from the local disk, Google Cloud Storage
// (gs://bucket/object) or Amazon S3 (s3://bucket/key).
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"shipcerts/internal/config"
)

// ErrTooLarge is returned when a file exceeds the configured size limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// Location is a parsed input address.
type Location struct {
	Scheme string // "", "gs" or "s3"
	Bucket string
	Key    string // object key, or local path when Scheme is empty
}

// String returns the location in URI form.
func (l Location) String() string {
	if l.Scheme == "" {
		return l.Key
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// Name is the base file name of the location.
func (l Location) Name() string {
	if l.Scheme == "" {
		return filepath.Base(l.Key)
	}
	return path.Base(l.Key)
}

// Parse splits an input address into its parts.
func Parse(raw string) (Location, error) {
	if !strings.Contains(raw, "://") {
		if raw == "" {
			return Location{}, errors.New("empty input path")
		}
		return Location{Key: raw}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("parse %q: %w", raw, err)
	}
	switch u.Scheme {
	case "gs", "s3":
	default:
		return Location{}, fmt.Errorf("unsupported input scheme %q (want gs or s3)", u.Scheme)
	}
	if u.Host == "" {
		return Location{}, fmt.Errorf("%q has no bucket", raw)
	}
	return Location{Scheme: u.Scheme, Bucket: u.Host, Key: strings.TrimPrefix(u.Path, "/")}, nil
}

// backend reads from one kind of storage.
type backend interface {
	open(ctx context.Context, loc Location) (io.ReadCloser, error)
	list(ctx context.Context, loc Location) ([]Location, error)
}

// Reader dispatches reads by scheme. Cloud clients are created on first use.
type Reader struct {
	cfg      config.SourcesConfig
	maxBytes int64

	mu       sync.Mutex
	backends map[string]backend
}

// NewReader creates a reader. maxBytes <= 0 disables the size limit.
func NewReader(cfg config.SourcesConfig, maxBytes int64) *Reader {
	return &Reader{
		cfg:      cfg,
		maxBytes: maxBytes,
		backends: map[string]backend{"": localBackend{}},
	}
}

func (r *Reader) backend(ctx context.Context, scheme string) (backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.backends[scheme]; ok {
		return b, nil
	}
	var (
		b   backend
		err error
	)
	switch scheme {
	case "gs":
		b, err = newGCSBackend(ctx)
	case "s3":
		b, err = newS3Backend(ctx, r.cfg)
	default:
		return nil, fmt.Errorf("unsupported scheme %q", scheme)
	}
	if err != nil {
		return nil, err
	}
	r.backends[scheme] = b
	return b, nil
}

// Read returns the full contents of the file at raw.
func (r *Reader) Read(ctx context.Context, raw string) ([]byte, error) {
	loc, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	b, err := r.backend(ctx, loc.Scheme)
	if err != nil {
		return nil, err
	}

	rc, err := b.open(ctx, loc)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	src := io.Reader(rc)
	if r.maxBytes > 0 {
		src = io.LimitReader(rc, r.maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", loc, err)
	}
	if r.maxBytes > 0 && int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("%s: %w (%d bytes)", loc, ErrTooLarge, r.maxBytes)
	}
	return data, nil
}

// List returns the PDF files under raw, a local directory or a bucket
// prefix, sorted by address.
func (r *Reader) List(ctx context.Context, raw string) ([]Location, error) {
	loc, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	b, err := r.backend(ctx, loc.Scheme)
	if err != nil {
		return nil, err
	}
	all, err := b.list(ctx, loc)
	if err != nil {
		return nil, err
	}

	var pdfs []Location
	for _, l := range all {
		if strings.EqualFold(path.Ext(l.Key), ".pdf") {
			pdfs = append(pdfs, l)
		}
	}
	sort.Slice(pdfs, func(i, j int) bool { return pdfs[i].String() < pdfs[j].String() })
	return pdfs, nil
}

type localBackend struct{}

func (localBackend) open(ctx context.Context, loc Location) (io.ReadCloser, error) {
	f, err := os.Open(loc.Key)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", loc.Key, err)
	}
	return f, nil
}

func (localBackend) list(ctx context.Context, loc Location) ([]Location, error) {
	entries, err := os.ReadDir(loc.Key)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", loc.Key, err)
	}
	var out []Location
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, Location{Key: filepath.Join(loc.Key, e.Name())})
	}
	return out, nil
}
