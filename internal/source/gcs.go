package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

type gcsBackend struct {
	client *storage.Client
}

func newGCSBackend(ctx context.Context) (*gcsBackend, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &gcsBackend{client: client}, nil
}

func (g *gcsBackend) open(ctx context.Context, loc Location) (io.ReadCloser, error) {
	r, err := g.client.Bucket(loc.Bucket).Object(loc.Key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%s: %w", loc, err)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", loc, err)
	}
	return r, nil
}

func (g *gcsBackend) list(ctx context.Context, loc Location) ([]Location, error) {
	it := g.client.Bucket(loc.Bucket).Objects(ctx, &storage.Query{Prefix: loc.Key})
	var out []Location
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", loc, err)
		}
		out = append(out, Location{Scheme: "gs", Bucket: loc.Bucket, Key: attrs.Name})
	}
	return out, nil
}
