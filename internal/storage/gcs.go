package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores objects in a Google Cloud Storage bucket.
type GCS struct {
	client *gcs.Client
	bucket string
	prefix string
}

// NewGCS opens a storage client. With an empty credentialsFile it uses
// Application Default Credentials.
func NewGCS(ctx context.Context, bucket, prefix, credentialsFile string) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

func (g *GCS) object(key string) *gcs.ObjectHandle {
	return g.client.Bucket(g.bucket).Object(g.prefix + key)
}

// Put uploads r to the bucket.
func (g *GCS) Put(ctx context.Context, key string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.object(key).NewWriter(ctx)
	w.ContentType = "text/csv"

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy %q to GCS writer: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload of %q: %w", key, err)
	}
	return nil
}

// Open returns a reader over the object.
func (g *GCS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := g.object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("open GCS object %s/%s: %w", g.bucket, g.prefix+key, err)
	}
	return r, nil
}

// Delete removes the object.
func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete GCS object %s/%s: %w", g.bucket, g.prefix+key, err)
	}
	return nil
}

// Close closes the storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}

var _ Storage = (*GCS)(nil)
