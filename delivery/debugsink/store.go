/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package debugsink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
)

// Store writes named debug files. Names use forward slashes.
type Store interface {
	Write(ctx context.Context, name string, data []byte) error
	Close() error
}

// Open returns the Store for root: a gs://bucket/prefix URL or a local
// directory.
func Open(ctx context.Context, root string) (Store, error) {
	if rest, ok := strings.CutPrefix(root, "gs://"); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return nil, fmt.Errorf("debug root %q has no bucket", root)
		}
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating storage client: %w", err)
		}
		return NewBucketStore(client, bucket, prefix), nil
	}
	if root == "" {
		return nil, errors.New("debug root is empty")
	}
	return DirStore(root), nil
}

// DirStore writes files below a local directory.
type DirStore string

func (d DirStore) Write(_ context.Context, name string, data []byte) error {
	p := filepath.Join(string(d), filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (DirStore) Close() error { return nil }

// BucketStore writes objects below a prefix of a Cloud Storage bucket.
type BucketStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// NewBucketStore returns a BucketStore writing to bucket. Closing it closes
// client.
func NewBucketStore(client *storage.Client, bucket, prefix string) *BucketStore {
	return &BucketStore{client: client, bucket: client.Bucket(bucket), prefix: strings.Trim(prefix, "/")}
}

func (b *BucketStore) Write(ctx context.Context, name string, data []byte) error {
	w := b.bucket.Object(path.Join(b.prefix, name)).NewWriter(ctx)
	w.ContentType = contentType(name)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	return nil
}

func (b *BucketStore) Close() error { return b.client.Close() }

func contentType(name string) string {
	switch path.Ext(name) {
	case ".json":
		return "application/json"
	case ".md":
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}
