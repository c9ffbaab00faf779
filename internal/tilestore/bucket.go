package tilestore

import (
	"context"
	"fmt"
	"net/http"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/barrygee/tileslurp/internal/tile"
)

// Bucket stores tiles as {z}/{x}/{y}.png objects in a gocloud bucket.
//
// Blob writers only commit on a successful Close, so a failed write never
// leaves a partial object. Zero-length objects found by Exists or left by a
// failed Write are deleted.
type Bucket struct {
	bucket *blob.Bucket
}

// NewBucket wraps an open bucket. Close closes the bucket.
func NewBucket(b *blob.Bucket) *Bucket {
	return &Bucket{bucket: b}
}

// OpenBucket opens the bucket at url.
func OpenBucket(ctx context.Context, url string) (*Bucket, error) {
	b, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}
	return NewBucket(b), nil
}

// Exists reports whether a non-empty object is stored for a.
func (b *Bucket) Exists(ctx context.Context, a tile.Address) (bool, error) {
	key := tile.Key(a)

	attrs, err := b.bucket.Attributes(ctx, key)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat tile %s: %w", key, err)
	}

	if attrs.Size == 0 {
		if err := b.deleteIfPresent(ctx, key); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// Write stores data for a.
func (b *Bucket) Write(ctx context.Context, a tile.Address, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyTile
	}

	key := tile.Key(a)
	err := b.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{
		ContentType: http.DetectContentType(data),
	})
	if err != nil {
		b.removeEmpty(key)
		return fmt.Errorf("write tile %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying bucket.
func (b *Bucket) Close() error {
	return b.bucket.Close()
}

// removeEmpty deletes key if it exists with zero length. It runs after a
// failed write, possibly with an already cancelled caller context.
func (b *Bucket) removeEmpty(key string) {
	ctx := context.Background()
	attrs, err := b.bucket.Attributes(ctx, key)
	if err != nil || attrs.Size != 0 {
		return
	}
	_ = b.deleteIfPresent(ctx, key)
}

func (b *Bucket) deleteIfPresent(ctx context.Context, key string) error {
	err := b.bucket.Delete(ctx, key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("remove empty tile %s: %w", key, err)
	}
	return nil
}
