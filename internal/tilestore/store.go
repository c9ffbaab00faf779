package tilestore

import (
	"context"
	"errors"
	"strings"

	"github.com/barrygee/tileslurp/internal/tile"
)

// ErrEmptyTile is returned by Write when asked to store zero bytes. An empty
// tile would be indistinguishable from a torn write.
var ErrEmptyTile = errors.New("tilestore: refusing to store empty tile")

// Store is a tile cache keyed by tile address.
type Store interface {
	// Exists reports whether a non-empty tile is stored for a.
	Exists(ctx context.Context, a tile.Address) (bool, error)

	// Write stores data for a. On failure no empty tile is left behind.
	Write(ctx context.Context, a tile.Address, data []byte) error

	Close() error
}

// Open opens the store at location. Locations with a URL scheme
// (file://, mem://, s3://, gs://, ...) are opened as gocloud buckets; the
// matching driver must be registered by the caller. Anything else is a
// local directory.
func Open(ctx context.Context, location string) (Store, error) {
	if strings.Contains(location, "://") {
		return OpenBucket(ctx, location)
	}
	return NewDisk(location)
}
