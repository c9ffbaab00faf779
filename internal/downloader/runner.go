package downloader

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	slurphttp "github.com/barrygee/tileslurp/internal/http"
	"github.com/barrygee/tileslurp/internal/metrics"
	"github.com/barrygee/tileslurp/internal/tile"
)

// Store is the subset of tilestore.Store the runner needs.
type Store interface {
	Exists(ctx context.Context, a tile.Address) (bool, error)
	Write(ctx context.Context, a tile.Address, data []byte) error
}

// Fetcher downloads the bytes of a single tile.
type Fetcher interface {
	Fetch(ctx context.Context, a tile.Address) ([]byte, error)
}

// Runner processes one tile: skip if stored, otherwise fetch and persist.
type Runner struct {
	Store   Store
	Fetcher Fetcher
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Run processes a, returning exactly one outcome. Failures are never retried.
func (r *Runner) Run(ctx context.Context, a tile.Address) tile.Outcome {
	r.Metrics.TaskStarted()
	o := r.run(ctx, a)
	r.Metrics.TaskDone(o)

	if o.Status == tile.StatusFailed {
		r.Logger.Debug().
			Str("tile", tile.Key(a)).
			Str("kind", string(o.Kind)).
			Err(o.Err).
			Msg("tile failed")
	}
	return o
}

func (r *Runner) run(ctx context.Context, a tile.Address) tile.Outcome {
	present, err := r.Store.Exists(ctx, a)
	if err != nil {
		return tile.Failed(tile.KindStorage, err)
	}
	if present {
		return tile.AlreadyPresent()
	}

	start := time.Now()
	data, err := r.Fetcher.Fetch(ctx, a)
	r.Metrics.ObserveFetch(time.Since(start))
	if err != nil {
		return tile.Failed(fetchKind(err), err)
	}

	if err := r.Store.Write(ctx, a, data); err != nil {
		return tile.Failed(tile.KindStorage, err)
	}
	return tile.Fetched(int64(len(data)))
}

func fetchKind(err error) tile.FailureKind {
	var fe *slurphttp.FetchError
	if errors.As(err, &fe) && fe.Kind != "" {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return tile.KindTimeout
	}
	return tile.KindTransport
}
