package downloader

import (
	"context"
	"errors"
	"io"
	"iter"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/barrygee/tileslurp/internal/metrics"
	"github.com/barrygee/tileslurp/internal/progress"
	"github.com/barrygee/tileslurp/internal/tile"
)

// DefaultWorkers is the worker pool size used when none is configured.
const DefaultWorkers = 6

// ErrNoStore is returned by Download when Options.Store is nil.
var ErrNoStore = errors.New("downloader: store is required")

// ErrNoFetcher is returned by Download when Options.Fetcher is nil.
var ErrNoFetcher = errors.New("downloader: fetcher is required")

// Options configures the downloader.
type Options struct {
	// MaxZoom is the deepest zoom level to populate (inclusive).
	MaxZoom int

	// Workers is the number of parallel tile workers.
	Workers int

	// Store persists tiles and answers presence checks.
	Store Store

	// Fetcher downloads tile bytes.
	Fetcher Fetcher

	// Output receives progress lines. Default: os.Stdout
	Output io.Writer

	// Every is the number of completions between progress lines.
	Every int64

	// Logger receives per-tile diagnostics. Default: disabled.
	Logger *zerolog.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// RunAll runs runner over addrs with a fixed pool of workers and sends each
// result as it completes. The returned channel is closed after every task a
// worker started has produced its result. Cancelling ctx stops
// dispatching: addresses still queued are dropped without a result, while
// tasks already running finish on a context detached from ctx and report.
func RunAll(ctx context.Context, runner *Runner, addrs iter.Seq[tile.Address], workers int) <-chan tile.Result {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	jobs := make(chan tile.Address, workers)
	results := make(chan tile.Result, workers)

	// Feed jobs to workers
	go func() {
		defer close(jobs)
		for a := range addrs {
			if ctx.Err() != nil {
				return
			}
			select {
			case jobs <- a:
			case <-ctx.Done():
				return
			}
		}
	}()

	// In-flight tiles are bounded by the fetch timeout, not by ctx.
	taskCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for a := range jobs {
				if ctx.Err() != nil {
					continue
				}
				results <- tile.Result{Tile: a, Outcome: runner.Run(taskCtx, a)}
			}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()

	return results
}

// Download populates the store with every tile for zoom 0..MaxZoom. Tile
// failures are counted in the returned tally and never abort the run. The
// error is non-nil only for invalid options or when ctx was cancelled.
func Download(ctx context.Context, opts Options) (progress.Tally, error) {
	if opts.Store == nil {
		return progress.Tally{}, ErrNoStore
	}
	if opts.Fetcher == nil {
		return progress.Tally{}, ErrNoFetcher
	}
	if opts.MaxZoom < 0 || opts.MaxZoom > tile.MaxZoom {
		return progress.Tally{}, errors.New("downloader: max zoom out of range")
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	runner := &Runner{
		Store:   opts.Store,
		Fetcher: opts.Fetcher,
		Logger:  logger,
		Metrics: opts.Metrics,
	}

	reporter := progress.NewReporter(progress.Options{
		Total:   tile.Count(opts.MaxZoom),
		MaxZoom: opts.MaxZoom,
		Workers: opts.Workers,
		Every:   opts.Every,
		Output:  opts.Output,
	})

	logger.Debug().
		Int("max_zoom", opts.MaxZoom).
		Int("workers", opts.Workers).
		Int64("tiles", tile.Count(opts.MaxZoom)).
		Msg("starting download")

	reporter.Start()
	tally := reporter.Consume(RunAll(ctx, runner, tile.Enumerate(opts.MaxZoom), opts.Workers))

	if err := ctx.Err(); err != nil {
		return tally, err
	}
	return tally, nil
}
