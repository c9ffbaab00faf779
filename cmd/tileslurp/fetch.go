package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/barrygee/tileslurp/internal/config"
	"github.com/barrygee/tileslurp/internal/downloader"
	slurphttp "github.com/barrygee/tileslurp/internal/http"
	"github.com/barrygee/tileslurp/internal/metrics"
	"github.com/barrygee/tileslurp/internal/tilestore"
)

// runFetch downloads every missing tile for zoom 0..max-zoom into the
// output location. Individual tile failures do not change the exit code.
func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)

	var flags commonFlags
	flags.register(fs)

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: tileslurp [fetch] [options]

Download every map tile for zoom levels 0..max-zoom into {out}/{z}/{x}/{y}.png.
Tiles already present are skipped, so an interrupted run can simply be repeated.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return ExitInvalidArgs
	}

	cfg, err := flags.resolve(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\n[tileslurp] Received interrupt, finishing in-flight tiles...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return fetch(ctx, cfg, logger, os.Stdout)
}

// fetch runs a download with cfg, writing progress to stdout.
func fetch(ctx context.Context, cfg config.Config, logger zerolog.Logger, stdout io.Writer) int {
	out, err := cfg.ResolveOut()
	if err != nil {
		logger.Error().Err(err).Msg("resolve output location")
		return ExitGeneralError
	}

	store, err := tilestore.Open(ctx, out)
	if err != nil {
		logger.Error().Err(err).Str("out", out).Msg("open tile store")
		return ExitStorageError
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("close tile store")
		}
	}()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		addr, err := m.Serve(ctx, cfg.MetricsAddr)
		if err != nil {
			logger.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("start metrics server")
			return ExitGeneralError
		}
		logger.Info().Str("addr", addr.String()).Msg("serving metrics at /metrics")
	}

	client := slurphttp.NewClient(slurphttp.Options{
		MaxIdleConnsPerHost: cfg.Workers * 2,
		Timeout:             cfg.Timeout,
		UserAgent:           cfg.UserAgent,
		MaxBodySize:         cfg.MaxTileSize,
	})

	logger.Info().
		Str("base_url", cfg.BaseURL).
		Str("out", out).
		Int("max_zoom", cfg.MaxZoom).
		Msg("populating tile cache")

	tally, err := downloader.Download(ctx, downloader.Options{
		MaxZoom: cfg.MaxZoom,
		Workers: cfg.Workers,
		Store:   store,
		Fetcher: slurphttp.NewTileFetcher(client, cfg.BaseURL),
		Output:  stdout,
		Every:   cfg.ReportEvery,
		Logger:  &logger,
		Metrics: m,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn().
				Int64("completed", tally.Completed).
				Msg("run interrupted; run again to fetch the remaining tiles")
			return ExitInterrupted
		}
		logger.Error().Err(err).Msg("download")
		return ExitGeneralError
	}

	if tally.Failed > 0 {
		logger.Warn().Int64("failed", tally.Failed).Msg("some tiles failed; run again to retry them")
	}
	return ExitSuccess
}
