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

	"github.com/barrygee/tileslurp/internal/config"
	"github.com/barrygee/tileslurp/internal/tile"
	"github.com/barrygee/tileslurp/internal/tilestore"
)

// maxListedMissing caps how many missing keys validate prints.
const maxListedMissing = 20

// runValidate checks that every tile for zoom 0..max-zoom is present in the
// output location. Reports counts without contacting the tile server.
func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)

	var flags commonFlags
	flags.register(fs)

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: tileslurp validate [options]

Verify that every tile for zoom 0..max-zoom exists in the output location.
Zero-byte leftovers are removed and counted as missing.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
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

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return validate(ctx, cfg, logger, os.Stdout)
}

// validate walks every address and prints present and missing counts.
func validate(ctx context.Context, cfg config.Config, logger zerolog.Logger, stdout io.Writer) int {
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
	defer store.Close()

	var present, missing int64
	var listed []string
	for a := range tile.Enumerate(cfg.MaxZoom) {
		if ctx.Err() != nil {
			return ExitInterrupted
		}
		ok, err := store.Exists(ctx, a)
		if err != nil {
			logger.Error().Err(err).Str("tile", tile.Key(a)).Msg("check tile")
			return ExitStorageError
		}
		if ok {
			present++
			continue
		}
		missing++
		if len(listed) < maxListedMissing {
			listed = append(listed, tile.Key(a))
		}
	}

	// Print results
	fmt.Fprintf(stdout, "Location: %s\n", out)
	fmt.Fprintf(stdout, "Zoom: 0-%d\n", cfg.MaxZoom)
	fmt.Fprintf(stdout, "Tiles: %d\n", tile.Count(cfg.MaxZoom))
	fmt.Fprintf(stdout, "Present: %d\n", present)

	if missing == 0 {
		fmt.Fprintln(stdout, "Status: VALID")
		return ExitSuccess
	}

	fmt.Fprintln(stdout, "Status: INCOMPLETE")
	fmt.Fprintf(stdout, "Missing: %d\n", missing)
	fmt.Fprintln(stdout, "\nMissing tiles:")
	for _, key := range listed {
		fmt.Fprintf(stdout, "  - %s\n", key)
	}
	if missing > int64(len(listed)) {
		fmt.Fprintf(stdout, "  ... and %d more\n", missing-int64(len(listed)))
	}

	return ExitValidationFailed
}
