// Package downloader populates a tile store from a tile server in parallel.
//
// A [Runner] handles one tile: it skips tiles already in the store, fetches
// the rest and writes them. [RunAll] drives a fixed pool of workers over a
// sequence of addresses and streams results back. [Download] ties the two to
// a progress reporter.
//
// # Usage
//
//	tally, err := downloader.Download(ctx, downloader.Options{
//	    MaxZoom: 6,
//	    Workers: 6,
//	    Store:   store,
//	    Fetcher: slurphttp.NewTileFetcher(client, baseURL),
//	})
//
// # Worker Pool
//
// Workers receive addresses from a channel and run each tile to completion
// before taking the next. A failed tile is counted and never retried; it
// does not affect any other tile.
//
// # Graceful Shutdown
//
// On SIGINT/SIGTERM:
//   - Stop dispatching new addresses
//   - Wait for in-progress tiles to complete
//   - Print the summary for what was done
package downloader
