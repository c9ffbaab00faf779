// Package http fetches map tiles from a remote tile server.
//
// This package handles:
//   - Connection pooling sized for a small worker pool
//   - A fixed User-Agent header on every request
//   - A per-request timeout covering the whole body read
//   - Classification of failures (timeout, transport, status, read, empty)
//
// Requests are attempted exactly once. Retrying is left to the next run,
// which skips every tile that already made it to the store.
//
// # Usage
//
//	client := http.NewClient(http.Options{
//	    Timeout:   15 * time.Second,
//	    UserAgent: http.DefaultUserAgent,
//	})
//
//	fetcher := http.NewTileFetcher(client, "https://tiles.example.com/ne2sr")
//	data, err := fetcher.Fetch(ctx, tile.New(3, 4, 5))
//	// GET https://tiles.example.com/ne2sr/3/4/5.png
package http
