// Package progress aggregates tile outcomes and prints progress lines.
//
// The reporter owns the running [Tally]. It is fed from a single goroutine,
// usually by draining the result channel of the executor, so the counts need
// no locking.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    Total:   tile.Count(6),
//	    MaxZoom: 6,
//	    Workers: 6,
//	    Output:  os.Stdout,
//	})
//
//	reporter.Start()
//	tally := reporter.Consume(results)
//
// # Output Format
//
//	[tileslurp] Downloading 5461 tiles (zoom 0-6) with 6 workers
//	[tileslurp]   200/5461  ok=180 skip=20 err=0
//	[tileslurp]   5461/5461  ok=5441 skip=20 err=0
//	[tileslurp] Done. ok=5441 skipped=20 errors=0 | 84.2 MiB in 2m 11s
package progress
