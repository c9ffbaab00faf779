package progress

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/barrygee/tileslurp/internal/tile"
)

// DefaultEvery is how many completions pass between status lines.
const DefaultEvery = 200

// Options configures the progress reporter.
type Options struct {
	// Total is the number of tiles the run will report on.
	Total int64

	// MaxZoom is the deepest zoom level (for display).
	MaxZoom int

	// Workers is the number of parallel workers (for display).
	Workers int

	// Every emits a status line each time this many tiles have completed.
	// Default: 200
	Every int64

	// Output is where to write progress output.
	// Default: os.Stdout
	Output io.Writer
}

// Tally is the running count of tile outcomes.
type Tally struct {
	Fetched        int64
	AlreadyPresent int64
	Failed         int64
	Completed      int64

	// Bytes is the total size of fetched tiles.
	Bytes int64

	// FailuresByKind breaks Failed down by failure kind.
	FailuresByKind map[tile.FailureKind]int64
}

// Reporter aggregates tile outcomes and prints progress lines.
//
// A Reporter is owned by a single goroutine: Record, Finish and Consume
// must not be called concurrently.
type Reporter struct {
	opts      Options
	tally     Tally
	startTime time.Time
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Every <= 0 {
		opts.Every = DefaultEvery
	}

	return &Reporter{
		opts:  opts,
		tally: Tally{FailuresByKind: make(map[tile.FailureKind]int64)},
	}
}

// Start prints the header line and starts the clock.
func (r *Reporter) Start() {
	r.startTime = time.Now()
	fmt.Fprintf(r.opts.Output, "[tileslurp] Downloading %d tiles (zoom 0-%d) with %d workers\n",
		r.opts.Total,
		r.opts.MaxZoom,
		r.opts.Workers,
	)
}

// Record counts one outcome and prints a status line on every Every-th
// completion and on the last one.
func (r *Reporter) Record(res tile.Result) {
	o := res.Outcome
	switch o.Status {
	case tile.StatusFetched:
		r.tally.Fetched++
		r.tally.Bytes += o.Bytes
	case tile.StatusPresent:
		r.tally.AlreadyPresent++
	default:
		r.tally.Failed++
		r.tally.FailuresByKind[o.Kind]++
	}
	r.tally.Completed++

	n := r.tally.Completed
	if n%r.opts.Every == 0 || n == r.opts.Total {
		r.printProgress()
	}
}

// Consume records every result from results until it is closed, then
// prints the summary and returns the final tally.
func (r *Reporter) Consume(results <-chan tile.Result) Tally {
	for res := range results {
		r.Record(res)
	}
	return r.Finish()
}

// Finish prints the summary line and returns the final tally.
func (r *Reporter) Finish() Tally {
	r.printFinalStatus()
	return r.Tally()
}

// Tally returns a copy of the current counts.
func (r *Reporter) Tally() Tally {
	t := r.tally
	t.FailuresByKind = make(map[tile.FailureKind]int64, len(r.tally.FailuresByKind))
	for k, v := range r.tally.FailuresByKind {
		t.FailuresByKind[k] = v
	}
	return t
}

// printProgress outputs the current progress.
func (r *Reporter) printProgress() {
	fmt.Fprintf(r.opts.Output, "[tileslurp]   %d/%d  ok=%d skip=%d err=%d\n",
		r.tally.Completed,
		r.opts.Total,
		r.tally.Fetched,
		r.tally.AlreadyPresent,
		r.tally.Failed,
	)
}

// printFinalStatus outputs the summary.
func (r *Reporter) printFinalStatus() {
	var duration time.Duration
	if !r.startTime.IsZero() {
		duration = time.Since(r.startTime)
	}

	fmt.Fprintf(r.opts.Output, "[tileslurp] Done. ok=%d skipped=%d errors=%d%s | %s in %s\n",
		r.tally.Fetched,
		r.tally.AlreadyPresent,
		r.tally.Failed,
		r.failureBreakdown(),
		formatBytes(r.tally.Bytes),
		formatDuration(duration),
	)
}

// failureBreakdown renders " (status=3 timeout=1)", or "" with no failures.
func (r *Reporter) failureBreakdown() string {
	if r.tally.Failed == 0 {
		return ""
	}
	kinds := make([]string, 0, len(r.tally.FailuresByKind))
	for k := range r.tally.FailuresByKind {
		kinds = append(kinds, string(k))
	}
	slices.Sort(kinds)

	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s=%d", k, r.tally.FailuresByKind[tile.FailureKind(k)])
	}
	return " (" + strings.Join(parts, " ") + ")"
}

// formatBytes formats bytes using binary units.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}

	div, exp := int64(unit), 0
	for n := b / unit; n >= unit && exp < 3; n /= unit {
		div *= unit
		exp++
	}

	value := float64(b) / float64(div)
	suffix := []string{"KiB", "MiB", "GiB", "TiB"}[exp]
	if value >= 100 {
		return fmt.Sprintf("%.0f %s", value, suffix)
	}
	return fmt.Sprintf("%.1f %s", value, suffix)
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// ParseBytes parses a human-readable byte string. Binary suffixes (KiB,
// MiB, ...) are powers of 1024; SI suffixes (KB, MB, ...) powers of 1000.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)

	units := []struct {
		suffix     string
		multiplier int64
	}{
		{"TiB", 1 << 40},
		{"GiB", 1 << 30},
		{"MiB", 1 << 20},
		{"KiB", 1 << 10},
		{"TB", 1000 * 1000 * 1000 * 1000},
		{"GB", 1000 * 1000 * 1000},
		{"MB", 1000 * 1000},
		{"KB", 1000},
		{"B", 1},
	}

	var multiplier int64 = 1
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			multiplier = u.multiplier
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}

	var value float64
	if _, err := fmt.Sscanf(s, "%f", &value); err != nil || value < 0 {
		return 0, fmt.Errorf("invalid byte string: %s", s)
	}

	return int64(value * float64(multiplier)), nil
}
