// Package metrics exposes Prometheus collectors for the tile pipeline.
package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/barrygee/tileslurp/internal/tile"
)

// Metrics holds the tile pipeline collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	TilesTotal    *prometheus.CounterVec
	FailuresTotal *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	FetchedBytes  prometheus.Counter
	TasksInFlight prometheus.Gauge

	registry *prometheus.Registry
}

// New registers the collectors with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		TilesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tileslurp_tiles_total",
				Help: "Tiles processed, by outcome",
			},
			[]string{"outcome"},
		),
		FailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tileslurp_tile_failures_total",
				Help: "Failed tiles, by failure kind",
			},
			[]string{"kind"},
		),
		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tileslurp_fetch_duration_seconds",
				Help:    "Duration of tile fetches",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		FetchedBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tileslurp_fetched_bytes_total",
				Help: "Bytes written to the tile store",
			},
		),
		TasksInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tileslurp_tasks_in_flight",
				Help: "Tile tasks currently executing",
			},
		),
		registry: reg,
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TaskStarted marks one tile task as running.
func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.TasksInFlight.Inc()
}

// TaskDone records a finished tile task.
func (m *Metrics) TaskDone(o tile.Outcome) {
	if m == nil {
		return
	}
	m.TasksInFlight.Dec()
	m.TilesTotal.WithLabelValues(o.Status.String()).Inc()
	switch o.Status {
	case tile.StatusFetched:
		m.FetchedBytes.Add(float64(o.Bytes))
	case tile.StatusFailed:
		m.FailuresTotal.WithLabelValues(string(o.Kind)).Inc()
	}
}

// ObserveFetch records the duration of one fetch.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// Serve exposes the registry at /metrics on addr until ctx is done. It
// returns the address actually bound.
func (m *Metrics) Serve(ctx context.Context, addr string) (net.Addr, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	// Serve returns http.ErrServerClosed after Shutdown.
	go func() { _ = srv.Serve(ln) }()
	return ln.Addr(), nil
}
