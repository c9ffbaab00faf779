package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/barrygee/tileslurp/internal/config"
	"github.com/barrygee/tileslurp/internal/logging"
)

// commonFlags are the options shared by fetch and validate.
type commonFlags struct {
	configPath  string
	baseURL     string
	out         string
	maxZoom     int
	workers     int
	timeout     time.Duration
	userAgent   string
	reportEvery int64
	logLevel    string
	logFormat   string
	metricsAddr string
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	def := config.Default()
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.baseURL, "base-url", def.BaseURL, "Tile server base URL or {z}/{x}/{y} template")
	fs.StringVar(&f.out, "out", "", "Output directory or bucket URL (default: "+config.DefaultOutSubdir+" next to the executable)")
	fs.IntVar(&f.maxZoom, "max-zoom", def.MaxZoom, "Deepest zoom level to download (inclusive)")
	fs.IntVar(&f.workers, "workers", def.Workers, "Number of parallel workers")
	fs.DurationVar(&f.timeout, "timeout", def.Timeout, "Per-request timeout")
	fs.StringVar(&f.userAgent, "user-agent", def.UserAgent, "User-Agent header sent with every request")
	fs.Int64Var(&f.reportEvery, "report-every", def.ReportEvery, "Print a progress line every N completed tiles")
	fs.StringVar(&f.logLevel, "log-level", def.Log.Level, "Log level (trace, debug, info, warn, error)")
	fs.StringVar(&f.logFormat, "log-format", def.Log.Format, "Log format (console, json)")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
}

// resolve builds the effective configuration. Later sources win: defaults,
// then the config file, then TILESLURP_* variables, then explicit flags.
func (f *commonFlags) resolve(fs *flag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.LoadFromFile(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	var override config.Config
	zoomSet := false
	var flagErr error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "base-url":
			if f.baseURL == "" {
				flagErr = errors.New("-base-url must not be empty")
			}
			override.BaseURL = f.baseURL
		case "out":
			override.Out = f.out
		case "max-zoom":
			zoomSet = true
		case "workers":
			if f.workers <= 0 {
				flagErr = fmt.Errorf("-workers must be positive, got %d", f.workers)
			}
			override.Workers = f.workers
		case "timeout":
			if f.timeout <= 0 {
				flagErr = fmt.Errorf("-timeout must be positive, got %s", f.timeout)
			}
			override.Timeout = f.timeout
		case "user-agent":
			override.UserAgent = f.userAgent
		case "report-every":
			if f.reportEvery <= 0 {
				flagErr = fmt.Errorf("-report-every must be positive, got %d", f.reportEvery)
			}
			override.ReportEvery = f.reportEvery
		case "log-level":
			override.Log.Level = f.logLevel
		case "log-format":
			override.Log.Format = f.logFormat
		case "metrics-addr":
			override.MetricsAddr = f.metricsAddr
		}
	})
	if flagErr != nil {
		return config.Config{}, flagErr
	}
	cfg = cfg.Merge(override)
	if zoomSet {
		cfg.MaxZoom = f.maxZoom
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger builds the diagnostic logger for cfg, tagged with a run id.
func newLogger(cfg config.Config, stderr io.Writer) (zerolog.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: stderr,
	})
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("configure logging: %w", err)
	}
	return logging.WithRunID(logger), nil
}
