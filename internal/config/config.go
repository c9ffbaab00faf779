package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	slurphttp "github.com/barrygee/tileslurp/internal/http"
	"github.com/barrygee/tileslurp/internal/progress"
	"github.com/barrygee/tileslurp/internal/tile"
)

// DefaultBaseURL is the tile server used when none is configured.
const DefaultBaseURL = "https://tiles.openfreemap.org/natural_earth/ne2sr"

// DefaultOutSubdir is where tiles go, relative to the executable, when no
// output location is configured.
const DefaultOutSubdir = "assets/tiles/world"

// Config defines configuration for the tileslurp CLI.
type Config struct {
	BaseURL     string        `yaml:"base_url"`
	Out         string        `yaml:"out"`
	MaxZoom     int           `yaml:"max_zoom"`
	Workers     int           `yaml:"workers"`
	Timeout     time.Duration `yaml:"timeout"`
	UserAgent   string        `yaml:"user_agent"`
	MaxTileSize int64         `yaml:"max_tile_size"`
	ReportEvery int64         `yaml:"report_every"`
	MetricsAddr string        `yaml:"metrics_addr"`
	Log         LogConfig     `yaml:"log"`
}

// LogConfig defines diagnostic logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults. Out is left empty and
// resolved next to the executable by ResolveOut.
func Default() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		MaxZoom:     6,
		Workers:     6,
		Timeout:     15 * time.Second,
		UserAgent:   slurphttp.DefaultUserAgent,
		MaxTileSize: 16 * 1024 * 1024, // 16MiB
		ReportEvery: progress.DefaultEvery,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations and sizes.
type yamlConfig struct {
	BaseURL     string    `yaml:"base_url"`
	Out         string    `yaml:"out"`
	MaxZoom     *int      `yaml:"max_zoom"`
	Workers     int       `yaml:"workers"`
	Timeout     string    `yaml:"timeout"`
	UserAgent   string    `yaml:"user_agent"`
	MaxTileSize string    `yaml:"max_tile_size"`
	ReportEvery int64     `yaml:"report_every"`
	MetricsAddr string    `yaml:"metrics_addr"`
	Log         LogConfig `yaml:"log"`
}

// LoadFromFile loads configuration from a YAML file on top of Default.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.BaseURL != "" {
		cfg.BaseURL = yc.BaseURL
	}
	if yc.Out != "" {
		cfg.Out = yc.Out
	}
	// max_zoom: 0 is meaningful, so absence is tracked with a pointer.
	if yc.MaxZoom != nil {
		cfg.MaxZoom = *yc.MaxZoom
	}
	if yc.Workers != 0 {
		cfg.Workers = yc.Workers
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.UserAgent != "" {
		cfg.UserAgent = yc.UserAgent
	}
	if yc.MaxTileSize != "" {
		size, err := progress.ParseBytes(yc.MaxTileSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse max_tile_size: %w", err)
		}
		cfg.MaxTileSize = size
	}
	if yc.ReportEvery != 0 {
		cfg.ReportEvery = yc.ReportEvery
	}
	if yc.MetricsAddr != "" {
		cfg.MetricsAddr = yc.MetricsAddr
	}
	if yc.Log.Level != "" {
		cfg.Log.Level = yc.Log.Level
	}
	if yc.Log.Format != "" {
		cfg.Log.Format = yc.Log.Format
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the TILESLURP_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("TILESLURP_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("TILESLURP_OUT"); v != "" {
		c.Out = v
	}
	if v := os.Getenv("TILESLURP_MAX_ZOOM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse TILESLURP_MAX_ZOOM: %w", err)
		}
		c.MaxZoom = n
	}
	if v := os.Getenv("TILESLURP_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse TILESLURP_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("TILESLURP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse TILESLURP_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("TILESLURP_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("TILESLURP_MAX_TILE_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse TILESLURP_MAX_TILE_SIZE: %w", err)
		}
		c.MaxTileSize = size
	}
	if v := os.Getenv("TILESLURP_REPORT_EVERY"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse TILESLURP_REPORT_EVERY: %w", err)
		}
		c.ReportEvery = n
	}
	if v := os.Getenv("TILESLURP_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("TILESLURP_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TILESLURP_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("config: base_url is required")
	}
	if c.MaxZoom < 0 || c.MaxZoom > tile.MaxZoom {
		return fmt.Errorf("config: max_zoom must be between 0 and %d", tile.MaxZoom)
	}
	if c.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	if c.MaxTileSize <= 0 {
		return errors.New("config: max_tile_size must be positive")
	}
	if c.ReportEvery <= 0 {
		return errors.New("config: report_every must be positive")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored. Zoom 0 therefore cannot be forced
// through Merge; callers that need it assign MaxZoom directly.
func (c Config) Merge(override Config) Config {
	if override.BaseURL != "" {
		c.BaseURL = override.BaseURL
	}
	if override.Out != "" {
		c.Out = override.Out
	}
	if override.MaxZoom != 0 {
		c.MaxZoom = override.MaxZoom
	}
	if override.Workers != 0 {
		c.Workers = override.Workers
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.UserAgent != "" {
		c.UserAgent = override.UserAgent
	}
	if override.MaxTileSize != 0 {
		c.MaxTileSize = override.MaxTileSize
	}
	if override.ReportEvery != 0 {
		c.ReportEvery = override.ReportEvery
	}
	if override.MetricsAddr != "" {
		c.MetricsAddr = override.MetricsAddr
	}
	if override.Log.Level != "" {
		c.Log.Level = override.Log.Level
	}
	if override.Log.Format != "" {
		c.Log.Format = override.Log.Format
	}
	return c
}

// ResolveOut returns the configured output location, or DefaultOutSubdir
// next to the running executable when none is set.
func (c *Config) ResolveOut() (string, error) {
	if c.Out != "" {
		return c.Out, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), filepath.FromSlash(DefaultOutSubdir)), nil
}
