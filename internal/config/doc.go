// Package config defines configuration structures for the tileslurp CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (TILESLURP_ prefix)
//   - YAML configuration file
//
// Later sources win: defaults, then file, then environment, then flags.
//
// # Structure
//
//	type Config struct {
//	    BaseURL     string
//	    Out         string
//	    MaxZoom     int
//	    Workers     int
//	    Timeout     time.Duration
//	    UserAgent   string
//	    MaxTileSize int64
//	    ReportEvery int64
//	    MetricsAddr string
//	    Log         LogConfig
//	}
package config
