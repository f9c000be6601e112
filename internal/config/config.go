// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for trailertube. Values resolve through
// four layers: defaults, then the config file, then environment variables,
// then CLI flags.
package config

import "time"

// Config is the top-level structure parsed from the TOML file. Every
// setting lives in a named section.
type Config struct {
	Upload  UploadConfig  `toml:"upload"`
	Trailer TrailerConfig `toml:"trailer"`
	OAuth   OAuthConfig   `toml:"oauth"`
	Logging LoggingConfig `toml:"logging"`
	Server  ServerConfig  `toml:"server"`
	Watch   WatchConfig   `toml:"watch"`
}

// UploadConfig controls the resumable upload client. chunk_size must be a
// multiple of 256 KiB, the granularity the upload protocol accepts.
type UploadConfig struct {
	ChunkSize       string   `toml:"chunk_size"`
	ParallelUploads int      `toml:"parallel_uploads"`
	BandwidthLimit  string   `toml:"bandwidth_limit"`
	DefaultPrivacy  string   `toml:"default_privacy"`
	DefaultCategory string   `toml:"default_category"`
	DefaultTags     []string `toml:"default_tags"`
	ConnectTimeout  string   `toml:"connect_timeout"`
	UserAgent       string   `toml:"user_agent"`
}

// TrailerConfig points at the external service that renders trailers.
type TrailerConfig struct {
	APIURL  string `toml:"api_url"`
	Timeout string `toml:"timeout"`
}

// OAuthConfig holds the Google OAuth client credentials. The secret of an
// installed-app client is not confidential, but it can still come from the
// environment instead of the file.
type OAuthConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// LoggingConfig controls log level and output format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// ServerConfig controls the `serve` HTTP API.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// WatchConfig controls the `watch` command.
type WatchConfig struct {
	Dir        string   `toml:"dir"`
	Extensions []string `toml:"extensions"`
	Settle     string   `toml:"settle"`
}

// CLIOverrides holds values from CLI flags. Pointer fields distinguish
// "not given" (nil) from an explicit zero value.
type CLIOverrides struct {
	ConfigPath      string  // --config (empty = default path)
	Account         string  // --account (empty = default account)
	ChunkSize       *string // --chunk-size
	ParallelUploads *int    // --parallel
	BandwidthLimit  *string // --bandwidth-limit
}

// Resolved is a validated configuration with every size and duration
// parsed, plus the account the command runs as.
type Resolved struct {
	Config

	ConfigPath string
	Account    string

	ChunkBytes     int64
	BandwidthBytes int64 // per second; 0 is unlimited
	ConnectTimeout time.Duration
	TrailerTimeout time.Duration
	WatchSettle    time.Duration
}
