package config

// Layer 0 of the override chain.
const (
	defaultAccount         = "default"
	defaultChunkSize       = "256KiB"
	defaultParallelUploads = 2
	defaultBandwidthLimit  = "0"
	defaultPrivacy         = "private"
	defaultConnectTimeout  = "30s"
	defaultTrailerTimeout  = "10m"
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
	defaultListenAddr      = "127.0.0.1:8080"
	defaultWatchSettle     = "2s"
)

// defaultWatchExtensions are the file types `watch` uploads.
var defaultWatchExtensions = []string{".mp4", ".mov", ".m4v", ".webm", ".mkv"}

// DefaultConfig returns a Config populated with all default values. It is
// also the starting point for TOML decoding, so unset keys keep defaults.
func DefaultConfig() *Config {
	return &Config{
		Upload: UploadConfig{
			ChunkSize:       defaultChunkSize,
			ParallelUploads: defaultParallelUploads,
			BandwidthLimit:  defaultBandwidthLimit,
			DefaultPrivacy:  defaultPrivacy,
			ConnectTimeout:  defaultConnectTimeout,
		},
		Trailer: TrailerConfig{
			Timeout: defaultTrailerTimeout,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		Server: ServerConfig{
			ListenAddr: defaultListenAddr,
		},
		Watch: WatchConfig{
			Extensions: append([]string(nil), defaultWatchExtensions...),
			Settle:     defaultWatchSettle,
		},
	}
}
