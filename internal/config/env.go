package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig       = "TRAILERTUBE_CONFIG"
	EnvAccount      = "TRAILERTUBE_ACCOUNT"
	EnvClientID     = "TRAILERTUBE_CLIENT_ID"
	EnvClientSecret = "TRAILERTUBE_CLIENT_SECRET"
	EnvTrailerURL   = "TRAILERTUBE_TRAILER_URL"
)

// EnvOverrides holds values read from the environment.
type EnvOverrides struct {
	ConfigPath   string
	Account      string
	ClientID     string
	ClientSecret string
	TrailerURL   string
}

// ReadEnvOverrides reads the TRAILERTUBE_* variables. It does not touch
// any Config; Resolve applies the fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		Account:      os.Getenv(EnvAccount),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		TrailerURL:   os.Getenv(EnvTrailerURL),
	}
}
