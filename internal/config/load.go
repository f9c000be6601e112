package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads, decodes and validates a TOML config file. Unknown keys are
// fatal, each with a suggestion when a close match exists.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path if it exists and returns defaults otherwise, so
// the tool works before any config file is written.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve applies the override chain defaults -> file -> env -> CLI and
// returns a validated, fully parsed configuration.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	applyEnv(cfg, env)
	applyCLI(cfg, cli)

	// Re-validate: env and flags bypassed the file checks.
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	account := defaultAccount
	if env.Account != "" {
		account = env.Account
	}

	if cli.Account != "" {
		account = cli.Account
	}

	return finish(cfg, cfgPath, account)
}

func applyEnv(cfg *Config, env EnvOverrides) {
	if env.ClientID != "" {
		cfg.OAuth.ClientID = env.ClientID
	}

	if env.ClientSecret != "" {
		cfg.OAuth.ClientSecret = env.ClientSecret
	}

	if env.TrailerURL != "" {
		cfg.Trailer.APIURL = env.TrailerURL
	}
}

func applyCLI(cfg *Config, cli CLIOverrides) {
	if cli.ChunkSize != nil {
		cfg.Upload.ChunkSize = *cli.ChunkSize
	}

	if cli.ParallelUploads != nil {
		cfg.Upload.ParallelUploads = *cli.ParallelUploads
	}

	if cli.BandwidthLimit != nil {
		cfg.Upload.BandwidthLimit = *cli.BandwidthLimit
	}
}

// finish parses the validated string settings into their typed forms.
func finish(cfg *Config, path, account string) (*Resolved, error) {
	r := &Resolved{Config: *cfg, ConfigPath: path, Account: account}

	var err error

	if r.ChunkBytes, err = ParseSize(cfg.Upload.ChunkSize); err != nil {
		return nil, err
	}

	if r.BandwidthBytes, err = ParseRate(cfg.Upload.BandwidthLimit); err != nil {
		return nil, err
	}

	if r.ConnectTimeout, err = time.ParseDuration(cfg.Upload.ConnectTimeout); err != nil {
		return nil, err
	}

	if r.TrailerTimeout, err = time.ParseDuration(cfg.Trailer.Timeout); err != nil {
		return nil, err
	}

	if r.WatchSettle, err = time.ParseDuration(cfg.Watch.Settle); err != nil {
		return nil, err
	}

	r.Upload.DefaultPrivacy = strings.ToLower(cfg.Upload.DefaultPrivacy)

	return r, nil
}
