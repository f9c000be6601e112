package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

const appName = "trailertube"

const (
	configFileName = "config.toml"
	sessionDBName  = "sessions.db"
	tokensDirName  = "tokens"
	spoolDirName   = "spool"
	pidFileName    = "serve.pid"
	tokenExt       = ".json"
)

// DefaultConfigDir returns the platform config directory: XDG_CONFIG_HOME
// on Linux, Application Support on macOS, ~/.config elsewhere.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return xdgDir("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// DefaultDataDir returns the platform data directory holding tokens, the
// session database and the trailer spool.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return xdgDir("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".local", "share", appName)
	}
}

func xdgDir(env, fallbackBase string) string {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(fallbackBase, appName)
}

// DefaultConfigPath returns the config file used when neither
// TRAILERTUBE_CONFIG nor --config is set.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

// TokenPath returns the token file for an account. Account names are
// reduced to a safe file name.
func TokenPath(account string) string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, tokensDirName, safeFileName(account)+tokenExt)
}

// DiscoverAccounts lists the accounts that have a token file, sorted by
// name. A missing tokens directory yields no accounts.
func DiscoverAccounts() []string {
	dir := DefaultDataDir()
	if dir == "" {
		return nil
	}

	entries, err := os.ReadDir(filepath.Join(dir, tokensDirName))
	if err != nil {
		return nil
	}

	var accounts []string

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, tokenExt) {
			continue
		}

		accounts = append(accounts, strings.TrimSuffix(name, tokenExt))
	}

	return accounts
}

// PIDFilePath returns the lock file of a running `serve` process.
func PIDFilePath() string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, pidFileName)
}

// SessionDBPath returns the SQLite database of in-flight upload sessions.
func SessionDBPath() string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, sessionDBName)
}

// SpoolDir returns where downloaded trailers are buffered before upload.
func SpoolDir() string {
	dir := DefaultDataDir()
	if dir == "" {
		return os.TempDir()
	}

	return filepath.Join(dir, spoolDirName)
}

func safeFileName(account string) string {
	account = strings.TrimSpace(account)
	if account == "" {
		return defaultAccount
	}

	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.', r == '@':
			return r
		default:
			return '_'
		}
	}, account)
}
