package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/trailertube/internal/config"
)

// newRootCmd binds the persistent flags to package globals and resets them.
// Set globals after newRootCmd returns, or let cobra parse them.

func resetGlobalFlags(t *testing.T) {
	t.Helper()

	t.Cleanup(func() {
		flagConfigPath, flagAccount = "", ""
		flagJSON, flagVerbose, flagDebug, flagQuiet = false, false, false, false
		flagChunkSize, flagBandwidthLimit = "", ""
		flagParallel = 0
	})
}

// isolateEnv points config and data at t.TempDir and clears TRAILERTUBE_*.
func isolateEnv(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	for _, k := range []string{
		config.EnvConfig, config.EnvAccount, config.EnvClientID, config.EnvClientSecret, config.EnvTrailerURL,
	} {
		t.Setenv(k, "")
	}

	return dir
}

func enabled(l *slog.Logger, level slog.Level) bool {
	return l.Handler().Enabled(context.Background(), level)
}

func TestBootstrapLogger_Levels(t *testing.T) {
	resetGlobalFlags(t)

	tests := []struct {
		name                   string
		verbose, debug, quiet  bool
		wantEnabled, wantMuted slog.Level
	}{
		{"default", false, false, false, slog.LevelWarn, slog.LevelInfo},
		{"verbose", true, false, false, slog.LevelInfo, slog.LevelDebug},
		{"debug", false, true, false, slog.LevelDebug, slog.LevelDebug - 4},
		{"quiet", false, false, true, slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flagVerbose, flagDebug, flagQuiet = tt.verbose, tt.debug, tt.quiet

			logger := bootstrapLogger()
			assert.True(t, enabled(logger, tt.wantEnabled))
			assert.False(t, enabled(logger, tt.wantMuted))
		})
	}
}

func TestBuildLogger_ConfigLevelIsBaseline(t *testing.T) {
	cfg := &config.Resolved{Config: *config.DefaultConfig()}
	cfg.Logging.LogLevel = "debug"
	cfg.Logging.LogFormat = "text"

	assert.True(t, enabled(buildLogger(cfg, CLIFlags{}), slog.LevelDebug))

	// Flags win over the file.
	quiet := buildLogger(cfg, CLIFlags{Quiet: true})
	assert.False(t, enabled(quiet, slog.LevelWarn))
	assert.True(t, enabled(quiet, slog.LevelError))
}

func TestBuildLogger_NilConfig(t *testing.T) {
	logger := buildLogger(nil, CLIFlags{Verbose: true})
	assert.True(t, enabled(logger, slog.LevelInfo))
	assert.False(t, enabled(logger, slog.LevelDebug))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug", slog.LevelWarn))
	assert.Equal(t, slog.LevelError, parseLevel("error", slog.LevelWarn))
	assert.Equal(t, slog.LevelWarn, parseLevel("loud", slog.LevelWarn))
}

func TestNewLogHandler_Formats(t *testing.T) {
	var buf bytes.Buffer

	_, ok := newLogHandler(&buf, slog.LevelInfo, "json").(*slog.JSONHandler)
	assert.True(t, ok)

	_, ok = newLogHandler(&buf, slog.LevelInfo, "text").(*slog.TextHandler)
	assert.True(t, ok)

	// Not a terminal: auto falls back to text.
	_, ok = newLogHandler(&buf, slog.LevelInfo, "auto").(*slog.TextHandler)
	assert.True(t, ok)

	slog.New(newLogHandler(&buf, slog.LevelInfo, "json")).Info("hello", slog.String("k", "v"))
	assert.Contains(t, buf.String(), `"k":"v"`)
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	resetGlobalFlags(t)

	cmd := newRootCmd()

	expected := []string{
		"login", "logout", "status", "upload", "trailer", "video", "sessions", "watch", "serve", "reload",
	}

	for _, name := range expected {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	for _, path := range [][]string{{"video", "delete"}, {"video", "privacy"}, {"sessions", "list"}, {"sessions", "clean"}} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err)
		assert.Equal(t, path[1], sub.Name())
	}
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	resetGlobalFlags(t)

	cmd := newRootCmd()

	for _, name := range []string{
		"config", "account", "json", "verbose", "debug", "quiet", "chunk-size", "parallel", "bandwidth-limit",
	} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing persistent flag %q", name)
	}
}

func TestNewRootCmd_MutualExclusivity(t *testing.T) {
	resetGlobalFlags(t)
	isolateEnv(t)

	pairs := [][]string{
		{"--verbose", "--quiet"},
		{"--debug", "--quiet"},
	}

	for _, flags := range pairs {
		t.Run(flags[0]+"_"+flags[1], func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetArgs(append(flags, "status"))

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "none of the others can be")
		})
	}
}

func TestNewRootCmd_SkipConfigCommands(t *testing.T) {
	resetGlobalFlags(t)
	isolateEnv(t)

	cmd := newRootCmd()

	// A broken config file must not matter to these commands.
	flagConfigPath = filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(flagConfigPath, []byte("[upload\n"), 0o600))

	for _, name := range []string{"logout", "status", "reload"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)

			sub.SetContext(context.Background())
			require.NoError(t, cmd.PersistentPreRunE(sub, nil))

			cc, ok := cliContextFrom(sub.Context())
			require.True(t, ok)
			assert.Nil(t, cc.Cfg)
			assert.NotNil(t, cc.Logger)
		})
	}
}

func TestNewRootCmd_ConfigCommandsResolve(t *testing.T) {
	resetGlobalFlags(t)
	isolateEnv(t)

	cmd := newRootCmd()

	sub, _, err := cmd.Find([]string{"sessions", "list"})
	require.NoError(t, err)

	sub.SetContext(context.Background())
	require.NoError(t, cmd.PersistentPreRunE(sub, nil))

	cc := mustCLIContext(sub.Context())
	require.NotNil(t, cc.Cfg)
	assert.Equal(t, "default", cc.Cfg.Account)
}

func TestMustCLIContext_PanicsWhenMissing(t *testing.T) {
	assert.Panics(t, func() { mustCLIContext(context.Background()) })
}

func TestLoadConfig_FileAndChangedFlags(t *testing.T) {
	resetGlobalFlags(t)
	isolateEnv(t)

	cfgFile := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
[upload]
chunk_size = "1MiB"
parallel_uploads = 4
default_privacy = "unlisted"

[oauth]
client_id = "abc.apps.googleusercontent.com"
`), 0o600))

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", cfgFile, "--parallel", "1", "--account", "press"}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, cfgFile, cfg.ConfigPath)
	assert.Equal(t, "press", cfg.Account)
	assert.Equal(t, int64(1<<20), cfg.ChunkBytes)
	assert.Equal(t, 1, cfg.Upload.ParallelUploads)
	assert.Equal(t, "unlisted", cfg.Upload.DefaultPrivacy)
	assert.Equal(t, "abc.apps.googleusercontent.com", cfg.OAuth.ClientID)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	resetGlobalFlags(t)
	isolateEnv(t)

	cmd := newRootCmd()
	flagConfigPath = filepath.Join(t.TempDir(), "nonexistent.toml")

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, int64(256*1024), cfg.ChunkBytes)
	assert.Equal(t, "private", cfg.Upload.DefaultPrivacy)
}

func TestLoadConfig_InvalidChunkSizeFlag(t *testing.T) {
	resetGlobalFlags(t)
	isolateEnv(t)

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--config", filepath.Join(t.TempDir(), "none.toml"), "--chunk-size", "100KiB",
	}))

	_, err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}
