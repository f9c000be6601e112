package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/trailertube/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// skipConfigAnnotation marks commands that work without a resolved config:
// they either bootstrap it or only touch files on disk.
const skipConfigAnnotation = "skipConfig"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagAccount    string
	flagJSON       bool
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool

	flagChunkSize      string
	flagParallel       int
	flagBandwidthLimit string
)

// CLIFlags is a snapshot of the persistent flags of one invocation.
type CLIFlags struct {
	ConfigPath string
	Account    string
	JSON       bool
	Verbose    bool
	Debug      bool
	Quiet      bool
}

// CLIContext travels in the command context from PersistentPreRunE to RunE.
// Cfg is nil for commands annotated with skipConfigAnnotation.
type CLIContext struct {
	Flags  CLIFlags
	Logger *slog.Logger
	Cfg    *config.Resolved
}

type cliContextKey struct{}

// cliContextFrom returns the CLIContext stored in ctx, if any.
func cliContextFrom(ctx context.Context) (*CLIContext, bool) {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	return cc, ok
}

// mustCLIContext returns the CLIContext stored in ctx. Panics when missing:
// every command runs after the root pre-run that stores it.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := cliContextFrom(ctx)
	if !ok {
		panic("BUG: CLIContext missing from command context")
	}

	return cc
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trailertube",
		Short: "Resumable YouTube uploader for book trailers",
		Long: `trailertube uploads videos to YouTube through the resumable upload
protocol, generates book trailers through a trailer API, and exposes both
over a small HTTP API.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			flags := currentFlags()
			cc := &CLIContext{Flags: flags, Logger: bootstrapLogger()}

			if cmd.Annotations[skipConfigAnnotation] != "true" {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}

				cc.Cfg = cfg
				cc.Logger = buildLogger(cfg, flags)
			}

			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))

			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flagConfigPath, "config", "", "config file path")
	pf.StringVar(&flagAccount, "account", "", "account to act as (default \"default\")")
	pf.BoolVar(&flagJSON, "json", false, "output in JSON format")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable info logging")
	pf.BoolVar(&flagDebug, "debug", false, "enable debug logging")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	pf.StringVar(&flagChunkSize, "chunk-size", "", "upload chunk size, a multiple of 256KiB (e.g. 8MiB)")
	pf.IntVar(&flagParallel, "parallel", 0, "concurrent uploads")
	pf.StringVar(&flagBandwidthLimit, "bandwidth-limit", "", "upload bandwidth cap (e.g. 5MB/s, 0 = unlimited)")

	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	cmd.MarkFlagsMutuallyExclusive("debug", "quiet")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newTrailerCmd())
	cmd.AddCommand(newVideoCmd())
	cmd.AddCommand(newSessionsCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newReloadCmd())

	return cmd
}

func currentFlags() CLIFlags {
	return CLIFlags{
		ConfigPath: flagConfigPath,
		Account:    flagAccount,
		JSON:       flagJSON,
		Verbose:    flagVerbose,
		Debug:      flagDebug,
		Quiet:      flagQuiet,
	}
}

// loadConfig resolves the four-layer override chain. Only flags the user
// actually set reach the resolver.
func loadConfig(cmd *cobra.Command) (*config.Resolved, error) {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
		Account:    flagAccount,
	}

	flags := cmd.Flags()

	if flags.Changed("chunk-size") {
		cli.ChunkSize = &flagChunkSize
	}

	if flags.Changed("parallel") {
		cli.ParallelUploads = &flagParallel
	}

	if flags.Changed("bandwidth-limit") {
		cli.BandwidthLimit = &flagBandwidthLimit
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return resolved, nil
}

// bootstrapLogger is used before config is loaded: warnings only, unless
// flags ask for more.
func bootstrapLogger() *slog.Logger {
	level := slog.LevelWarn

	switch {
	case flagDebug:
		level = slog.LevelDebug
	case flagVerbose:
		level = slog.LevelInfo
	case flagQuiet:
		level = slog.LevelError
	}

	return slog.New(newLogHandler(os.Stderr, level, "auto"))
}

// buildLogger creates the logger from config and flags. The config file
// level is the baseline; flags win.
func buildLogger(cfg *config.Resolved, flags CLIFlags) *slog.Logger {
	level := slog.LevelWarn
	format := "auto"

	if cfg != nil {
		level = parseLevel(cfg.Logging.LogLevel, level)
		format = cfg.Logging.LogFormat
	}

	switch {
	case flags.Debug:
		level = slog.LevelDebug
	case flags.Verbose:
		level = slog.LevelInfo
	case flags.Quiet:
		level = slog.LevelError
	}

	return slog.New(newLogHandler(os.Stderr, level, format))
}

func parseLevel(s string, fallback slog.Level) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

// newLogHandler picks the handler for format: "json", "text", or "auto"
// (colored charm output on a terminal, text otherwise).
func newLogHandler(w io.Writer, level slog.Level, format string) slog.Handler {
	switch format {
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "text":
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}

	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(level),
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
		})
	}

	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
