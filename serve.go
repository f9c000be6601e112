package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/trailertube/internal/config"
	"github.com/tonimelisma/trailertube/internal/server"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve uploads, video management, and trailer jobs over HTTP on
[server] listen_addr. Send SIGHUP (or run "trailertube reload") to re-read
the config file without dropping connections.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if listen == "" {
				listen = cc.Cfg.Server.ListenAddr
			}

			return runServe(cmd, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, listen string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := shutdownContext(cmd.Context(), cc.Logger)
	logger := cc.Logger

	if err := requireOAuthClient(cc.Cfg); err != nil {
		return err
	}

	pid, err := acquirePIDFile(config.PIDFilePath())
	if err != nil {
		return err
	}
	defer pid.Release()

	a, err := newApp(ctx, cc.Cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.store.FailInterruptedJobs(ctx)
	if err != nil {
		return err
	}

	if n > 0 {
		logger.Warn("marked interrupted trailer jobs failed", slog.Int("count", n))
	}

	holder := config.NewHolder(cc.Cfg)

	srv := server.New(server.Deps{
		Uploads:  a.service,
		Trailers: newTrailerClient(cc.Cfg, logger),
		Jobs:     a.store,
		Config:   holder,
		Logger:   logger,
	})

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", listen, err)
	}

	go watchReloads(ctx, cmd, holder, logger)

	cc.Statusf("Listening on http://%s\n", ln.Addr())

	return srv.Serve(ctx, ln)
}

// watchReloads re-resolves the config on every SIGHUP. A config that fails
// to load is logged and the previous one stays in effect. Upload tuning
// (chunk size, bandwidth) is fixed at start; request defaults follow reloads.
func watchReloads(ctx context.Context, cmd *cobra.Command, holder *config.Holder, logger *slog.Logger) {
	for range reloadRequests(ctx) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			logger.Error("config reload failed, keeping previous config",
				slog.String("path", holder.Path()),
				slog.String("error", err.Error()),
			)

			continue
		}

		holder.Update(cfg)
		logger.Info("config reloaded", slog.String("path", cfg.ConfigPath))
	}
}

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "reload",
		Short:       "Make a running server re-read its config",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if err := signalServer(config.PIDFilePath(), syscall.SIGHUP); err != nil {
				return err
			}

			cc.Statusf("Reload requested.\n")

			return nil
		},
	}
}
