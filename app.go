package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/trailertube/internal/config"
	"github.com/tonimelisma/trailertube/internal/sessionstore"
	"github.com/tonimelisma/trailertube/internal/trailer"
	"github.com/tonimelisma/trailertube/internal/uploadops"
	"github.com/tonimelisma/trailertube/internal/youtube"
)

// app bundles what upload-capable commands need. Close releases the store.
type app struct {
	cfg     *config.Resolved
	logger  *slog.Logger
	store   *sessionstore.Store
	service *uploadops.Service
}

// newApp opens the session store and builds the upload service from cfg.
func newApp(ctx context.Context, cfg *config.Resolved, logger *slog.Logger) (*app, error) {
	store, err := sessionstore.Open(ctx, config.SessionDBPath(), logger)
	if err != nil {
		return nil, err
	}

	provider := uploadops.NewClientProvider(providerOptions(cfg, logger), logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		service: uploadops.NewService(provider, store, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing session store", slog.String("error", err.Error()))
	}
}

func providerOptions(cfg *config.Resolved, logger *slog.Logger) uploadops.ProviderOptions {
	return uploadops.ProviderOptions{
		UserAgent:   cfg.Upload.UserAgent,
		ChunkSize:   cfg.ChunkBytes,
		Limiter:     uploadops.NewBandwidthLimiter(cfg.BandwidthBytes, logger),
		HTTPClient:  uploadops.NewUploadHTTPClient(cfg.ConnectTimeout),
		Credentials: oauthCredentials(cfg),
		TokenPath:   config.TokenPath,
	}
}

func oauthCredentials(cfg *config.Resolved) youtube.OAuthCredentials {
	return youtube.OAuthCredentials{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
	}
}

func newTrailerClient(cfg *config.Resolved, logger *slog.Logger) *trailer.Client {
	return trailer.NewClient(cfg.Trailer.APIURL, &http.Client{}, config.SpoolDir(), cfg.TrailerTimeout, logger)
}

// requireOAuthClient fails early with a hint when no OAuth client is set.
func requireOAuthClient(cfg *config.Resolved) error {
	if cfg.OAuth.ClientID == "" {
		return fmt.Errorf("no OAuth client configured: set [oauth] client_id in %s or TRAILERTUBE_CLIENT_ID", cfg.ConfigPath)
	}

	return nil
}
