// Package server exposes uploads, video management, and trailer jobs over
// HTTP for backends that cannot shell out to the CLI.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tonimelisma/trailertube/internal/config"
	"github.com/tonimelisma/trailertube/internal/sessionstore"
	"github.com/tonimelisma/trailertube/internal/trailer"
	"github.com/tonimelisma/trailertube/internal/uploadops"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 30 * time.Second

// Uploader runs uploads and video operations.
type Uploader interface {
	Upload(ctx context.Context, req uploadops.Request) (*uploadops.Result, error)
	DeleteVideo(ctx context.Context, account, videoID string) error
	UpdatePrivacy(ctx context.Context, account, videoID, privacy string) (string, error)
}

// TrailerSource generates trailers.
type TrailerSource interface {
	Fetch(ctx context.Context, title, author string) (*trailer.Spool, error)
}

// JobStore persists trailer jobs.
type JobStore interface {
	CreateJob(ctx context.Context, ownerID, title, author string) (sessionstore.TrailerJob, error)
	GetJob(ctx context.Context, id string) (sessionstore.TrailerJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkSuccess(ctx context.Context, id, videoID, watchURL string) error
	MarkFailed(ctx context.Context, id, message string) error
}

// Deps are the collaborators of a Server.
type Deps struct {
	Uploads  Uploader
	Trailers TrailerSource
	Jobs     JobStore
	Config   *config.Holder
	Logger   *slog.Logger
}

// Server is the HTTP API.
type Server struct {
	deps   Deps
	logger *slog.Logger
	engine *gin.Engine

	// Background trailer jobs run under jobCtx and are bounded by jobSlots.
	jobCtx    context.Context
	jobCancel context.CancelFunc
	jobSlots  chan struct{}
	jobWG     sync.WaitGroup
}

// New builds a Server and its routes.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	parallel := deps.Config.Config().Upload.ParallelUploads
	if parallel < 1 {
		parallel = 1
	}

	jobCtx, jobCancel := context.WithCancel(context.Background())

	s := &Server{
		deps:      deps,
		logger:    logger,
		jobCtx:    jobCtx,
		jobCancel: jobCancel,
		jobSlots:  make(chan struct{}, parallel),
	}

	s.engine = s.routes()

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	if s.logger.Enabled(context.Background(), slog.LevelDebug) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	yt := engine.Group("/youtube")
	{
		yt.POST("/upload", s.handleUpload)
		yt.DELETE("/videos/:id", s.handleDeleteVideo)
		yt.PATCH("/videos/:id/privacy", s.handleUpdatePrivacy)
	}

	videos := engine.Group("/videos")
	{
		videos.POST("", s.handleCreateJob)
		videos.GET("/jobs/:id", s.handleGetJob)
	}

	return engine
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		s.logger.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully and waits for running trailer jobs.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info("api listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		s.stopJobs()
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)

	s.stopJobs()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: shutdown: %w", err)
	}

	return nil
}

// stopJobs cancels background jobs and waits for them to record their
// outcome.
func (s *Server) stopJobs() {
	s.jobCancel()
	s.jobWG.Wait()
}

// account picks the account of a request: ?account=, else the configured one.
func (s *Server) account(c *gin.Context) string {
	if a := c.Query("account"); a != "" {
		return a
	}

	return s.deps.Config.Config().Account
}
