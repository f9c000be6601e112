package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tonimelisma/trailertube/internal/trailer"
	"github.com/tonimelisma/trailertube/internal/uploadops"
)

// markTimeout bounds the job-status write after a job ends.
const markTimeout = 10 * time.Second

type createJobRequest struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	Account string `json:"account"`
}

// handleCreateJob starts generating and uploading a trailer and answers 202
// with the job to poll.
func (s *Server) handleCreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		badRequest(c, "title is required")
		return
	}

	account := req.Account
	if account == "" {
		account = s.account(c)
	}

	job, err := s.deps.Jobs.CreateJob(c.Request.Context(), account, req.Title, req.Author)
	if err != nil {
		abortWithError(c, err)
		return
	}

	s.jobWG.Add(1)

	go s.runJob(job.ID, account, req.Title, req.Author)

	c.JSON(http.StatusAccepted, job)
}

func (s *Server) handleGetJob(c *gin.Context) {
	job, err := s.deps.Jobs.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// runJob fetches the trailer and uploads it. At most ParallelUploads jobs
// run at once; the rest wait pending.
func (s *Server) runJob(id, account, title, author string) {
	defer s.jobWG.Done()

	logger := s.logger.With(slog.String("job_id", id))

	select {
	case s.jobSlots <- struct{}{}:
		defer func() { <-s.jobSlots }()
	case <-s.jobCtx.Done():
		s.finishJob(logger, id, nil, s.jobCtx.Err())
		return
	}

	if err := s.deps.Jobs.MarkProcessing(s.jobCtx, id); err != nil {
		logger.Warn("failed to mark job processing", slog.String("error", err.Error()))
	}

	res, err := s.generateAndUpload(s.jobCtx, account, title, author)
	s.finishJob(logger, id, res, err)
}

func (s *Server) generateAndUpload(ctx context.Context, account, title, author string) (*uploadops.Result, error) {
	sp, err := s.deps.Trailers.Fetch(ctx, title, author)
	if err != nil {
		return nil, err
	}

	cfg := s.deps.Config.Config().Upload

	return s.deps.Uploads.Upload(ctx, uploadops.Request{
		Account:  account,
		Metadata: trailer.UploadMetadata(title, author, cfg.DefaultCategory),
		Payload: &uploadops.Payload{
			Name:        trailer.FileName(title),
			ContentType: "video/mp4",
			Length:      sp.Length(),
			Body:        sp,
		},
	})
}

func (s *Server) finishJob(logger *slog.Logger, id string, res *uploadops.Result, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), markTimeout)
	defer cancel()

	var markErr error

	if err != nil {
		logger.Error("trailer job failed", slog.String("error", err.Error()))
		markErr = s.deps.Jobs.MarkFailed(ctx, id, err.Error())
	} else {
		logger.Info("trailer job complete", slog.String("video_id", res.ResourceID))
		markErr = s.deps.Jobs.MarkSuccess(ctx, id, res.ResourceID, res.WatchURL)
	}

	if markErr != nil {
		logger.Warn("failed to record job outcome", slog.String("error", markErr.Error()))
	}
}
