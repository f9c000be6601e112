// Package uploadops runs whole uploads: it opens a resumable session,
// records it, streams the payload, and reports the created video. It also
// fans many uploads out over a bounded worker pool.
package uploadops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonimelisma/trailertube/internal/sessionstore"
	"github.com/tonimelisma/trailertube/internal/youtube"
)

// ErrEmptyPayload is returned for a zero-length payload; the API rejects
// empty uploads, so no session is opened.
var ErrEmptyPayload = errors.New("uploadops: payload is empty")

// cleanupTimeout bounds the session-row delete that runs after a transfer,
// including one whose context was canceled.
const cleanupTimeout = 10 * time.Second

// SessionStore persists in-flight upload sessions.
type SessionStore interface {
	Save(ctx context.Context, s sessionstore.UploadSession) (sessionstore.UploadSession, error)
	Delete(ctx context.Context, id string) error
}

// Request is one upload.
type Request struct {
	Account  string
	Metadata youtube.Metadata
	Payload  *Payload
	Progress youtube.ProgressFunc
}

// Result describes a finished upload. ResourceID is empty when the final
// response carried no video ID; the upload itself still succeeded.
type Result struct {
	FileName         string `json:"file_name"`
	ResourceID       string `json:"resource_id,omitempty"`
	WatchURL         string `json:"watch_url,omitempty"`
	SessionUploadURL string `json:"session_upload_url"`
	StatusCode       int    `json:"status_code"`
	Bytes            int64  `json:"bytes"`
}

// Service runs uploads against per-account clients.
type Service struct {
	clients ClientSource
	store   SessionStore
	logger  *slog.Logger
}

// NewService creates a Service.
func NewService(clients ClientSource, store SessionStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{clients: clients, store: store, logger: logger}
}

// Upload performs one complete upload. The payload body is closed on every
// path. The session row is saved before the first chunk and deleted exactly
// once after the transfer ends, whatever the outcome.
func (s *Service) Upload(ctx context.Context, req Request) (res *Result, err error) {
	p := req.Payload
	if p == nil || p.Body == nil {
		return nil, errors.New("uploadops: no payload")
	}

	defer p.Body.Close()

	if p.Length <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPayload, p.Name)
	}

	client, err := s.clients.Client(ctx, req.Account)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(slog.String("file", p.Name), slog.String("account", req.Account))

	sess, err := client.InitiateSession(ctx, req.Metadata, p.Length, p.ContentType)
	if err != nil {
		return nil, wrapAuth(err)
	}

	record, err := sessionstore.NewUploadSession(sess.UploadURL, p.Name, p.Length, sess.ContentType, req.Account)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("uploadops: recording session: %w", err)
	}

	defer s.releaseSession(ctx, logger, record.ID)

	logger.Info("upload started",
		slog.String("session_id", record.ID),
		slog.Int64("bytes", p.Length),
		slog.String("content_type", sess.ContentType),
	)

	final, err := client.Transfer(ctx, sess.UploadURL, sess.ContentType, p.Body, p.Length, req.Progress)
	if err != nil {
		logger.Error("upload failed",
			slog.String("session_id", record.ID),
			slog.Int64("offset", final.Offset),
			slog.String("error", err.Error()),
		)

		return nil, wrapAuth(err)
	}

	res = &Result{
		FileName:         p.Name,
		SessionUploadURL: sess.UploadURL,
		StatusCode:       final.Status,
		Bytes:            p.Length,
	}

	if final.Phase != youtube.Done {
		logger.Warn("payload exhausted without a completion response",
			slog.Int("status", final.Status),
		)

		return res, nil
	}

	if id, ok := youtube.ExtractResourceID(final.Body); ok {
		res.ResourceID = id
		res.WatchURL = youtube.WatchURL(id)
	} else {
		logger.Warn("upload finished but response has no video ID", slog.Int("status", final.Status))
	}

	logger.Info("upload complete",
		slog.String("video_id", res.ResourceID),
		slog.Int("status", res.StatusCode),
	)

	return res, nil
}

// releaseSession deletes the session row. It runs even after ctx is
// canceled, with its own deadline.
func (s *Service) releaseSession(ctx context.Context, logger *slog.Logger, id string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.store.Delete(cleanupCtx, id); err != nil {
		logger.Warn("failed to delete upload session record",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// DeleteVideo removes a video owned by account.
func (s *Service) DeleteVideo(ctx context.Context, account, videoID string) error {
	client, err := s.clients.Client(ctx, account)
	if err != nil {
		return err
	}

	return wrapAuth(client.DeleteVideo(ctx, videoID))
}

// UpdatePrivacy changes a video's privacy and returns the applied value.
func (s *Service) UpdatePrivacy(ctx context.Context, account, videoID, privacy string) (string, error) {
	client, err := s.clients.Client(ctx, account)
	if err != nil {
		return "", err
	}

	applied, err := client.UpdatePrivacy(ctx, videoID, privacy)

	return applied, wrapAuth(err)
}

// wrapAuth marks token failures as requiring a new login.
func wrapAuth(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, youtube.ErrMissingToken) || errors.Is(err, youtube.ErrUnauthorized) {
		return fmt.Errorf("%w: %w", ErrReauthRequired, err)
	}

	return err
}
