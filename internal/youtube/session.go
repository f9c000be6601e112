package youtube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
)

// resumablePath opens a resumable upload session for a new video.
const resumablePath = "/upload/youtube/v3/videos?uploadType=resumable&part=snippet,status,contentDetails"

const (
	jsonContentType    = "application/json; charset=UTF-8"
	defaultContentType = "application/octet-stream"
)

// maxErrorBody caps how much of an error response body is kept.
const maxErrorBody = 64 * 1024

// Session is a server-issued resumable upload target. UploadURL is single
// use and pre-scoped to one video; ContentType is what every chunk must
// declare.
type Session struct {
	UploadURL   string
	ContentType string
	Length      int64
}

// InitiateSession opens a resumable upload session for a payload of the
// given length and content type. Metadata travels as the JSON body; length
// and type are declared in X-Upload-Content-* headers, which the server
// checks the chunks against. Not retried: the caller decides.
func (c *Client) InitiateSession(
	ctx context.Context, m Metadata, length int64, contentType string,
) (*Session, error) {
	if length < 0 {
		return nil, fmt.Errorf("youtube: negative payload length %d", length)
	}

	if contentType == "" {
		contentType = defaultContentType
	}

	body, err := EncodeMetadata(m)
	if err != nil {
		return nil, err
	}

	c.logger.Info("creating upload session",
		slog.Int64("length", length),
		slog.String("content_type", contentType),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+resumablePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("youtube: creating session request: %w", err)
	}

	if err := c.authorize(req); err != nil {
		return nil, fmt.Errorf("youtube: %w", err)
	}

	req.Header.Set("Content-Type", jsonContentType)
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(length, 10))
	req.Header.Set("X-Upload-Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("session request failed", slog.String("error", err.Error()))

		return nil, fmt.Errorf("youtube: session request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best-effort read for error message

		c.logger.Error("upload session rejected", slog.Int("status", resp.StatusCode))

		return nil, &SessionInitiationError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	// Drain body to reuse connection.
	if _, drainErr := io.Copy(io.Discard, resp.Body); drainErr != nil {
		c.logger.Debug("draining session response", slog.String("error", drainErr.Error()))
	}

	loc, err := resp.Location()
	if err != nil {
		if errors.Is(err, http.ErrNoLocation) {
			return nil, &SessionInitiationError{StatusCode: resp.StatusCode, MissingLocation: true}
		}

		return nil, fmt.Errorf("youtube: parsing session Location: %w", err)
	}

	c.logger.Debug("upload session created", slog.Int("status", resp.StatusCode))

	return &Session{
		UploadURL:   loc.String(),
		ContentType: contentType,
		Length:      length,
	}, nil
}
