// Package trailer requests generated book trailers from the trailer API and
// prepares them for upload.
package trailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// DefaultTimeout bounds one trailer generation, including the download.
const DefaultTimeout = 10 * time.Minute

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 64 * 1024

// ErrRejected means the trailer API refused the request (HTTP 422). The
// error text carries the response body.
var ErrRejected = errors.New("trailer: request rejected")

// ErrNoEndpoint is returned when no trailer API URL is configured.
var ErrNoEndpoint = errors.New("trailer: api_url is not configured")

// StatusError reports any other non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("trailer: generation failed with HTTP %d: %s", e.StatusCode, e.Body)
}

type generateRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// Client talks to the trailer generation API.
type Client struct {
	url        string
	httpClient *http.Client
	spoolDir   string
	timeout    time.Duration
	logger     *slog.Logger
}

// NewClient creates a trailer Client. Responses are spooled under spoolDir
// (os.TempDir() when empty). A zero timeout means DefaultTimeout.
func NewClient(apiURL string, httpClient *http.Client, spoolDir string, timeout time.Duration, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		url:        apiURL,
		httpClient: httpClient,
		spoolDir:   spoolDir,
		timeout:    timeout,
		logger:     logger,
	}
}

// Fetch generates a trailer for the book and returns it spooled to disk.
// The caller must Close the result, which removes the file.
func (c *Client) Fetch(ctx context.Context, title, author string) (*Spool, error) {
	if c.url == "" {
		return nil, ErrNoEndpoint
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{Title: title, Author: author})
	if err != nil {
		return nil, fmt.Errorf("trailer: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("trailer: creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "video/mp4")

	c.logger.Info("requesting trailer",
		slog.String("title", title),
		slog.String("author", author),
	)

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trailer: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		msg := readErrorBody(resp.Body)
		if msg == "" {
			msg = "no response body"
		}

		return nil, fmt.Errorf("%w: %s", ErrRejected, msg)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	sp, err := SpoolFrom(c.spoolDir, resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Info("trailer generated",
		slog.Int64("bytes", sp.Length()),
		slog.Duration("elapsed", time.Since(start)),
	)

	return sp, nil
}

func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}

	return string(b)
}

// Spool is a downloaded trailer held in a temporary file. It can be read
// sequentially or at any offset, so an upload can resume from wherever the
// server asks.
type Spool struct {
	f    *os.File
	size int64
}

// SpoolFrom copies r into a new temp file under dir (os.TempDir() when
// empty). On error nothing is left behind.
func SpoolFrom(dir string, r io.Reader) (*Spool, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil { //nolint:mnd // owner-only dir perms
			return nil, fmt.Errorf("trailer: creating spool dir: %w", err)
		}
	}

	f, err := os.CreateTemp(dir, "trailer-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("trailer: creating spool file: %w", err)
	}

	n, err := io.Copy(f, r)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}

	if err != nil {
		f.Close()
		os.Remove(f.Name())

		return nil, fmt.Errorf("trailer: downloading trailer: %w", err)
	}

	return &Spool{f: f, size: n}, nil
}

// Length is the trailer size in bytes.
func (s *Spool) Length() int64 { return s.size }

// Path is the temp file location.
func (s *Spool) Path() string { return s.f.Name() }

func (s *Spool) Read(p []byte) (int, error) { return s.f.Read(p) }

func (s *Spool) ReadAt(p []byte, off int64) (int, error) { return s.f.ReadAt(p, off) }

// Close closes and removes the temp file.
func (s *Spool) Close() error {
	closeErr := s.f.Close()

	if err := os.Remove(s.f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("trailer: removing spool file: %w", err)
	}

	return closeErr
}
