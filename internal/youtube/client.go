package youtube

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"
)

// DefaultBaseURL is the Google APIs host. Upload endpoints live under
// /upload/youtube/v3, metadata endpoints under /youtube/v3.
const DefaultBaseURL = "https://www.googleapis.com"

// Retry and backoff constants for metadata requests.
const (
	maxRetries     = 5
	baseBackoff    = 1 * time.Second
	maxBackoff     = 60 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
)

// DefaultUserAgent is sent when NewClient is given an empty user agent.
const DefaultUserAgent = "trailertube/0.1"

// TokenSource provides OAuth2 bearer tokens.
type TokenSource interface {
	Token() (string, error)
}

// Doer sends a single HTTP request. *http.Client satisfies it; tests
// substitute scripted transports.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// BodyWrapper wraps each chunk body before it is sent, e.g. to apply a
// bandwidth limit. Nil means no wrapping.
type BodyWrapper func(ctx context.Context, r io.Reader) io.Reader

// Client talks to the YouTube Data API: retried metadata calls through Do,
// and the resumable upload protocol through InitiateSession and Transfer.
type Client struct {
	baseURL    string
	httpClient Doer
	token      TokenSource
	logger     *slog.Logger
	userAgent  string

	chunkSize int64
	wrapBody  BodyWrapper

	// sleepFunc waits between retries; replaced in tests.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client. baseURL is normally DefaultBaseURL; nil
// httpClient and logger fall back to the defaults.
func NewClient(baseURL string, httpClient Doer, token TokenSource, logger *slog.Logger, userAgent string) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		userAgent:  userAgent,
		chunkSize:  DefaultChunkSize,
		sleepFunc:  timeSleep,
	}
}

// SetChunkSize overrides the chunk size used by Transfer.
func (c *Client) SetChunkSize(n int64) error {
	if n <= 0 {
		return fmt.Errorf("youtube: chunk size must be positive, got %d", n)
	}

	c.chunkSize = n

	return nil
}

// ChunkSize returns the chunk size used by Transfer.
func (c *Client) ChunkSize() int64 {
	return c.chunkSize
}

// SetBodyWrapper installs a wrapper applied to every chunk body.
func (c *Client) SetBodyWrapper(w BodyWrapper) {
	c.wrapBody = w
}

// Do sends an authenticated JSON request to baseURL+path. Network errors
// and 408/429/5xx responses are retried with backoff; other non-2xx
// responses become *APIError. body may be nil. The caller closes the
// response body.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	logger := c.logger.With(slog.String("method", method), slog.String("path", path))

	for attempt := 0; ; attempt++ {
		req, err := c.newRequest(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)

		var wait time.Duration

		switch {
		case err != nil && ctx.Err() != nil:
			return nil, fmt.Errorf("youtube: request canceled: %w", ctx.Err())

		case err != nil:
			if attempt == maxRetries {
				return nil, fmt.Errorf("youtube: %s %s failed after %d retries: %w", method, path, maxRetries, err)
			}

			wait = c.calcBackoff(attempt)
			logger.Warn("network error, retrying",
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()),
			)

		case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
			logger.Debug("request succeeded", slog.Int("status", resp.StatusCode))
			return resp, nil

		default:
			apiErr := drainAPIError(resp)

			if !isRetryable(resp.StatusCode) || attempt == maxRetries {
				if attempt > 0 {
					logger.Error("request failed after retries",
						slog.Int("status", resp.StatusCode),
						slog.Int("attempts", attempt+1),
					)
				}

				return nil, apiErr
			}

			wait = c.retryBackoff(resp, attempt)
			logger.Warn("retryable status, retrying",
				slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", wait),
			)
		}

		if err := c.sleepFunc(ctx, wait); err != nil {
			return nil, fmt.Errorf("youtube: request canceled: %w", err)
		}
	}
}

// drainAPIError reads and closes a failed response.
func drainAPIError(resp *http.Response) *APIError {
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()

	if err != nil {
		data = []byte("(failed to read response body)")
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    string(data),
		Err:        classifyStatus(resp.StatusCode),
	}
}

// newRequest builds one authorized JSON request. A fresh body reader is
// made for every attempt.
func (c *Client) newRequest(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	var rdr io.Reader = http.NoBody
	if body != nil {
		rdr = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return nil, fmt.Errorf("youtube: creating request: %w", err)
	}

	if err := c.authorize(req); err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", jsonContentType)
	}

	return req, nil
}

// authorize sets the bearer token and user agent on req.
func (c *Client) authorize(req *http.Request) error {
	if c.token == nil {
		return ErrMissingToken
	}

	tok, err := c.token.Token()
	if err != nil {
		return fmt.Errorf("obtaining token: %w", err)
	}

	if tok == "" {
		return ErrMissingToken
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", c.userAgent)

	return nil
}

// retryBackoff honors Retry-After on 429, else falls back to calcBackoff.
func (c *Client) retryBackoff(resp *http.Response, attempt int) time.Duration {
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}

	return c.calcBackoff(attempt)
}

// calcBackoff is exponential backoff capped at maxBackoff, with jitter.
func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

// timeSleep waits for the given duration or until the context is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
