package uploadops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tonimelisma/trailertube/internal/youtube"
)

// ErrReauthRequired means the account has no usable token. The user must
// run `trailertube login` again.
var ErrReauthRequired = errors.New("re-authentication required")

// VideoClient is the part of *youtube.Client that uploads and manages videos.
type VideoClient interface {
	InitiateSession(ctx context.Context, m youtube.Metadata, length int64, contentType string) (*youtube.Session, error)
	Transfer(ctx context.Context, uploadURL, contentType string, payload io.Reader,
		total int64, progress youtube.ProgressFunc) (youtube.State, error)
	DeleteVideo(ctx context.Context, videoID string) error
	UpdatePrivacy(ctx context.Context, videoID, privacy string) (string, error)
}

// ClientSource hands out an authenticated client per account.
type ClientSource interface {
	Client(ctx context.Context, account string) (VideoClient, error)
}

// ProviderOptions configures a ClientProvider.
type ProviderOptions struct {
	BaseURL    string
	UserAgent  string
	ChunkSize  int64
	Limiter    *BandwidthLimiter
	HTTPClient youtube.Doer

	Credentials youtube.OAuthCredentials
	TokenPath   func(account string) string
}

// ClientProvider caches one token source per account so concurrent uploads
// of the same account share a single refresh, and builds clients on demand.
type ClientProvider struct {
	opts   ProviderOptions
	logger *slog.Logger

	// TokenSourceFn loads the token of one account. Exported for tests;
	// defaults to youtube.TokenSourceFromPath.
	TokenSourceFn func(ctx context.Context, creds youtube.OAuthCredentials,
		tokenPath string, logger *slog.Logger) (youtube.TokenSource, error)

	mu         sync.Mutex
	tokenCache map[string]youtube.TokenSource
}

// NewClientProvider creates a ClientProvider.
func NewClientProvider(opts ProviderOptions, logger *slog.Logger) *ClientProvider {
	if logger == nil {
		logger = slog.Default()
	}

	if opts.BaseURL == "" {
		opts.BaseURL = youtube.DefaultBaseURL
	}

	return &ClientProvider{
		opts:          opts,
		logger:        logger,
		TokenSourceFn: youtube.TokenSourceFromPath,
		tokenCache:    make(map[string]youtube.TokenSource),
	}
}

// Client returns an authenticated client for account.
func (p *ClientProvider) Client(ctx context.Context, account string) (VideoClient, error) {
	ts, err := p.tokenSource(ctx, account)
	if err != nil {
		if errors.Is(err, youtube.ErrNotLoggedIn) || errors.Is(err, youtube.ErrMissingToken) {
			return nil, fmt.Errorf("account %q: %w (run 'trailertube login'): %w", account, ErrReauthRequired, err)
		}

		return nil, err
	}

	c := youtube.NewClient(p.opts.BaseURL, p.opts.HTTPClient, ts, p.logger, p.opts.UserAgent)

	if p.opts.ChunkSize > 0 {
		if err := c.SetChunkSize(p.opts.ChunkSize); err != nil {
			return nil, err
		}
	}

	if p.opts.Limiter != nil {
		c.SetBodyWrapper(p.opts.Limiter.WrapReader)
	}

	return c, nil
}

func (p *ClientProvider) tokenSource(ctx context.Context, account string) (youtube.TokenSource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ts, ok := p.tokenCache[account]; ok {
		return ts, nil
	}

	path := p.opts.TokenPath(account)
	if path == "" {
		return nil, fmt.Errorf("uploadops: cannot determine token path for account %q", account)
	}

	// Refreshes outlive the first request that triggered the load.
	ts, err := p.TokenSourceFn(context.WithoutCancel(ctx), p.opts.Credentials, path, p.logger)
	if err != nil {
		return nil, err
	}

	p.tokenCache[account] = ts

	return ts, nil
}

// NewUploadHTTPClient returns the transport for upload traffic: a bounded
// connect time and no overall deadline, since one chunk on a slow link can
// take minutes.
func NewUploadHTTPClient(connectTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:errcheck // DefaultTransport is always *http.Transport
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout

	return &http.Client{Transport: transport}
}
