// Package fetcher performs the HTTP retrieval of crawl targets with
// size-limited body reads and a bounded redirect policy.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonesrussell/gospider/internal/urlutil"
)

// Default configuration values.
const (
	DefaultUserAgent    = "gospider/1.0"
	DefaultTimeout      = 30 * time.Second
	DefaultMaxBodyBytes = 10 * 1024 * 1024 // 10 MB
	DefaultMaxRedirects = 10
)

// ErrTooManyRedirects is returned when the redirect hop limit is exceeded.
var ErrTooManyRedirects = errors.New("fetcher: too many redirects")

// Config holds fetcher configuration.
type Config struct {
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	MaxRedirects int           `mapstructure:"max_redirects"`
}

// WithDefaults returns a copy of the config with defaults applied for
// zero-value fields.
func (c Config) WithDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	return c
}

// Page is the outcome of a successful fetch.
type Page struct {
	URL         string
	StatusCode  int
	Body        []byte
	ContentType string
	Duration    time.Duration
}

// ClientProvider supplies the HTTP client used for a host. Session
// management plugs in here to give each host its own cookie jar.
type ClientProvider interface {
	ClientFor(host string) *http.Client
}

// Fetcher retrieves pages over HTTP.
type Fetcher struct {
	cfg      Config
	client   *http.Client
	sessions ClientProvider
}

// New creates a fetcher with its own HTTP client. A non-nil provider
// overrides the shared client on a per-host basis.
func New(cfg Config, sessions ClientProvider) *Fetcher {
	cfg = cfg.WithDefaults()

	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			Timeout:       cfg.Timeout,
			CheckRedirect: redirectPolicy(cfg.MaxRedirects),
		},
		sessions: sessions,
	}
}

// Fetch retrieves the page at rawURL. Non-2xx statuses are returned as
// errors so callers treat them uniformly as failed requests.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()

	resp, err := f.clientFor(rawURL).Do(req)
	if err != nil {
		return nil, fmt.Errorf("http fetch: %w", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, f.cfg.MaxBodyBytes)

	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("http status %d for %s", resp.StatusCode, rawURL)
	}

	return &Page{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		Duration:    time.Since(start),
	}, nil
}

// clientFor picks the session client for the URL's host when sessions are
// enabled, falling back to the shared client.
func (f *Fetcher) clientFor(rawURL string) *http.Client {
	if f.sessions == nil {
		return f.client
	}

	host, err := urlutil.ExtractHost(rawURL)
	if err != nil {
		return f.client
	}

	if client := f.sessions.ClientFor(host); client != nil {
		return client
	}
	return f.client
}

// redirectPolicy follows redirects until maxHops, then fails the request.
func redirectPolicy(maxHops int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if maxHops > 0 && len(via) >= maxHops {
			return ErrTooManyRedirects
		}
		return nil
	}
}
