// Package robots enforces robots.txt rules and per-host politeness
// delays. Rules are fetched lazily and cached per host; Crawl-delay
// directives map onto per-host rate limiters.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	DefaultCacheTTL     = 24 * time.Hour
	DefaultCrawlDelay   = 500 * time.Millisecond
	DefaultFetchTimeout = 10 * time.Second
)

// robotsTxtPath is the well-known path for robots.txt files.
const robotsTxtPath = "/robots.txt"

// maxRobotsBodyBytes limits the size of robots.txt responses we will read.
const maxRobotsBodyBytes = 512 * 1024 // 512 KB

// Config holds robots compliance configuration.
type Config struct {
	// Enabled turns robots.txt checking on. When off every URL is
	// allowed and only the default delay applies.
	Enabled bool `mapstructure:"enabled"`
	// UserAgent is matched against robots.txt groups.
	UserAgent string `mapstructure:"user_agent"`
	// CacheTTL bounds how long parsed rules are reused.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// DefaultDelay is the per-host delay when robots.txt sets none.
	DefaultDelay time.Duration `mapstructure:"default_delay"`
	// FailOpen allows crawling when robots.txt cannot be fetched.
	FailOpen bool `mapstructure:"fail_open"`
}

// WithDefaults returns a copy of the config with defaults applied for
// zero-value fields.
func (c Config) WithDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = "gospider/1.0"
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.DefaultDelay <= 0 {
		c.DefaultDelay = DefaultCrawlDelay
	}
	return c
}

// cacheEntry stores the parsed robots.txt data and metadata for a host.
type cacheEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
	allowAll  bool
}

// Manager checks robots.txt rules and throttles per-host request rates.
type Manager struct {
	cfg        Config
	httpClient *http.Client

	mu       sync.RWMutex
	cache    map[string]*cacheEntry   // keyed by host
	limiters map[string]*rate.Limiter // keyed by host
}

// NewManager creates a robots manager. A nil client gets a default one
// with a short timeout.
func NewManager(cfg Config, httpClient *http.Client) *Manager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultFetchTimeout}
	}

	return &Manager{
		cfg:        cfg.WithDefaults(),
		httpClient: httpClient,
		cache:      make(map[string]*cacheEntry),
		limiters:   make(map[string]*rate.Limiter),
	}
}

// CanCrawl reports whether the URL is allowed by its host's robots.txt.
// With checking disabled every URL is allowed.
func (m *Manager) CanCrawl(ctx context.Context, rawURL string) (bool, error) {
	if !m.cfg.Enabled {
		return true, nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("robots: parse url: %w", err)
	}

	host := strings.ToLower(parsed.Host)
	if host == "" {
		return false, fmt.Errorf("robots: empty host in url %q", rawURL)
	}

	entry, err := m.getOrFetchEntry(ctx, host, parsed.Scheme)
	if err != nil {
		return m.cfg.FailOpen, nil
	}

	if entry.allowAll {
		return true, nil
	}

	return entry.data.TestAgent(parsed.Path, m.cfg.UserAgent), nil
}

// CanCrawlWithWait combines the robots check with the per-host politeness
// delay. It blocks until the host's rate limiter admits the request or
// the context is cancelled.
func (m *Manager) CanCrawlWithWait(ctx context.Context, rawURL string) (bool, error) {
	allowed, err := m.CanCrawl(ctx, rawURL)
	if err != nil || !allowed {
		return allowed, err
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("robots: parse url: %w", err)
	}
	host := strings.ToLower(parsed.Host)

	if waitErr := m.limiterFor(host).Wait(ctx); waitErr != nil {
		return false, fmt.Errorf("robots: rate wait: %w", waitErr)
	}

	return true, nil
}

// CrawlDelay returns the effective delay for the host: the robots.txt
// Crawl-delay when present, otherwise the configured default.
func (m *Manager) CrawlDelay(host string) time.Duration {
	m.mu.RLock()
	entry, ok := m.cache[strings.ToLower(host)]
	m.mu.RUnlock()

	if ok && !entry.allowAll && entry.data != nil {
		if group := entry.data.FindGroup(m.cfg.UserAgent); group != nil && group.CrawlDelay > 0 {
			return group.CrawlDelay
		}
	}

	return m.cfg.DefaultDelay
}

// limiterFor returns the host's rate limiter, creating it from the
// effective crawl delay on first use.
func (m *Manager) limiterFor(host string) *rate.Limiter {
	m.mu.RLock()
	limiter, ok := m.limiters[host]
	m.mu.RUnlock()
	if ok {
		return limiter
	}

	delay := m.CrawlDelay(host)

	m.mu.Lock()
	defer m.mu.Unlock()

	if limiter, ok = m.limiters[host]; ok {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Every(delay), 1)
	m.limiters[host] = limiter
	return limiter
}

// getOrFetchEntry returns a cached entry if fresh, otherwise fetches
// robots.txt for the host.
func (m *Manager) getOrFetchEntry(ctx context.Context, host, scheme string) (*cacheEntry, error) {
	m.mu.RLock()
	entry, ok := m.cache[host]
	m.mu.RUnlock()

	if ok && time.Since(entry.fetchedAt) <= m.cfg.CacheTTL {
		return entry, nil
	}

	return m.fetchAndCache(ctx, host, scheme)
}

// fetchAndCache fetches robots.txt for the host and caches the result.
// Fetch failures cache an allow-all entry when failing open.
func (m *Manager) fetchAndCache(ctx context.Context, host, scheme string) (*cacheEntry, error) {
	if scheme == "" {
		scheme = "https"
	}

	robotsURL := scheme + "://" + host + robotsTxtPath

	body, statusCode, err := m.doFetch(ctx, robotsURL)
	if err != nil {
		if m.cfg.FailOpen {
			return m.storeEntry(host, &cacheEntry{fetchedAt: time.Now(), allowAll: true}), nil
		}
		return nil, err
	}

	entry := parseEntry(body, statusCode)
	return m.storeEntry(host, entry), nil
}

func (m *Manager) storeEntry(host string, entry *cacheEntry) *cacheEntry {
	m.mu.Lock()
	m.cache[host] = entry
	m.mu.Unlock()
	return entry
}

// doFetch performs the HTTP GET request for a robots.txt URL.
func (m *Manager) doFetch(ctx context.Context, robotsURL string) (body []byte, statusCode int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("robots: create request: %w", err)
	}

	req.Header.Set("User-Agent", m.cfg.UserAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("robots: fetch: %w", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxRobotsBodyBytes)

	body, readErr := io.ReadAll(limited)
	if readErr != nil {
		return nil, resp.StatusCode, fmt.Errorf("robots: read body: %w", readErr)
	}

	return body, resp.StatusCode, nil
}

// parseEntry parses a robots.txt response. Only 2xx responses are parsed;
// all others become allow-all entries.
func parseEntry(body []byte, statusCode int) *cacheEntry {
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return &cacheEntry{fetchedAt: time.Now(), allowAll: true}
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return &cacheEntry{fetchedAt: time.Now(), allowAll: true}
	}

	return &cacheEntry{data: data, fetchedAt: time.Now()}
}
