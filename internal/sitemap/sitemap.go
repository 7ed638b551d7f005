// Package sitemap discovers seed URLs from a site's sitemaps. Sitemap
// locations come from robots.txt Sitemap directives plus the well-known
// /sitemap.xml path; both urlset and sitemapindex documents are handled.
package sitemap

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultMaxURLs      = 1000
	DefaultMaxSitemaps  = 10
	DefaultFetchTimeout = 15 * time.Second
)

// maxSitemapBodyBytes limits the size of sitemap responses we will read.
const maxSitemapBodyBytes = 10 * 1024 * 1024 // 10 MB

// Config holds sitemap discovery configuration.
type Config struct {
	// Enabled turns sitemap seeding on.
	Enabled bool `mapstructure:"enabled"`
	// MaxURLs caps the number of URLs returned per seed.
	MaxURLs int `mapstructure:"max_urls"`
	// MaxSitemaps caps how many sitemap documents are fetched per seed.
	MaxSitemaps int `mapstructure:"max_sitemaps"`
	// UserAgent is sent with sitemap requests.
	UserAgent string `mapstructure:"user_agent"`
}

// WithDefaults returns a copy of the config with defaults applied for
// zero-value fields.
func (c Config) WithDefaults() Config {
	if c.MaxURLs <= 0 {
		c.MaxURLs = DefaultMaxURLs
	}
	if c.MaxSitemaps <= 0 {
		c.MaxSitemaps = DefaultMaxSitemaps
	}
	if c.UserAgent == "" {
		c.UserAgent = "gospider/1.0"
	}
	return c
}

// urlSet is the <urlset> sitemap document.
type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

// sitemapIndex is the <sitemapindex> document referencing child sitemaps.
type sitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []sitemapRef `xml:"sitemap"`
}

type sitemapRef struct {
	Loc string `xml:"loc"`
}

// Discoverer finds crawlable URLs through a site's sitemaps.
type Discoverer struct {
	cfg        Config
	httpClient *http.Client
}

// NewDiscoverer creates a sitemap discoverer. A nil client gets a default
// one with a short timeout.
func NewDiscoverer(cfg Config, httpClient *http.Client) *Discoverer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultFetchTimeout}
	}

	return &Discoverer{
		cfg:        cfg.WithDefaults(),
		httpClient: httpClient,
	}
}

// Discover returns URLs found in the seed host's sitemaps, capped at
// MaxURLs. A seed without sitemaps yields an empty slice, not an error.
func (d *Discoverer) Discover(ctx context.Context, seedURL string) ([]string, error) {
	if !d.cfg.Enabled {
		return nil, nil
	}

	parsed, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("sitemap: parse seed url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("sitemap: seed url %q has no host", seedURL)
	}

	origin := parsed.Scheme + "://" + parsed.Host

	locations := d.locationsFromRobots(ctx, origin)
	locations = append(locations, origin+"/sitemap.xml")

	var (
		urls    []string
		seen    = make(map[string]struct{})
		fetched = 0
	)

	queue := dedupe(locations)
	for len(queue) > 0 && fetched < d.cfg.MaxSitemaps && len(urls) < d.cfg.MaxURLs {
		loc := queue[0]
		queue = queue[1:]
		fetched++

		body, err := d.fetch(ctx, loc)
		if err != nil {
			continue
		}

		pageURLs, childSitemaps := parseSitemap(body)
		queue = append(queue, childSitemaps...)

		for _, u := range pageURLs {
			if len(urls) >= d.cfg.MaxURLs {
				break
			}
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}

	return urls, nil
}

// locationsFromRobots extracts Sitemap directives from the origin's
// robots.txt. Failures yield no locations.
func (d *Discoverer) locationsFromRobots(ctx context.Context, origin string) []string {
	body, err := d.fetch(ctx, origin+"/robots.txt")
	if err != nil {
		return nil
	}

	var locations []string

	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if rest, ok := strings.CutPrefix(strings.ToLower(line), "sitemap:"); ok {
			// Re-slice the original line to keep URL casing.
			loc := strings.TrimSpace(line[len(line)-len(rest):])
			if loc != "" {
				locations = append(locations, loc)
			}
		}
	}

	return locations
}

// parseSitemap extracts page URLs and child sitemap references from a
// sitemap document. Unparsable bodies yield nothing.
func parseSitemap(body []byte) (pageURLs, childSitemaps []string) {
	var set urlSet
	if err := xml.Unmarshal(body, &set); err == nil && len(set.URLs) > 0 {
		for _, entry := range set.URLs {
			if loc := strings.TrimSpace(entry.Loc); loc != "" {
				pageURLs = append(pageURLs, loc)
			}
		}
		return pageURLs, nil
	}

	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err == nil {
		for _, ref := range index.Sitemaps {
			if loc := strings.TrimSpace(ref.Loc); loc != "" {
				childSitemaps = append(childSitemaps, loc)
			}
		}
	}

	return nil, childSitemaps
}

// fetch retrieves a document, returning an error for non-2xx statuses.
func (d *Discoverer) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("sitemap: create request: %w", err)
	}

	req.Header.Set("User-Agent", d.cfg.UserAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sitemap: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("sitemap: http status %d for %s", resp.StatusCode, rawURL)
	}

	limited := io.LimitReader(resp.Body, maxSitemapBodyBytes)

	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("sitemap: read body: %w", err)
	}

	return body, nil
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
