package spider_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gospider/internal/config"
	"github.com/jonesrussell/gospider/internal/fetcher"
	"github.com/jonesrussell/gospider/internal/spider"
)

const seedURL = "https://example.com/"

// seedPage links to two new pages plus the seed itself; the duplicate must
// be absorbed by frontier dedup.
const seedPage = `<html><body>
<a href="/page-a">A</a>
<a href="/page-b">B</a>
<a href="/">Home</a>
</body></html>`

const leafPage = `<html><body><p>No links here.</p></body></html>`

// stubFetcher serves canned pages and reports each fetch through onFetch.
type stubFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	fetched []string
	onFetch func(url string)
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (*fetcher.Page, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()

	if f.onFetch != nil {
		f.onFetch(url)
	}

	body, ok := f.pages[url]
	if !ok {
		return nil, errors.New("connection refused")
	}

	return &fetcher.Page{
		URL:         url,
		StatusCode:  200,
		Body:        []byte(body),
		ContentType: "text/html; charset=utf-8",
	}, nil
}

type stubRobots struct {
	allow bool
}

func (r *stubRobots) CanCrawlWithWait(context.Context, string) (bool, error) {
	return r.allow, nil
}

type stubSitemaps struct {
	urls []string
}

func (s *stubSitemaps) Discover(context.Context, string) ([]string, error) {
	return s.urls, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Robots.Enabled = false
	cfg.Sitemap.Enabled = false
	return cfg
}

func newSpider(t *testing.T, cfg *config.Config, fetch spider.Fetcher) *spider.Spider {
	t.Helper()

	s, err := spider.New(cfg, nil)
	require.NoError(t, err)

	s.WithFetcher(fetch).
		WithRobots(&stubRobots{allow: true}).
		WithSitemaps(&stubSitemaps{})

	return s
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy = "random_walk"

	_, err := spider.New(cfg, nil)
	assert.Error(t, err)
}

func TestCrawl_RequiresSeeds(t *testing.T) {
	s := newSpider(t, testConfig(), &stubFetcher{})

	_, err := s.Crawl(context.Background(), nil)
	assert.ErrorIs(t, err, spider.ErrNoSeeds)
}

// One iteration over the seed: three extracted links, two unique plus a
// duplicate of the seed, must leave exactly two depth-1 requests queued.
func TestCrawl_SingleIterationSeedsFrontier(t *testing.T) {
	fetch := &stubFetcher{pages: map[string]string{seedURL: seedPage}}
	s := newSpider(t, testConfig(), fetch)

	// Stop after the first page so the children stay queued.
	fetch.onFetch = func(string) { s.Stop() }

	result, err := s.Crawl(context.Background(), []string{seedURL})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), result.PagesCrawled)
	assert.Equal(t, uint64(0), result.PagesFailed)
	assert.Equal(t, spider.StopReasonRequested, result.StopReason)

	front := s.Frontier()
	require.Equal(t, 2, front.Size())

	var urls []string
	for _i := 0; _i < 2; _i++ {
		req := front.Next()
		require.NotNil(t, req)
		assert.Equal(t, 1, req.Depth)
		assert.Equal(t, seedURL, req.ParentURL)
		urls = append(urls, req.URL)
	}
	assert.ElementsMatch(t, []string{
		"https://example.com/page-a",
		"https://example.com/page-b",
	}, urls)

	assert.Nil(t, front.Next())
}

func TestCrawl_RunsUntilFrontierExhausted(t *testing.T) {
	fetch := &stubFetcher{pages: map[string]string{
		seedURL:                      seedPage,
		"https://example.com/page-a": leafPage,
		"https://example.com/page-b": leafPage,
	}}
	s := newSpider(t, testConfig(), fetch)

	result, err := s.Crawl(context.Background(), []string{seedURL})
	require.NoError(t, err)

	assert.Equal(t, uint64(3), result.PagesCrawled)
	assert.Equal(t, uint64(0), result.PagesFailed)
	assert.Equal(t, spider.StopReasonExhausted, result.StopReason)
	assert.Equal(t, []string{"example.com"}, result.Domains)
	assert.Positive(t, result.Duration)
	assert.NotEqual(t, result.CrawlID.String(), "00000000-0000-0000-0000-000000000000")

	assert.False(t, s.State().Active)
	assert.Equal(t, 0, s.Frontier().Size())
}

func TestCrawl_PageBudgetExcludesChildren(t *testing.T) {
	cfg := testConfig()
	cfg.Budget.MaxPages = 1

	fetch := &stubFetcher{pages: map[string]string{seedURL: seedPage}}
	s := newSpider(t, cfg, fetch)

	result, err := s.Crawl(context.Background(), []string{seedURL})
	require.NoError(t, err)

	// The seed consumes the whole page budget, so its children are never
	// admitted and the frontier drains.
	assert.Equal(t, uint64(1), result.PagesCrawled)
	assert.Equal(t, spider.StopReasonExhausted, result.StopReason)
	assert.Equal(t, 0, s.Frontier().Size())
}

func TestCrawl_DepthBudgetLimitsDescent(t *testing.T) {
	cfg := testConfig()
	cfg.Budget.MaxDepth = 1

	fetch := &stubFetcher{pages: map[string]string{
		seedURL:                           seedPage,
		"https://example.com/page-a":      `<a href="/page-a/deep">deep</a>`,
		"https://example.com/page-b":      `<a href="/page-b/deep">deep</a>`,
		"https://example.com/page-a/deep": leafPage,
		"https://example.com/page-b/deep": leafPage,
	}}
	s := newSpider(t, cfg, fetch)

	result, err := s.Crawl(context.Background(), []string{seedURL})
	require.NoError(t, err)

	// Seed at depth 0 plus two children at depth 1; depth-2 links are
	// rejected at admission.
	assert.Equal(t, uint64(3), result.PagesCrawled)
	assert.Equal(t, spider.StopReasonExhausted, result.StopReason)
}

func TestCrawl_RobotsBlockCountsAsFailure(t *testing.T) {
	fetch := &stubFetcher{pages: map[string]string{seedURL: seedPage}}
	s := newSpider(t, testConfig(), fetch)
	s.WithRobots(&stubRobots{allow: false})

	result, err := s.Crawl(context.Background(), []string{seedURL})
	require.NoError(t, err)

	assert.Equal(t, uint64(0), result.PagesCrawled)
	assert.Equal(t, uint64(1), result.PagesFailed)
	assert.Empty(t, fetch.fetched)
}

func TestCrawl_FetchErrorCountsAsFailure(t *testing.T) {
	s := newSpider(t, testConfig(), &stubFetcher{})

	result, err := s.Crawl(context.Background(), []string{seedURL})
	require.NoError(t, err)

	assert.Equal(t, uint64(0), result.PagesCrawled)
	assert.Equal(t, uint64(1), result.PagesFailed)
	assert.InDelta(t, 1.0, result.Performance.ErrorRate, 1e-9)
}

func TestCrawl_SitemapSeedsAreCrawled(t *testing.T) {
	fetch := &stubFetcher{pages: map[string]string{
		seedURL:                        leafPage,
		"https://example.com/from-map": leafPage,
	}}
	s := newSpider(t, testConfig(), fetch)
	s.WithSitemaps(&stubSitemaps{urls: []string{"https://example.com/from-map"}})

	result, err := s.Crawl(context.Background(), []string{seedURL})
	require.NoError(t, err)

	assert.Equal(t, uint64(2), result.PagesCrawled)
	assert.Contains(t, fetch.fetched, "https://example.com/from-map")
}

func TestCrawl_CancelledContextStops(t *testing.T) {
	fetch := &stubFetcher{pages: map[string]string{seedURL: seedPage}}
	s := newSpider(t, testConfig(), fetch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.Crawl(ctx, []string{seedURL})
	require.NoError(t, err)

	assert.Equal(t, uint64(0), result.PagesCrawled)
	assert.Equal(t, spider.StopReasonRequested, result.StopReason)
}

func TestCrawl_RejectsConcurrentRuns(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	fetch := &stubFetcher{
		pages: map[string]string{seedURL: leafPage},
		onFetch: func(string) {
			once.Do(func() { close(started) })
			<-release
		},
	}
	s := newSpider(t, testConfig(), fetch)

	done := make(chan error, 1)
	go func() {
		_, err := s.Crawl(context.Background(), []string{seedURL})
		done <- err
	}()

	<-started
	_, err := s.Crawl(context.Background(), []string{seedURL})
	assert.ErrorIs(t, err, spider.ErrCrawlActive)

	close(release)
	require.NoError(t, <-done)
}

func TestCrawl_ConsecutiveRunsStartFresh(t *testing.T) {
	fetch := &stubFetcher{pages: map[string]string{seedURL: leafPage}}
	s := newSpider(t, testConfig(), fetch)

	first, err := s.Crawl(context.Background(), []string{seedURL})
	require.NoError(t, err)
	require.Equal(t, uint64(1), first.PagesCrawled)

	// A second run re-crawls the same seed: dedup state is per run.
	second, err := s.Crawl(context.Background(), []string{seedURL})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), second.PagesCrawled)
	assert.NotEqual(t, first.CrawlID, second.CrawlID)
}
