// Package spider is the crawl orchestrator. It pulls requests from the
// frontier, gates them through budget and robots checks, delegates the
// fetch, and feeds results back into the frontier, the relevance scorer,
// and the stop engines until the crawl ends.
package spider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/jonesrussell/gospider/internal/adaptivestop"
	"github.com/jonesrussell/gospider/internal/budget"
	"github.com/jonesrussell/gospider/internal/config"
	"github.com/jonesrussell/gospider/internal/extractor"
	"github.com/jonesrussell/gospider/internal/fetcher"
	"github.com/jonesrussell/gospider/internal/frontier"
	"github.com/jonesrussell/gospider/internal/logger"
	"github.com/jonesrussell/gospider/internal/queryaware"
	"github.com/jonesrussell/gospider/internal/robots"
	"github.com/jonesrussell/gospider/internal/session"
	"github.com/jonesrussell/gospider/internal/sitemap"
	"github.com/jonesrussell/gospider/internal/strategy"
	"github.com/jonesrussell/gospider/internal/urlutil"
)

// Stop reasons reported in Result.StopReason.
const (
	StopReasonExhausted = "Frontier exhausted"
	StopReasonRequested = "Stop requested"
)

// frontierBackoff is the sleep before retrying a frontier that reported
// empty while its size was still positive.
const frontierBackoff = 100 * time.Millisecond

// slowdownBaseDelay is the per-iteration delay scaled up when adaptive
// budget enforcement signals slowdown.
const slowdownBaseDelay = 100 * time.Millisecond

var (
	// ErrCrawlActive is returned when Crawl is invoked while a run is
	// already in progress.
	ErrCrawlActive = errors.New("spider: crawl already active")
	// ErrNoSeeds is returned when Crawl is invoked without seed URLs.
	ErrNoSeeds = errors.New("spider: no seed urls")
)

// Fetcher retrieves pages. Satisfied by fetcher.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Page, error)
}

// RobotsPolicy gates requests on robots.txt rules and politeness delays.
// Satisfied by robots.Manager.
type RobotsPolicy interface {
	CanCrawlWithWait(ctx context.Context, url string) (bool, error)
}

// SitemapDiscoverer finds additional seed URLs. Satisfied by
// sitemap.Discoverer.
type SitemapDiscoverer interface {
	Discover(ctx context.Context, seed string) ([]string, error)
}

// Spider coordinates one crawl at a time over its component stack.
type Spider struct {
	cfg *config.Config
	log logger.Interface

	frontier   *frontier.Frontier
	budget     *budget.Manager
	strategy   *strategy.Engine
	scorer     *queryaware.Scorer // nil when query foraging is disabled
	stopEngine *adaptivestop.Engine
	validator  *urlutil.Validator
	sessions   *session.Manager

	fetch    Fetcher
	robots   RobotsPolicy
	sitemaps SitemapDiscoverer

	globalSem *semaphore.Weighted
	hostMu    sync.RWMutex
	hostSems  map[string]*semaphore.Weighted

	stateMu sync.RWMutex
	state   CrawlState

	perfMu sync.RWMutex
	perf   PerformanceMetrics

	totalProcessing atomic.Int64 // nanoseconds across processed requests
	stopRequested   atomic.Bool
}

// New creates a spider from a validated configuration. Construction fails
// fast on any configuration error.
func New(cfg *config.Config, log logger.Interface) (*Spider, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	log = log.WithComponent("spider")

	front, err := frontier.New(cfg.Frontier, log)
	if err != nil {
		return nil, fmt.Errorf("spider: frontier: %w", err)
	}

	budgetMgr, err := budget.NewManager(cfg.Budget, log)
	if err != nil {
		return nil, fmt.Errorf("spider: budget: %w", err)
	}

	stopEngine, err := adaptivestop.NewEngine(cfg.AdaptiveStop, log)
	if err != nil {
		return nil, fmt.Errorf("spider: adaptive stop: %w", err)
	}

	kind, err := strategy.ParseKind(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	var scorer *queryaware.Scorer
	if cfg.QueryAware.Enabled {
		scorer, err = queryaware.NewScorer(cfg.QueryAware)
		if err != nil {
			return nil, fmt.Errorf("spider: query-aware scorer: %w", err)
		}
	}

	sessions := session.NewManager(cfg.Session)

	var provider fetcher.ClientProvider
	if cfg.Session.Enabled {
		provider = sessions
	}

	return &Spider{
		cfg:        cfg,
		log:        log,
		frontier:   front,
		budget:     budgetMgr,
		strategy:   strategy.New(kind, log),
		scorer:     scorer,
		stopEngine: stopEngine,
		validator:  &urlutil.Validator{},
		sessions:   sessions,
		fetch:      fetcher.New(cfg.Fetcher, provider),
		robots:     robots.NewManager(cfg.Robots, nil),
		sitemaps:   sitemap.NewDiscoverer(cfg.Sitemap, nil),
		globalSem:  semaphore.NewWeighted(int64(cfg.Performance.MaxConcurrentGlobal)),
		hostSems:   make(map[string]*semaphore.Weighted),
	}, nil
}

// WithFetcher replaces the fetch collaborator. Intended for tests and
// embedding into larger pipelines.
func (s *Spider) WithFetcher(f Fetcher) *Spider {
	s.fetch = f
	return s
}

// WithRobots replaces the robots collaborator.
func (s *Spider) WithRobots(r RobotsPolicy) *Spider {
	s.robots = r
	return s
}

// WithSitemaps replaces the sitemap collaborator.
func (s *Spider) WithSitemaps(d SitemapDiscoverer) *Spider {
	s.sitemaps = d
	return s
}

// Crawl runs the crawl loop from the seed URLs until the frontier drains
// or a stop condition fires. Only one run may be active at a time; a new
// call reinitializes all per-run state.
func (s *Spider) Crawl(ctx context.Context, seeds []string) (*Result, error) {
	if len(seeds) == 0 {
		return nil, ErrNoSeeds
	}

	s.stateMu.Lock()
	if s.state.Active {
		s.stateMu.Unlock()
		return nil, ErrCrawlActive
	}
	s.state = CrawlState{
		Active:        true,
		StartTime:     time.Now(),
		ActiveDomains: make(map[string]struct{}),
	}
	s.stateMu.Unlock()

	s.resetRunState()

	crawlID := uuid.New()
	log := s.log.WithCrawlID(crawlID.String())
	log.Info("starting crawl", "seeds", len(seeds), "strategy", s.cfg.Strategy)

	s.seedFrontier(ctx, seeds, log)

	result := s.crawlLoop(ctx, log)
	result.CrawlID = crawlID

	s.stateMu.Lock()
	s.state.Active = false
	s.stateMu.Unlock()

	log.Info("crawl completed",
		"pages_crawled", result.PagesCrawled,
		"pages_failed", result.PagesFailed,
		"stop_reason", result.StopReason,
		"duration", result.Duration,
	)

	return result, nil
}

// Stop requests cooperative termination. The loop observes the flag at
// the next iteration boundary; in-flight fetches are not aborted.
func (s *Spider) Stop() {
	s.stopRequested.Store(true)
	s.log.Info("crawl stop requested")
}

// State returns a snapshot of the current crawl state.
func (s *Spider) State() CrawlState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	snapshot := s.state
	snapshot.ActiveDomains = make(map[string]struct{}, len(s.state.ActiveDomains))
	for d := range s.state.ActiveDomains {
		snapshot.ActiveDomains[d] = struct{}{}
	}
	return snapshot
}

// Performance returns the latest throughput metrics.
func (s *Spider) Performance() PerformanceMetrics {
	s.perfMu.RLock()
	defer s.perfMu.RUnlock()
	return s.perf
}

// Frontier exposes the frontier for inspection.
func (s *Spider) Frontier() *frontier.Frontier {
	return s.frontier
}

// resetRunState clears all per-run accumulators so consecutive Crawl
// calls start fresh.
func (s *Spider) resetRunState() {
	s.stopRequested.Store(false)
	s.totalProcessing.Store(0)
	s.frontier.Clear()
	s.budget.Reset()
	s.stopEngine.Reset()
	s.strategy.Reset()
	if s.scorer != nil {
		s.scorer.Reset()
	}

	s.perfMu.Lock()
	s.perf = PerformanceMetrics{}
	s.perfMu.Unlock()
}

// seedFrontier enqueues the seeds at high priority plus any sitemap
// discoveries at medium priority.
func (s *Spider) seedFrontier(ctx context.Context, seeds []string, log logger.Interface) {
	for _, seed := range seeds {
		if host, err := urlutil.ExtractHost(seed); err == nil {
			s.recordDomain(host)
		}

		req := frontier.NewCrawlRequest(seed).WithPriority(frontier.PriorityHigh)
		if err := s.frontier.Add(req); err != nil {
			log.Warn("seed rejected", "url", seed, "error", err.Error())
		}

		discovered, err := s.sitemaps.Discover(ctx, seed)
		if err != nil {
			log.Warn("sitemap discovery failed", "seed", seed, "error", err.Error())
			continue
		}
		for _, u := range discovered {
			child := frontier.NewCrawlRequest(u).WithParent(seed)
			if addErr := s.frontier.Add(child); addErr != nil {
				break
			}
		}
		if len(discovered) > 0 {
			log.Info("sitemap urls discovered", "seed", seed, "count", len(discovered))
		}
	}
}

// crawlLoop is the per-iteration engine described by the orchestration
// contract: stop checks, dequeue, gating, fetch, feedback.
func (s *Spider) crawlLoop(ctx context.Context, log logger.Interface) *Result {
	start := time.Now()
	var pagesCrawled, pagesFailed uint64
	lastMetrics := time.Now()

	for {
		if reason, stop := s.shouldStopCrawling(ctx); stop {
			return s.buildResult(pagesCrawled, pagesFailed, time.Since(start), reason)
		}

		req := s.frontier.Next()
		if req == nil {
			if s.frontier.Size() == 0 {
				return s.buildResult(pagesCrawled, pagesFailed, time.Since(start), StopReasonExhausted)
			}
			// Racing with concurrent producers; back off briefly.
			if !sleepCtx(ctx, frontierBackoff) {
				return s.buildResult(pagesCrawled, pagesFailed, time.Since(start), StopReasonRequested)
			}
			continue
		}

		result := s.processRequest(ctx, req)

		if result.Success {
			pagesCrawled++
			s.enqueueChildren(result)

			if s.scorer != nil {
				s.scorer.UpdateWithResult(result)
			}
			s.stopEngine.AnalyzeResult(result)
			s.strategy.RecordResult(true)

			if host, err := urlutil.ExtractHost(result.Request.URL); err == nil {
				s.recordDomain(host)
			}
		} else {
			pagesFailed++
			s.strategy.RecordResult(false)
			log.Debug("request failed", "url", result.Request.URL, "error", result.Error)
		}

		s.totalProcessing.Add(int64(result.ProcessingTime))

		if slow, factor := s.budget.ShouldSlowDown(); slow && factor > 0 {
			delay := time.Duration(float64(slowdownBaseDelay) / factor)
			if !sleepCtx(ctx, delay) {
				return s.buildResult(pagesCrawled, pagesFailed, time.Since(start), StopReasonRequested)
			}
		}

		if time.Since(lastMetrics) >= s.cfg.Performance.MetricsInterval {
			s.updatePerformance(pagesCrawled, pagesFailed, time.Since(start))
			lastMetrics = time.Now()
		}

		s.stateMu.Lock()
		s.state.PagesCrawled = pagesCrawled
		s.state.PagesFailed = pagesFailed
		s.state.FrontierSize = s.frontier.Size()
		s.stateMu.Unlock()
	}
}

// shouldStopCrawling consults the cooperative stop flag, the context, the
// query-aware scorer, and the adaptive stop engine. Any of them can end
// the run.
func (s *Spider) shouldStopCrawling(ctx context.Context) (string, bool) {
	if s.stopRequested.Load() || ctx.Err() != nil {
		return StopReasonRequested, true
	}

	if s.scorer != nil {
		if stop, reason := s.scorer.ShouldStopEarly(); stop {
			return reason, true
		}
	}

	decision := s.stopEngine.ShouldStop()

	s.stateMu.Lock()
	s.state.LastStopDecision = &decision
	s.stateMu.Unlock()

	if decision.ShouldStop {
		return decision.Reason, true
	}

	return "", false
}

// processRequest runs one request through budget gating, concurrency
// permits, robots compliance, and the fetch, producing a result either
// way. Budget reservations and permits are released on every exit path.
func (s *Spider) processRequest(ctx context.Context, req *frontier.CrawlRequest) *frontier.CrawlResult {
	start := time.Now()

	ok, err := s.budget.CanMakeRequest(req.URL, req.Depth)
	if err != nil || !ok {
		return failedResult(req, "budget constraints violated", start)
	}

	if acquireErr := s.globalSem.Acquire(ctx, 1); acquireErr != nil {
		return failedResult(req, "global concurrency permit unavailable", start)
	}
	defer s.globalSem.Release(1)

	host, err := urlutil.ExtractHost(req.URL)
	if err != nil {
		return failedResult(req, "invalid url", start)
	}

	hostSem := s.hostSemaphore(host)
	if acquireErr := hostSem.Acquire(ctx, 1); acquireErr != nil {
		return failedResult(req, "host concurrency permit unavailable", start)
	}
	defer hostSem.Release(1)

	if startErr := s.budget.StartRequest(req.URL, req.Depth); startErr != nil {
		return failedResult(req, startErr.Error(), start)
	}

	allowed, robotsErr := s.robots.CanCrawlWithWait(ctx, req.URL)
	if robotsErr != nil || !allowed {
		s.budget.CompleteRequest(req.URL, 0, false)
		return failedResult(req, "blocked by robots.txt", start)
	}

	page, fetchErr := s.fetch.Fetch(ctx, req.URL)
	if fetchErr != nil {
		s.budget.CompleteRequest(req.URL, 0, false)
		return failedResult(req, fetchErr.Error(), start)
	}

	links, extractErr := extractor.ExtractURLs(page.Body, req.URL)
	if extractErr != nil {
		links = nil
	}

	result := frontier.NewCrawlResult(req)
	result.ExtractedURLs = s.validator.FilterURLs(links)
	result.TextContent = extractor.ExtractText(page.Body)
	result.ContentSize = int64(len(page.Body))
	result.ProcessingTime = time.Since(start)

	s.budget.CompleteRequest(req.URL, result.ContentSize, true)

	return result
}

// enqueueChildren admits extracted URLs as depth+1 requests with blended
// priorities. Duplicates are silently absorbed by the frontier.
func (s *Spider) enqueueChildren(result *frontier.CrawlResult) {
	for _, u := range result.ExtractedURLs {
		child := frontier.NewCrawlRequest(u).
			WithDepth(result.Request.Depth + 1).
			WithParent(result.Request.URL)

		if !s.admissible(child) {
			continue
		}

		priority := s.strategy.PriorityFor(child)
		if s.scorer != nil {
			relevance := s.scorer.ScoreRequest(child, result.TextContent)
			priority = queryaware.BlendPriority(priority, relevance)
		}

		if err := s.frontier.Add(child.WithPriority(priority)); err != nil {
			// Frontier full; remaining children would be rejected too.
			return
		}
	}
}

// admissible checks URL validity and budget headroom for a child request.
func (s *Spider) admissible(req *frontier.CrawlRequest) bool {
	if !s.validator.IsValidForCrawling(req.URL) {
		return false
	}

	ok, err := s.budget.CanMakeRequest(req.URL, req.Depth)
	return err == nil && ok
}

// hostSemaphore returns the host's permit pool, creating it lazily with
// double-checked locking.
func (s *Spider) hostSemaphore(host string) *semaphore.Weighted {
	s.hostMu.RLock()
	sem, ok := s.hostSems[host]
	s.hostMu.RUnlock()
	if ok {
		return sem
	}

	s.hostMu.Lock()
	defer s.hostMu.Unlock()

	if sem, ok = s.hostSems[host]; ok {
		return sem
	}

	sem = semaphore.NewWeighted(int64(s.cfg.Performance.MaxConcurrentPerHost))
	s.hostSems[host] = sem
	return sem
}

// buildResult assembles the final crawl result.
func (s *Spider) buildResult(pagesCrawled, pagesFailed uint64, duration time.Duration, reason string) *Result {
	s.updatePerformance(pagesCrawled, pagesFailed, duration)

	s.stateMu.RLock()
	domains := make([]string, 0, len(s.state.ActiveDomains))
	for d := range s.state.ActiveDomains {
		domains = append(domains, d)
	}
	s.stateMu.RUnlock()
	sort.Strings(domains)

	return &Result{
		PagesCrawled: pagesCrawled,
		PagesFailed:  pagesFailed,
		Duration:     duration,
		StopReason:   reason,
		Performance:  s.Performance(),
		Domains:      domains,
	}
}

// updatePerformance refreshes pages/sec, error rate, and mean response
// time.
func (s *Spider) updatePerformance(pagesCrawled, pagesFailed uint64, elapsed time.Duration) {
	s.perfMu.Lock()
	defer s.perfMu.Unlock()

	if elapsed > 0 {
		s.perf.PagesPerSecond = float64(pagesCrawled) / elapsed.Seconds()
	}

	total := pagesCrawled + pagesFailed
	if total > 0 {
		s.perf.ErrorRate = float64(pagesFailed) / float64(total)
		s.perf.AvgResponseTime = time.Duration(s.totalProcessing.Load() / int64(total))
	}
	s.perf.LastUpdate = time.Now()
}

func (s *Spider) recordDomain(host string) {
	s.stateMu.Lock()
	s.state.ActiveDomains[host] = struct{}{}
	s.stateMu.Unlock()
}

func failedResult(req *frontier.CrawlRequest, reason string, start time.Time) *frontier.CrawlResult {
	result := frontier.NewFailedResult(req, reason)
	result.ProcessingTime = time.Since(start)
	return result
}

// sleepCtx sleeps for d or returns false if the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
