package spider

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/gospider/internal/adaptivestop"
)

// CrawlState is the live state of a crawl run, read by monitoring and
// written by the orchestrator loop.
type CrawlState struct {
	// Active reports whether a crawl loop is running.
	Active bool
	// StartTime is when the current run began.
	StartTime time.Time
	// PagesCrawled counts successfully processed pages.
	PagesCrawled uint64
	// PagesFailed counts failed or skipped requests.
	PagesFailed uint64
	// FrontierSize is the pending request count at the last update.
	FrontierSize int
	// ActiveDomains is the set of hosts touched by the run.
	ActiveDomains map[string]struct{}
	// LastStopDecision is the most recent adaptive stop verdict.
	LastStopDecision *adaptivestop.StopDecision
}

// PerformanceMetrics summarizes crawl throughput.
type PerformanceMetrics struct {
	// PagesPerSecond is the successful page rate over the run.
	PagesPerSecond float64
	// AvgResponseTime is the mean per-request processing time.
	AvgResponseTime time.Duration
	// ErrorRate is failed requests over all processed requests.
	ErrorRate float64
	// LastUpdate is when the metrics were last refreshed.
	LastUpdate time.Time
}

// Result is the outcome of one crawl run.
type Result struct {
	// CrawlID identifies the run.
	CrawlID uuid.UUID
	// PagesCrawled counts successfully processed pages.
	PagesCrawled uint64
	// PagesFailed counts failed or skipped requests.
	PagesFailed uint64
	// Duration is the wall time of the run.
	Duration time.Duration
	// StopReason describes why the run ended.
	StopReason string
	// Performance holds the final throughput metrics.
	Performance PerformanceMetrics
	// Domains lists the hosts touched by the run, sorted.
	Domains []string
}
