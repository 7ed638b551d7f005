// Package strategy assigns crawl priorities according to the selected
// traversal strategy and tracks per-strategy success rates.
package strategy

import (
	"fmt"
	"sync"

	"github.com/jonesrussell/gospider/internal/frontier"
	"github.com/jonesrussell/gospider/internal/logger"
)

// Kind identifies a traversal strategy.
type Kind int

const (
	// BreadthFirst explores level by level, favoring shallow pages.
	BreadthFirst Kind = iota
	// DepthFirst follows link chains deeply, favoring deep pages.
	DepthFirst
	// BestFirst starts every request at medium priority and lets
	// relevance blending reorder the frontier.
	BestFirst
)

// String returns the string representation of a strategy kind.
func (k Kind) String() string {
	switch k {
	case BreadthFirst:
		return "breadth_first"
	case DepthFirst:
		return "depth_first"
	case BestFirst:
		return "best_first"
	default:
		return "unknown"
	}
}

// ParseKind converts a configuration string into a strategy kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "breadth_first", "bfs", "":
		return BreadthFirst, nil
	case "depth_first", "dfs":
		return DepthFirst, nil
	case "best_first":
		return BestFirst, nil
	default:
		return BreadthFirst, fmt.Errorf("strategy: unknown strategy %q", s)
	}
}

// bestFirstMinSamples is the number of recorded results required before
// the success rate influences best-first priorities.
const bestFirstMinSamples = 10

// lowSuccessRate is the rate below which best-first demotes deep requests.
const lowSuccessRate = 0.5

// Context is a snapshot of strategy execution state.
type Context struct {
	Strategy        string
	PagesCrawled    uint64
	SuccessfulPages uint64
	SuccessRate     float64
}

// Engine computes request priorities for the active strategy.
type Engine struct {
	mu              sync.Mutex
	kind            Kind
	pagesCrawled    uint64
	successfulPages uint64
	logger          logger.Interface
}

// New creates a strategy engine.
func New(kind Kind, log logger.Interface) *Engine {
	if log == nil {
		log = logger.NewNoOp()
	}

	return &Engine{
		kind:   kind,
		logger: log.WithComponent("strategy"),
	}
}

// Kind returns the active strategy.
func (e *Engine) Kind() Kind {
	return e.kind
}

// PriorityFor assigns a base priority to a request. Query-aware relevance
// blending may adjust it afterwards.
func (e *Engine) PriorityFor(req *frontier.CrawlRequest) frontier.Priority {
	if req == nil {
		return frontier.PriorityLow
	}

	switch e.kind {
	case BreadthFirst:
		switch {
		case req.Depth <= 2:
			return frontier.PriorityHigh
		case req.Depth <= 5:
			return frontier.PriorityMedium
		default:
			return frontier.PriorityLow
		}
	case DepthFirst:
		switch {
		case req.Depth <= 3:
			return frontier.PriorityLow
		case req.Depth <= 7:
			return frontier.PriorityMedium
		default:
			return frontier.PriorityHigh
		}
	case BestFirst:
		// When fetches keep failing, stop sinking effort into deep pages.
		if e.successRateBelow(lowSuccessRate) && req.Depth > 3 {
			return frontier.PriorityLow
		}
		return frontier.PriorityMedium
	default:
		return frontier.PriorityMedium
	}
}

// RecordResult feeds a crawl outcome into the success counters.
func (e *Engine) RecordResult(success bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pagesCrawled++
	if success {
		e.successfulPages++
	}
}

// SuccessRate returns the fraction of successful crawls, or 1.0 before
// any result has been recorded.
func (e *Engine) SuccessRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.successRateLocked()
}

// Context returns a snapshot of strategy state.
func (e *Engine) Context() Context {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Context{
		Strategy:        e.kind.String(),
		PagesCrawled:    e.pagesCrawled,
		SuccessfulPages: e.successfulPages,
		SuccessRate:     e.successRateLocked(),
	}
}

// Reset clears the success counters for reuse across crawl runs.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pagesCrawled = 0
	e.successfulPages = 0
}

func (e *Engine) successRateLocked() float64 {
	if e.pagesCrawled == 0 {
		return 1.0
	}
	return float64(e.successfulPages) / float64(e.pagesCrawled)
}

func (e *Engine) successRateBelow(threshold float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.pagesCrawled >= bestFirstMinSamples && e.successRateLocked() < threshold
}
