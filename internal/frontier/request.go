// Package frontier provides the priority-ordered, deduplicated queue of
// pending crawl requests.
package frontier

import (
	"time"
)

// Priority orders crawl requests in the frontier. Critical requests are
// dequeued before High, High before Medium, Medium before Low.
type Priority int

const (
	// PriorityLow is the lowest scheduling priority.
	PriorityLow Priority = iota + 1
	// PriorityMedium is the default scheduling priority.
	PriorityMedium
	// PriorityHigh is an elevated scheduling priority.
	PriorityHigh
	// PriorityCritical is the highest scheduling priority.
	PriorityCritical
)

// String returns the string representation of a priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Score returns the numeric value used for relevance blending.
func (p Priority) Score() float64 {
	return float64(p)
}

// CrawlRequest is a single pending fetch. Requests are immutable once
// created; the With* methods derive new requests rather than mutating.
type CrawlRequest struct {
	// URL is the address to fetch.
	URL string
	// Depth is the link distance from the seed that discovered this URL.
	Depth int
	// Priority determines dequeue order.
	Priority Priority
	// ParentURL is the page this URL was extracted from, empty for seeds.
	ParentURL string
	// DiscoveredAt is when the request was created.
	DiscoveredAt time.Time
}

// NewCrawlRequest creates a seed-level request with medium priority.
func NewCrawlRequest(url string) *CrawlRequest {
	return &CrawlRequest{
		URL:          url,
		Depth:        0,
		Priority:     PriorityMedium,
		DiscoveredAt: time.Now(),
	}
}

// WithPriority derives a copy of the request with the given priority.
func (r *CrawlRequest) WithPriority(p Priority) *CrawlRequest {
	derived := *r
	derived.Priority = p
	return &derived
}

// WithDepth derives a copy of the request with the given depth.
func (r *CrawlRequest) WithDepth(depth int) *CrawlRequest {
	derived := *r
	derived.Depth = depth
	return &derived
}

// WithParent derives a copy of the request with the given parent URL.
func (r *CrawlRequest) WithParent(parentURL string) *CrawlRequest {
	derived := *r
	derived.ParentURL = parentURL
	return &derived
}
