package frontier

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jonesrussell/gospider/internal/logger"
	"github.com/jonesrussell/gospider/internal/urlutil"
)

// DefaultMaxSize bounds the number of queued requests.
const DefaultMaxSize = 100_000

// Common errors returned by the frontier.
var (
	// ErrFrontierFull is returned when the frontier's admission bound is reached.
	ErrFrontierFull = errors.New("frontier is full")
	// ErrInvalidRequest is returned when a request cannot be normalized.
	ErrInvalidRequest = errors.New("invalid crawl request")
)

// Config configures the frontier's admission bounds and dedup tracker.
type Config struct {
	// MaxSize is the maximum number of queued requests. Zero means DefaultMaxSize.
	MaxSize int `mapstructure:"max_size"`
	// DedupCapacity is the expected number of distinct URLs.
	DedupCapacity uint `mapstructure:"dedup_capacity"`
	// DedupFalsePositiveRate is the bloom filter false-positive probability.
	// A false positive drops a genuinely new URL; this is an accepted
	// trade-off of memory-bounded tracking.
	DedupFalsePositiveRate float64 `mapstructure:"dedup_fpp"`
}

// Frontier is the priority queue of pending crawl requests. Requests are
// deduplicated on admission by normalized URL and dequeued strictly by
// priority, FIFO within each priority bucket.
type Frontier struct {
	mu      sync.Mutex
	buckets map[Priority][]*CrawlRequest
	size    int
	maxSize int
	dedup   *urlutil.DedupTracker
	metrics Metrics
	logger  logger.Interface
}

// dequeueOrder scans buckets from highest to lowest priority.
var dequeueOrder = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// New creates a frontier with the given configuration.
func New(cfg Config, log logger.Interface) (*Frontier, error) {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.MaxSize < 0 {
		return nil, fmt.Errorf("frontier: max size must be positive, got %d", cfg.MaxSize)
	}
	if cfg.DedupCapacity == 0 {
		cfg.DedupCapacity = urlutil.DefaultDedupCapacity
	}
	if cfg.DedupFalsePositiveRate == 0 {
		cfg.DedupFalsePositiveRate = urlutil.DefaultDedupFalsePositiveRate
	}

	dedup, err := urlutil.NewDedupTracker(cfg.DedupCapacity, cfg.DedupFalsePositiveRate)
	if err != nil {
		return nil, fmt.Errorf("frontier: %w", err)
	}

	if log == nil {
		log = logger.NewNoOp()
	}

	return &Frontier{
		buckets: make(map[Priority][]*CrawlRequest),
		maxSize: cfg.MaxSize,
		dedup:   dedup,
		logger:  log.WithComponent("frontier"),
	}, nil
}

// Add admits a request to the frontier. Duplicate URLs are dropped silently
// (counted in metrics, nil error). Returns ErrFrontierFull when the
// admission bound is reached and ErrInvalidRequest when the URL cannot be
// normalized.
func (f *Frontier) Add(req *CrawlRequest) error {
	if req == nil || req.URL == "" {
		return ErrInvalidRequest
	}

	if _, err := urlutil.Normalize(req.URL); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, req.URL)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dedup.IsDuplicateAndMark(req.URL) {
		f.metrics.DuplicatesRejected++
		return nil
	}

	if f.size >= f.maxSize {
		f.metrics.Rejected++
		return fmt.Errorf("%w: size %d", ErrFrontierFull, f.size)
	}

	f.buckets[req.Priority] = append(f.buckets[req.Priority], req)
	f.size++
	f.metrics.Enqueued++
	f.metrics.CurrentSize = int64(f.size)

	f.logger.Debug("request enqueued",
		"url", req.URL,
		"depth", req.Depth,
		"priority", req.Priority.String(),
	)

	return nil
}

// Next returns the highest-priority pending request, or nil when the
// frontier is empty. Within a priority bucket requests are returned in
// insertion order.
func (f *Frontier) Next() *CrawlRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range dequeueOrder {
		bucket := f.buckets[p]
		if len(bucket) == 0 {
			continue
		}

		req := bucket[0]
		f.buckets[p] = bucket[1:]
		f.size--
		f.metrics.Dequeued++
		f.metrics.CurrentSize = int64(f.size)

		return req
	}

	return nil
}

// Size returns the number of queued requests.
func (f *Frontier) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

// Clear resets all queues and the dedup tracker.
func (f *Frontier) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.buckets = make(map[Priority][]*CrawlRequest)
	f.size = 0
	f.dedup.Reset()
	f.metrics.CurrentSize = 0
}

// Snapshot returns a copy of the frontier metrics.
func (f *Frontier) Snapshot() Metrics {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metrics
}
