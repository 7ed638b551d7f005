package urlutil

import (
	"errors"
	"sync"

	bloom "github.com/bits-and-blooms/bloom/v3"
)

// Dedup tracker defaults. The false-positive probability is configurable
// because a bloom positive drops a genuinely new URL; callers that cannot
// tolerate that choose a lower probability at the cost of memory.
const (
	// DefaultDedupCapacity is the expected number of distinct URLs.
	DefaultDedupCapacity = 100_000
	// DefaultDedupFalsePositiveRate is the bloom filter's target false
	// positive probability.
	DefaultDedupFalsePositiveRate = 0.001
	// DefaultExactSetLimit bounds the exact-set size. Beyond this the
	// tracker relies on the bloom filter alone, keeping memory bounded.
	DefaultExactSetLimit = 50_000
)

var errInvalidDedupConfig = errors.New("dedup tracker: capacity and false positive rate must be positive")

// DedupTracker records previously seen URLs using a bloom filter backed by
// a bounded exact set. The bloom filter gives a constant memory footprint
// for arbitrarily large crawls; the exact set eliminates false positives
// for the most recent URLs. A bloom false positive causes a new URL to be
// reported as a duplicate. That is an accepted trade-off of probabilistic
// tracking, tunable via the false-positive rate, not a defect.
type DedupTracker struct {
	mu         sync.Mutex
	filter     *bloom.BloomFilter
	exact      map[string]struct{}
	exactLimit int
}

// NewDedupTracker creates a tracker sized for capacity URLs at the given
// false-positive rate.
func NewDedupTracker(capacity uint, falsePositiveRate float64) (*DedupTracker, error) {
	if capacity == 0 || falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		return nil, errInvalidDedupConfig
	}

	return &DedupTracker{
		filter:     bloom.NewWithEstimates(capacity, falsePositiveRate),
		exact:      make(map[string]struct{}),
		exactLimit: DefaultExactSetLimit,
	}, nil
}

// NewDefaultDedupTracker creates a tracker with the package defaults.
func NewDefaultDedupTracker() *DedupTracker {
	t, err := NewDedupTracker(DefaultDedupCapacity, DefaultDedupFalsePositiveRate)
	if err != nil {
		// Defaults are compile-time constants within range.
		panic(err)
	}
	return t
}

// IsDuplicateAndMark reports whether the URL has been seen before and marks
// it as seen. Returns false on the first sighting of a normalized form and
// true on every subsequent sighting. URLs that fail normalization are
// treated as duplicates so they never enter the frontier.
func (t *DedupTracker) IsDuplicateAndMark(rawURL string) bool {
	hash, err := Hash(rawURL)
	if err != nil {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.exact[hash]; ok {
		return true
	}

	if t.filter.TestString(hash) {
		// Either genuinely seen (after exact-set saturation) or a bloom
		// false positive. Both are reported as duplicates.
		return true
	}

	t.filter.AddString(hash)
	if len(t.exact) < t.exactLimit {
		t.exact[hash] = struct{}{}
	}

	return false
}

// Seen reports whether the URL has been marked without marking it.
func (t *DedupTracker) Seen(rawURL string) bool {
	hash, err := Hash(rawURL)
	if err != nil {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.exact[hash]; ok {
		return true
	}

	return t.filter.TestString(hash)
}

// Count returns the number of URLs in the exact set. After exact-set
// saturation this undercounts total marked URLs.
func (t *DedupTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.exact)
}

// Reset clears all tracked URLs.
func (t *DedupTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.filter.ClearAll()
	t.exact = make(map[string]struct{})
}
