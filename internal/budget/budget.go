// Package budget enforces global and per-host crawl quotas: pages, depth,
// concurrency, duration, and bandwidth. Checks are pure; reservations are
// made through the StartRequest/CompleteRequest pair.
package budget

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonesrussell/gospider/internal/logger"
	"github.com/jonesrussell/gospider/internal/urlutil"
)

// Enforcement selects how limits are applied.
type Enforcement int

const (
	// EnforcementHard rejects requests beyond any limit outright.
	EnforcementHard Enforcement = iota
	// EnforcementAdaptive signals callers to slow down once utilization
	// crosses the slowdown threshold instead of hard-rejecting.
	EnforcementAdaptive
)

// String returns the string representation of an enforcement mode.
func (e Enforcement) String() string {
	switch e {
	case EnforcementHard:
		return "hard"
	case EnforcementAdaptive:
		return "adaptive"
	default:
		return "unknown"
	}
}

// Common errors returned by the budget manager.
var (
	// ErrGlobalConcurrency is returned by StartRequest when the global
	// concurrency limit is reached.
	ErrGlobalConcurrency = errors.New("global concurrency limit reached")
	// ErrHostConcurrency is returned by StartRequest when the per-host
	// concurrency limit is reached.
	ErrHostConcurrency = errors.New("per-host concurrency limit reached")
)

// Config holds crawl quotas. A zero value for any limit means unbounded.
// The configuration is immutable after the manager is constructed.
type Config struct {
	// MaxPages bounds the total number of successfully crawled pages.
	MaxPages int64 `mapstructure:"max_pages"`
	// MaxDepth bounds link distance from the seeds.
	MaxDepth int `mapstructure:"max_depth"`
	// MaxConcurrent bounds in-flight requests globally.
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// MaxDuration bounds total crawl wall time.
	MaxDuration time.Duration `mapstructure:"max_duration"`
	// MaxBandwidth bounds total downloaded bytes.
	MaxBandwidth int64 `mapstructure:"max_bandwidth"`
	// MaxPagesPerHost bounds successfully crawled pages per host.
	MaxPagesPerHost int64 `mapstructure:"max_pages_per_host"`
	// MaxConcurrentPerHost bounds in-flight requests per host.
	MaxConcurrentPerHost int `mapstructure:"max_concurrent_per_host"`

	// Enforcement selects hard rejection or adaptive slowdown.
	Enforcement Enforcement `mapstructure:"-"`
	// SlowdownThreshold is the utilization fraction (0..1) at which
	// adaptive enforcement starts signalling slowdown.
	SlowdownThreshold float64 `mapstructure:"slowdown_threshold"`
	// RateReductionFactor is the rate multiplier (0..1) suggested to
	// callers once the slowdown threshold is crossed.
	RateReductionFactor float64 `mapstructure:"rate_reduction_factor"`
	// WarningThreshold is the utilization fraction at which a warning is
	// logged.
	WarningThreshold float64 `mapstructure:"warning_threshold"`
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.MaxPages < 0 || c.MaxBandwidth < 0 || c.MaxPagesPerHost < 0 {
		return errors.New("budget: limits must not be negative")
	}
	if c.MaxDepth < 0 || c.MaxConcurrent < 0 || c.MaxConcurrentPerHost < 0 {
		return errors.New("budget: limits must not be negative")
	}
	if c.Enforcement == EnforcementAdaptive {
		if c.SlowdownThreshold <= 0 || c.SlowdownThreshold > 1 {
			return fmt.Errorf("budget: slowdown threshold must be in (0, 1], got %v", c.SlowdownThreshold)
		}
		if c.RateReductionFactor <= 0 || c.RateReductionFactor >= 1 {
			return fmt.Errorf("budget: rate reduction factor must be in (0, 1), got %v", c.RateReductionFactor)
		}
	}
	if c.WarningThreshold < 0 || c.WarningThreshold > 1 {
		return fmt.Errorf("budget: warning threshold must be in [0, 1], got %v", c.WarningThreshold)
	}
	return nil
}

// hostUsage tracks per-host counters. Entries are created lazily on the
// first request to a host.
type hostUsage struct {
	pages  int64
	active int
}

// Usage is a point-in-time snapshot of budget consumption.
type Usage struct {
	PagesCrawled    int64
	BytesDownloaded int64
	ActiveRequests  int
	Elapsed         time.Duration
	Utilization     float64
}

// Manager tracks budget consumption for one crawl run.
type Manager struct {
	mu        sync.Mutex
	cfg       Config
	startTime time.Time

	pagesCrawled    int64
	bytesDownloaded int64
	activeRequests  int
	hosts           map[string]*hostUsage

	warned bool
	logger logger.Interface
}

// NewManager creates a budget manager. The configuration is validated and
// fails fast on inconsistency.
func NewManager(cfg Config, log logger.Interface) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNoOp()
	}

	return &Manager{
		cfg:       cfg,
		startTime: time.Now(),
		hosts:     make(map[string]*hostUsage),
		logger:    log.WithComponent("budget"),
	}, nil
}

// CanMakeRequest reports whether a request to url at the given depth is
// within budget. The check is pure: no counters are mutated. The error is
// non-nil only when the URL cannot be parsed.
func (m *Manager) CanMakeRequest(rawURL string, depth int) (bool, error) {
	host, err := urlutil.ExtractHost(rawURL)
	if err != nil {
		return false, fmt.Errorf("budget check: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.MaxDepth > 0 && depth > m.cfg.MaxDepth {
		return false, nil
	}
	if m.cfg.MaxPages > 0 && m.pagesCrawled >= m.cfg.MaxPages {
		return false, nil
	}
	if m.cfg.MaxDuration > 0 && time.Since(m.startTime) >= m.cfg.MaxDuration {
		return false, nil
	}
	if m.cfg.MaxBandwidth > 0 && m.bytesDownloaded >= m.cfg.MaxBandwidth {
		return false, nil
	}
	if m.cfg.MaxConcurrent > 0 && m.activeRequests >= m.cfg.MaxConcurrent {
		return false, nil
	}

	if usage, ok := m.hosts[host]; ok {
		if m.cfg.MaxPagesPerHost > 0 && usage.pages >= m.cfg.MaxPagesPerHost {
			return false, nil
		}
		if m.cfg.MaxConcurrentPerHost > 0 && usage.active >= m.cfg.MaxConcurrentPerHost {
			return false, nil
		}
	}

	return true, nil
}

// StartRequest reserves a global and per-host concurrency slot. Every
// successful StartRequest must be paired with exactly one CompleteRequest
// on all exit paths; an unpaired call leaks capacity.
func (m *Manager) StartRequest(rawURL string, depth int) error {
	host, err := urlutil.ExtractHost(rawURL)
	if err != nil {
		return fmt.Errorf("budget start: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.MaxConcurrent > 0 && m.activeRequests >= m.cfg.MaxConcurrent {
		return fmt.Errorf("budget start %s: %w", host, ErrGlobalConcurrency)
	}

	usage, ok := m.hosts[host]
	if !ok {
		usage = &hostUsage{}
		m.hosts[host] = usage
	}

	if m.cfg.MaxConcurrentPerHost > 0 && usage.active >= m.cfg.MaxConcurrentPerHost {
		return fmt.Errorf("budget start %s: %w", host, ErrHostConcurrency)
	}

	m.activeRequests++
	usage.active++

	return nil
}

// CompleteRequest releases the slots reserved by StartRequest and records
// the outcome. Successful requests count toward page quotas; all requests
// count downloaded bytes.
func (m *Manager) CompleteRequest(rawURL string, bytes int64, success bool) {
	host, err := urlutil.ExtractHost(rawURL)
	if err != nil {
		// The paired StartRequest would have failed on the same URL,
		// so there is nothing to release.
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeRequests > 0 {
		m.activeRequests--
	}

	usage, ok := m.hosts[host]
	if ok && usage.active > 0 {
		usage.active--
	}

	m.bytesDownloaded += bytes

	if success {
		m.pagesCrawled++
		if ok {
			usage.pages++
		}
	}

	m.maybeWarnLocked()
}

// ShouldSlowDown reports whether adaptive enforcement wants callers to
// reduce their request rate, and by what factor. Always false under hard
// enforcement.
func (m *Manager) ShouldSlowDown() (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.Enforcement != EnforcementAdaptive {
		return false, 0
	}

	if m.utilizationLocked() >= m.cfg.SlowdownThreshold {
		return true, m.cfg.RateReductionFactor
	}

	return false, 0
}

// Usage returns a snapshot of current consumption.
func (m *Manager) Usage() Usage {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Usage{
		PagesCrawled:    m.pagesCrawled,
		BytesDownloaded: m.bytesDownloaded,
		ActiveRequests:  m.activeRequests,
		Elapsed:         time.Since(m.startTime),
		Utilization:     m.utilizationLocked(),
	}
}

// Reset clears all counters for a new crawl run.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.startTime = time.Now()
	m.pagesCrawled = 0
	m.bytesDownloaded = 0
	m.activeRequests = 0
	m.hosts = make(map[string]*hostUsage)
	m.warned = false
}

// utilizationLocked returns the highest utilization fraction across the
// bounded soft limits (pages, bandwidth, duration). Must be called with
// mu held.
func (m *Manager) utilizationLocked() float64 {
	var highest float64

	if m.cfg.MaxPages > 0 {
		highest = max(highest, float64(m.pagesCrawled)/float64(m.cfg.MaxPages))
	}
	if m.cfg.MaxBandwidth > 0 {
		highest = max(highest, float64(m.bytesDownloaded)/float64(m.cfg.MaxBandwidth))
	}
	if m.cfg.MaxDuration > 0 {
		highest = max(highest, float64(time.Since(m.startTime))/float64(m.cfg.MaxDuration))
	}

	return highest
}

// maybeWarnLocked logs once when consumption crosses the warning threshold.
// Must be called with mu held.
func (m *Manager) maybeWarnLocked() {
	if m.warned || m.cfg.WarningThreshold <= 0 {
		return
	}

	utilization := m.utilizationLocked()
	if utilization >= m.cfg.WarningThreshold {
		m.warned = true
		m.logger.Warn("budget utilization crossed warning threshold",
			"utilization", utilization,
			"threshold", m.cfg.WarningThreshold,
			"pages_crawled", m.pagesCrawled,
			"bytes_downloaded", m.bytesDownloaded,
		)
	}
}
