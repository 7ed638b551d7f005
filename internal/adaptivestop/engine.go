package adaptivestop

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/jonesrussell/gospider/internal/frontier"
	"github.com/jonesrussell/gospider/internal/logger"
	"github.com/jonesrussell/gospider/internal/urlutil"
)

// siteSampleLimit bounds the retained analysis samples.
const siteSampleLimit = 50

// siteDetectionMinimum is the sample count required before classifying.
const siteDetectionMinimum = 10

// qualityWindowMinimum is the sample count required before the quality
// signal can stop the crawl.
const qualityWindowMinimum = 5

// ContentMetrics summarizes one analyzed page.
type ContentMetrics struct {
	// UniqueTextChars is the number of distinct runes in the page text.
	UniqueTextChars int
	// ContentSize is the fetched body size in bytes.
	ContentSize int64
	// LinkCount is the number of extracted URLs.
	LinkCount int
	// QualityScore rates the content between 0 and 1.
	QualityScore float64
}

// StopDecision is the engine's verdict for the current iteration.
type StopDecision struct {
	// ShouldStop requests crawl termination.
	ShouldStop bool
	// Reason describes the decision.
	Reason string
	// CurrentGainAverage is the windowed average content gain.
	CurrentGainAverage float64
	// ThresholdUsed is the gain threshold applied.
	ThresholdUsed float64
	// ConsecutiveLowGain counts low-gain checks in a row.
	ConsecutiveLowGain int
	// PagesAnalyzed is the number of pages folded in so far.
	PagesAnalyzed int
	// DetectedSiteType is the current site classification.
	DetectedSiteType SiteType
}

// Stats is a snapshot of engine state.
type Stats struct {
	PagesAnalyzed      int
	ConsecutiveLowGain int
	CurrentGainAverage float64
	DetectedSiteType   SiteType
	AvgQualityScore    float64
	WindowFull         bool
}

// Engine accumulates yield signals from crawl results and evaluates stop
// conditions once per loop iteration.
type Engine struct {
	mu                 sync.Mutex
	cfg                Config
	window             *contentWindow
	qualityScores      []float64
	consecutiveLowGain int
	pagesAnalyzed      int
	siteType           SiteType
	samples            []ContentMetrics
	logger             logger.Interface
}

// NewEngine creates an adaptive stop engine. The configuration is
// validated and fails fast on inconsistency.
func NewEngine(cfg Config, log logger.Interface) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNoOp()
	}

	return &Engine{
		cfg:    cfg,
		window: newContentWindow(cfg.WindowSize),
		logger: log.WithComponent("adaptivestop"),
	}, nil
}

// AnalyzeResult folds a crawl result into the engine's yield signals and
// returns the metrics computed for it. Failed results contribute nothing.
func (e *Engine) AnalyzeResult(result *frontier.CrawlResult) ContentMetrics {
	if result == nil || !result.Success {
		return ContentMetrics{}
	}

	metrics := ContentMetrics{
		UniqueTextChars: uniqueTextChars(result.TextContent),
		ContentSize:     result.ContentSize,
		LinkCount:       len(result.ExtractedURLs),
	}

	if e.cfg.EnableQualityScoring {
		metrics.QualityScore = qualityScore(result)
	} else {
		metrics.QualityScore = 1.0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.window.add(metrics.UniqueTextChars)
	e.pagesAnalyzed++

	if e.cfg.EnableQualityScoring {
		e.qualityScores = append(e.qualityScores, metrics.QualityScore)
		if len(e.qualityScores) > e.cfg.WindowSize {
			e.qualityScores = e.qualityScores[1:]
		}
	}

	e.samples = append(e.samples, metrics)
	if len(e.samples) > siteSampleLimit {
		e.samples = e.samples[1:]
	}
	if len(e.samples) >= siteDetectionMinimum {
		e.siteType = detectSiteType(e.samples)
	}

	e.logger.Debug("content analyzed",
		"unique_chars", metrics.UniqueTextChars,
		"content_size", metrics.ContentSize,
		"link_count", metrics.LinkCount,
		"quality_score", metrics.QualityScore,
	)

	return metrics
}

// ShouldStop evaluates the stop conditions. It never requests a stop
// before MinPagesBeforeStop pages have been analyzed or while the content
// window lacks data.
func (e *Engine) ShouldStop() StopDecision {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pagesAnalyzed < e.cfg.MinPagesBeforeStop {
		return StopDecision{
			ShouldStop: false,
			Reason: fmt.Sprintf(
				"Not enough pages analyzed (%d < %d)",
				e.pagesAnalyzed, e.cfg.MinPagesBeforeStop,
			),
			CurrentGainAverage: math.Inf(1),
			ThresholdUsed:      e.cfg.MinGainThreshold,
			PagesAnalyzed:      e.pagesAnalyzed,
			DetectedSiteType:   e.siteType,
		}
	}

	if !e.window.hasSufficientData() {
		return StopDecision{
			ShouldStop:         false,
			Reason:             "Insufficient data in content window",
			CurrentGainAverage: math.Inf(1),
			ThresholdUsed:      e.cfg.MinGainThreshold,
			PagesAnalyzed:      e.pagesAnalyzed,
			DetectedSiteType:   e.siteType,
		}
	}

	gainAverage := e.window.averageGain()
	threshold := e.cfg.MinGainThreshold
	if e.cfg.EnableAdaptiveThreshold {
		threshold = e.adaptiveThresholdLocked()
	}

	if gainAverage < threshold {
		e.consecutiveLowGain++

		e.logger.Debug("low gain detected",
			"gain", gainAverage,
			"threshold", threshold,
			"consecutive", e.consecutiveLowGain,
			"patience", e.cfg.Patience,
		)

		if e.consecutiveLowGain >= e.cfg.Patience {
			return StopDecision{
				ShouldStop: true,
				Reason: fmt.Sprintf(
					"Low content gain for %d consecutive iterations (gain: %.2f < threshold: %.2f)",
					e.consecutiveLowGain, gainAverage, threshold,
				),
				CurrentGainAverage: gainAverage,
				ThresholdUsed:      threshold,
				ConsecutiveLowGain: e.consecutiveLowGain,
				PagesAnalyzed:      e.pagesAnalyzed,
				DetectedSiteType:   e.siteType,
			}
		}
	} else {
		e.consecutiveLowGain = 0
	}

	if e.cfg.EnableQualityScoring && len(e.qualityScores) >= qualityWindowMinimum {
		avgQuality := mean(e.qualityScores)
		if avgQuality < e.cfg.QualityThreshold {
			return StopDecision{
				ShouldStop: true,
				Reason: fmt.Sprintf(
					"Low content quality average: %.3f < %.3f",
					avgQuality, e.cfg.QualityThreshold,
				),
				CurrentGainAverage: gainAverage,
				ThresholdUsed:      threshold,
				ConsecutiveLowGain: e.consecutiveLowGain,
				PagesAnalyzed:      e.pagesAnalyzed,
				DetectedSiteType:   e.siteType,
			}
		}
	}

	return StopDecision{
		ShouldStop:         false,
		Reason:             "Continue crawling",
		CurrentGainAverage: gainAverage,
		ThresholdUsed:      threshold,
		ConsecutiveLowGain: e.consecutiveLowGain,
		PagesAnalyzed:      e.pagesAnalyzed,
		DetectedSiteType:   e.siteType,
	}
}

// Reset clears all accumulated state for reuse across crawl runs.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.window = newContentWindow(e.cfg.WindowSize)
	e.qualityScores = nil
	e.consecutiveLowGain = 0
	e.pagesAnalyzed = 0
	e.siteType = SiteTypeUnknown
	e.samples = nil
}

// Stats returns a snapshot of engine state.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	var avgQuality float64
	if len(e.qualityScores) > 0 {
		avgQuality = mean(e.qualityScores)
	}

	return Stats{
		PagesAnalyzed:      e.pagesAnalyzed,
		ConsecutiveLowGain: e.consecutiveLowGain,
		CurrentGainAverage: e.window.averageGain(),
		DetectedSiteType:   e.siteType,
		AvgQualityScore:    avgQuality,
		WindowFull:         e.window.full(),
	}
}

// adaptiveThresholdLocked adjusts the gain threshold by detected site type
// and recent yield. Must be called with mu held.
func (e *Engine) adaptiveThresholdLocked() float64 {
	adjusted := e.cfg.MinGainThreshold * e.siteType.thresholdMultiplier()

	if len(e.samples) >= qualityWindowMinimum {
		recent := e.samples[len(e.samples)-qualityWindowMinimum:]

		var sum float64
		for _, s := range recent {
			sum += float64(s.UniqueTextChars)
		}
		avgUniqueChars := sum / float64(len(recent))

		// Consistently thin content lowers the bar; rich content raises it.
		if avgUniqueChars < adjusted*0.5 {
			return adjusted * 0.7
		}
		if avgUniqueChars > adjusted*2.0 {
			return adjusted * 1.2
		}
	}

	return adjusted
}

// uniqueTextChars counts distinct runes in the text.
func uniqueTextChars(text string) int {
	if text == "" {
		return 0
	}

	seen := make(map[rune]struct{})
	for _, r := range text {
		seen[r] = struct{}{}
	}
	return len(seen)
}

// qualityScore rates a successful result between 0 and 1 using simple
// readability, link, and size heuristics.
func qualityScore(result *frontier.CrawlResult) float64 {
	var score float64

	if text := result.TextContent; text != "" {
		wordCount := len(strings.Fields(text))
		sentenceCount := strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?")

		if wordCount > 100 {
			score += 0.3
		}
		if sentenceCount > 5 {
			score += 0.2
		}
		if len(text) > 500 {
			score += 0.2
		}

		// Penalize HTML artifacts leaking into extracted text.
		if strings.Contains(text, "</") || strings.Contains(text, "<!--") {
			score -= 0.1
		}
	}

	if host, err := urlutil.ExtractHost(result.Request.URL); err == nil {
		internal := 0
		for _, u := range result.ExtractedURLs {
			if linkHost, linkErr := urlutil.ExtractHost(u); linkErr == nil && linkHost == host {
				internal++
			}
		}
		if internal > 0 {
			score += 0.2
		}
	}

	if len(result.ExtractedURLs) > 5 {
		score += 0.1
	}
	if result.ContentSize > 1024 {
		score += 0.2
	}

	return math.Max(0.0, math.Min(1.0, score))
}

// detectSiteType classifies the site from recent sample averages.
func detectSiteType(samples []ContentMetrics) SiteType {
	if len(samples) == 0 {
		return SiteTypeUnknown
	}

	var chars, links, quality float64
	for _, s := range samples {
		chars += float64(s.UniqueTextChars)
		links += float64(s.LinkCount)
		quality += s.QualityScore
	}
	n := float64(len(samples))
	avgChars, avgLinks, avgQuality := chars/n, links/n, quality/n

	switch {
	case avgChars > 5000 && avgQuality > 0.7 && avgLinks > 20:
		return SiteTypeNews
	case avgChars > 5000 && avgQuality > 0.7:
		return SiteTypeBlog
	case avgLinks > 50 && avgChars > 2000:
		return SiteTypeSocialMedia
	case avgLinks < 5 && avgChars > 3000:
		return SiteTypeDocumentation
	case avgLinks > 10 && avgChars < 2000:
		return SiteTypeECommerce
	default:
		return SiteTypeUnknown
	}
}

// mean returns the arithmetic mean of values.
func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
