package queryaware

import (
	"fmt"
	"sync"

	"github.com/jonesrussell/gospider/internal/frontier"
	"github.com/jonesrussell/gospider/internal/urlutil"
)

// disabledScore is returned for every request when foraging is off.
const disabledScore = 1.0

// Scorer is the query-aware scoring engine. Scoring has side effects:
// ScoreRequest records the score in the sliding relevance window and
// UpdateWithResult folds crawled pages into the BM25 corpus and the
// domain statistics, so repeated calls with identical input can return
// different scores as the corpus evolves.
type Scorer struct {
	mu              sync.Mutex
	cfg             Config
	bm25            *BM25Scorer
	urlAnalyzer     *urlSignalAnalyzer
	domainAnalyzer  *domainDiversityAnalyzer
	contentAnalyzer *contentSimilarityAnalyzer
	recentScores    []float64
}

// Stats is a snapshot of scorer state.
type Stats struct {
	Enabled            bool
	UniqueDomains      int
	TotalPages         int
	AvgRecentRelevance float64
	CorpusSize         int
}

// NewScorer creates a scorer from the given configuration. The
// configuration is validated and fails fast on inconsistency.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Scorer{
		cfg:             cfg,
		bm25:            NewBM25Scorer(cfg.TargetQuery, cfg.BM25K1, cfg.BM25B),
		urlAnalyzer:     newURLSignalAnalyzer(cfg.TargetQuery),
		domainAnalyzer:  newDomainDiversityAnalyzer(),
		contentAnalyzer: newContentSimilarityAnalyzer(cfg.TargetQuery),
	}, nil
}

// UpdateWithResult folds a crawled result into the corpus statistics and
// the domain diversity counters.
func (s *Scorer) UpdateWithResult(result *frontier.CrawlResult) {
	if result == nil || result.Request == nil {
		return
	}

	if result.TextContent != "" {
		s.bm25.UpdateCorpus(result.TextContent)
	}

	domain, err := urlutil.ExtractHost(result.Request.URL)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.domainAnalyzer.recordPage(domain)
}

// ScoreRequest computes the blended relevance score for a request and
// records it in the sliding window. Pass empty content when no page text
// is available; the BM25 and similarity components are then skipped.
// Returns a neutral score when foraging is disabled.
func (s *Scorer) ScoreRequest(req *frontier.CrawlRequest, content string) float64 {
	if !s.cfg.Enabled {
		return disabledScore
	}

	var total float64

	if content != "" {
		total += s.cfg.BM25Weight * s.bm25.Score(content)
	}

	total += s.cfg.URLSignalsWeight * s.urlAnalyzer.score(req.URL, req.Depth)

	s.mu.Lock()
	domain, err := urlutil.ExtractHost(req.URL)
	if err == nil {
		total += s.cfg.DomainDiversityWeight * s.domainAnalyzer.score(domain)
	} else {
		total += s.cfg.DomainDiversityWeight * neutralScore
	}
	s.mu.Unlock()

	if content != "" {
		total += s.cfg.ContentSimilarityWeight * s.contentAnalyzer.score(content)
	}

	s.mu.Lock()
	s.recentScores = append(s.recentScores, total)
	if len(s.recentScores) > s.cfg.RelevanceWindowSize {
		s.recentScores = s.recentScores[1:]
	}
	s.mu.Unlock()

	return total
}

// ShouldStopEarly reports whether sustained low relevance warrants ending
// the crawl. It fires only once the window is full and its average falls
// below the configured threshold.
func (s *Scorer) ShouldStopEarly() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Enabled || len(s.recentScores) < s.cfg.RelevanceWindowSize {
		return false, ""
	}

	var sum float64
	for _, score := range s.recentScores {
		sum += score
	}
	avg := sum / float64(len(s.recentScores))

	if avg < s.cfg.MinRelevanceThreshold {
		reason := fmt.Sprintf(
			"Low relevance detected: average score %.3f below threshold %.3f",
			avg, s.cfg.MinRelevanceThreshold,
		)
		return true, reason
	}

	return false, ""
}

// Stats returns a snapshot of the scorer's state.
func (s *Scorer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	domains, pages := s.domainAnalyzer.stats()

	var avg float64
	if len(s.recentScores) > 0 {
		var sum float64
		for _, score := range s.recentScores {
			sum += score
		}
		avg = sum / float64(len(s.recentScores))
	}

	return Stats{
		Enabled:            s.cfg.Enabled,
		UniqueDomains:      domains,
		TotalPages:         pages,
		AvgRecentRelevance: avg,
		CorpusSize:         s.bm25.CorpusSize(),
	}
}

// Reset clears the relevance window, the corpus, and the domain counters
// for reuse across crawl runs.
func (s *Scorer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bm25 = NewBM25Scorer(s.cfg.TargetQuery, s.cfg.BM25K1, s.cfg.BM25B)
	s.domainAnalyzer = newDomainDiversityAnalyzer()
	s.recentScores = nil
}
