// Package queryaware scores candidate pages for relevance to an operator
// query so the crawl preferentially explores relevant subgraphs and stops
// early when yield degrades. Scoring blends a BM25 text model with URL
// signals, domain diversity, and content similarity.
package queryaware

import (
	"errors"
	"fmt"
)

// Default configuration values.
const (
	// DefaultBM25Weight is the weight of the BM25 component.
	DefaultBM25Weight = 0.4
	// DefaultURLSignalsWeight is the weight of the URL-signal component.
	DefaultURLSignalsWeight = 0.2
	// DefaultDomainDiversityWeight is the weight of the diversity component.
	DefaultDomainDiversityWeight = 0.2
	// DefaultContentSimilarityWeight is the weight of the similarity component.
	DefaultContentSimilarityWeight = 0.2
	// DefaultMinRelevanceThreshold is the early-stop relevance floor.
	DefaultMinRelevanceThreshold = 0.3
	// DefaultRelevanceWindowSize is the size of the recent-score window.
	DefaultRelevanceWindowSize = 10
	// DefaultBM25K1 is the BM25 term-frequency saturation parameter.
	DefaultBM25K1 = 1.2
	// DefaultBM25B is the BM25 length-normalization parameter.
	DefaultBM25B = 0.75
)

var errMissingQuery = errors.New("queryaware: foraging enabled without a target query")

// Config controls query-aware scoring. The weights conceptually sum to 1.0.
type Config struct {
	// Enabled turns on query foraging. Off by default; when off the
	// scorer returns a neutral score for every request.
	Enabled bool `mapstructure:"enabled"`
	// TargetQuery is the operator-supplied query or keywords.
	TargetQuery string `mapstructure:"target_query"`
	// BM25Weight is the weight of the BM25 text relevance component.
	BM25Weight float64 `mapstructure:"bm25_weight"`
	// URLSignalsWeight is the weight of the URL path/depth component.
	URLSignalsWeight float64 `mapstructure:"url_signals_weight"`
	// DomainDiversityWeight is the weight of the domain diversity component.
	DomainDiversityWeight float64 `mapstructure:"domain_diversity_weight"`
	// ContentSimilarityWeight is the weight of the term-overlap component.
	ContentSimilarityWeight float64 `mapstructure:"content_similarity_weight"`
	// MinRelevanceThreshold is the window-average score below which the
	// scorer requests an early stop.
	MinRelevanceThreshold float64 `mapstructure:"min_relevance_threshold"`
	// RelevanceWindowSize is the number of recent scores examined for
	// early stopping.
	RelevanceWindowSize int `mapstructure:"relevance_window_size"`
	// BM25K1 is the term-frequency saturation parameter.
	BM25K1 float64 `mapstructure:"bm25_k1"`
	// BM25B is the document-length normalization parameter.
	BM25B float64 `mapstructure:"bm25_b"`
}

// DefaultConfig returns a config with foraging disabled and standard
// BM25 parameters.
func DefaultConfig() Config {
	return Config{
		Enabled:                 false,
		BM25Weight:              DefaultBM25Weight,
		URLSignalsWeight:        DefaultURLSignalsWeight,
		DomainDiversityWeight:   DefaultDomainDiversityWeight,
		ContentSimilarityWeight: DefaultContentSimilarityWeight,
		MinRelevanceThreshold:   DefaultMinRelevanceThreshold,
		RelevanceWindowSize:     DefaultRelevanceWindowSize,
		BM25K1:                  DefaultBM25K1,
		BM25B:                   DefaultBM25B,
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.TargetQuery == "" {
		return errMissingQuery
	}
	if c.RelevanceWindowSize <= 0 {
		return fmt.Errorf("queryaware: relevance window size must be positive, got %d", c.RelevanceWindowSize)
	}
	if c.BM25K1 <= 0 {
		return fmt.Errorf("queryaware: bm25 k1 must be positive, got %v", c.BM25K1)
	}
	if c.BM25B < 0 || c.BM25B > 1 {
		return fmt.Errorf("queryaware: bm25 b must be in [0, 1], got %v", c.BM25B)
	}
	for _, w := range []float64{c.BM25Weight, c.URLSignalsWeight, c.DomainDiversityWeight, c.ContentSimilarityWeight} {
		if w < 0 {
			return errors.New("queryaware: component weights must not be negative")
		}
	}
	return nil
}
