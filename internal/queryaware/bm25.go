package queryaware

import (
	"math"
	"sync"
)

// BM25Scorer ranks documents against a fixed set of query terms using
// corpus statistics accumulated as pages are crawled. IDF is signed:
// terms appearing in more than half the corpus get a negative IDF, so a
// document containing only very common query terms can score below zero.
// Documents with no query-term overlap score exactly zero.
type BM25Scorer struct {
	mu         sync.Mutex
	queryTerms []string
	docFreq    map[string]int
	totalDocs  int
	avgDocLen  float64
	k1         float64
	b          float64
}

// NewBM25Scorer creates a scorer for the given query.
func NewBM25Scorer(query string, k1, b float64) *BM25Scorer {
	return &BM25Scorer{
		queryTerms: tokenize(query),
		docFreq:    make(map[string]int),
		k1:         k1,
		b:          b,
	}
}

// UpdateCorpus folds a document into the corpus statistics: it increments
// the document count, the per-term document frequency for each distinct
// term, and the running average document length.
func (s *BM25Scorer) UpdateCorpus(document string) {
	tokens := tokenize(document)
	distinct := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		distinct[t] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for term := range distinct {
		s.docFreq[term]++
	}

	s.totalDocs++
	docLen := float64(len(tokens))
	s.avgDocLen = (s.avgDocLen*float64(s.totalDocs-1) + docLen) / float64(s.totalDocs)
}

// Score computes the BM25 score of a document against the query terms.
// Term-frequency contribution saturates sub-linearly: five occurrences of
// a term contribute well under five times the score of one occurrence.
func (s *BM25Scorer) Score(document string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queryTerms) == 0 || s.totalDocs == 0 {
		return 0.0
	}

	tokens := tokenize(document)
	docLen := float64(len(tokens))

	termFreq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		termFreq[t]++
	}

	var score float64

	for _, queryTerm := range s.queryTerms {
		tf := float64(termFreq[queryTerm])
		df := float64(s.docFreq[queryTerm])

		if tf == 0 || df == 0 {
			continue
		}

		idf := math.Log((float64(s.totalDocs) - df + 0.5) / (df + 0.5))

		numerator := tf * (s.k1 + 1.0)
		denominator := tf + s.k1*(1.0-s.b+s.b*(docLen/s.avgDocLen))

		score += idf * (numerator / denominator)
	}

	return score
}

// CorpusSize returns the number of documents folded into the corpus.
func (s *BM25Scorer) CorpusSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalDocs
}
