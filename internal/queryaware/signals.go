package queryaware

import (
	"math"
	"net/url"
	"strings"
)

// neutralScore is returned by signal analyzers when no query is configured.
const neutralScore = 0.5

// depthDecayRate controls how quickly the depth signal decays.
const depthDecayRate = 0.3

// urlSignalAnalyzer scores URLs by crawl depth and query-term presence in
// the path.
type urlSignalAnalyzer struct {
	queryTerms []string
}

func newURLSignalAnalyzer(query string) *urlSignalAnalyzer {
	return &urlSignalAnalyzer{queryTerms: tokenize(query)}
}

// score combines the depth signal and the path relevance signal with
// equal weight.
func (a *urlSignalAnalyzer) score(rawURL string, depth int) float64 {
	return (a.depthScore(depth) + a.pathRelevance(rawURL)) / 2.0
}

// depthScore decays exponentially with depth: shallower URLs score higher.
func (a *urlSignalAnalyzer) depthScore(depth int) float64 {
	return math.Exp(-depthDecayRate * float64(depth))
}

// pathRelevance measures query-term presence in the URL path, with bonuses
// for terms in the host and in early path segments. Neutral without a query.
func (a *urlSignalAnalyzer) pathRelevance(rawURL string) float64 {
	if len(a.queryTerms) == 0 {
		return neutralScore
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0.0
	}

	path := strings.ToLower(parsed.Path)
	host := strings.ToLower(parsed.Hostname())
	segments := strings.Split(path, "/")

	var relevance float64

	for _, term := range a.queryTerms {
		if !strings.Contains(path, term) {
			continue
		}

		relevance += 1.0

		if strings.Contains(host, term) {
			relevance += 0.5
		}

		for i, segment := range segments {
			if strings.Contains(segment, term) {
				relevance += 0.3 / float64(i+1)
			}
		}
	}

	return relevance / float64(len(a.queryTerms))
}

// domainDiversityAnalyzer rewards crawling domains that have received a
// smaller share of the pages crawled so far.
type domainDiversityAnalyzer struct {
	domainCounts map[string]int
	totalPages   int
}

func newDomainDiversityAnalyzer() *domainDiversityAnalyzer {
	return &domainDiversityAnalyzer{domainCounts: make(map[string]int)}
}

// recordPage counts a crawled page against its domain.
func (a *domainDiversityAnalyzer) recordPage(domain string) {
	a.domainCounts[domain]++
	a.totalPages++
}

// score returns 1.0 before any pages are recorded. Otherwise the score is
// a sigmoid of the domain's page share, plus a flat bonus for domains not
// yet visited. A first visit to a fresh domain always scores at least as
// high as a repeat visit to a crawled one.
func (a *domainDiversityAnalyzer) score(domain string) float64 {
	count := a.domainCounts[domain]

	if a.totalPages == 0 {
		return 1.0
	}

	share := float64(count) / float64(a.totalPages)
	diversity := 1.0 / (1.0 + math.Exp(share*10.0))

	if count == 0 {
		return diversity + 0.2
	}

	return diversity
}

// stats returns the number of distinct domains and total recorded pages.
func (a *domainDiversityAnalyzer) stats() (domains, pages int) {
	return len(a.domainCounts), a.totalPages
}

// contentSimilarityAnalyzer measures Jaccard overlap between document
// terms and query terms.
type contentSimilarityAnalyzer struct {
	queryTerms map[string]struct{}
}

func newContentSimilarityAnalyzer(query string) *contentSimilarityAnalyzer {
	return &contentSimilarityAnalyzer{queryTerms: termSet(query)}
}

// score returns |intersection| / |union| of the query and document term
// sets. Neutral without a query.
func (a *contentSimilarityAnalyzer) score(content string) float64 {
	if len(a.queryTerms) == 0 {
		return neutralScore
	}

	contentTerms := termSet(content)

	intersection := 0
	for term := range contentTerms {
		if _, ok := a.queryTerms[term]; ok {
			intersection++
		}
	}

	union := len(contentTerms) + len(a.queryTerms) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}
