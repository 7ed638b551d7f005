package queryaware_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jonesrussell/gospider/internal/frontier"
	"github.com/jonesrussell/gospider/internal/queryaware"
)

func enabledConfig(query string) queryaware.Config {
	cfg := queryaware.DefaultConfig()
	cfg.Enabled = true
	cfg.TargetQuery = query
	return cfg
}

func newScorer(t *testing.T, cfg queryaware.Config) *queryaware.Scorer {
	t.Helper()

	s, err := queryaware.NewScorer(cfg)
	if err != nil {
		t.Fatalf("NewScorer() unexpected error: %v", err)
	}
	return s
}

func TestScorer_DisabledReturnsNeutralScore(t *testing.T) {
	s := newScorer(t, queryaware.DefaultConfig())

	req := frontier.NewCrawlRequest("https://example.com/page")
	if got := s.ScoreRequest(req, "any content at all"); got != 1.0 {
		t.Errorf("ScoreRequest with foraging disabled = %v, want 1.0", got)
	}
}

func TestScorer_EnabledRequiresQuery(t *testing.T) {
	cfg := queryaware.DefaultConfig()
	cfg.Enabled = true

	if _, err := queryaware.NewScorer(cfg); err == nil {
		t.Error("NewScorer() with foraging enabled and no query expected error, got nil")
	}
}

func TestScorer_RelevantContentOutscoresIrrelevant(t *testing.T) {
	s := newScorer(t, enabledConfig("machine learning"))

	relevantReq := frontier.NewCrawlRequest("https://example.com/machine-learning/intro").WithDepth(1)
	irrelevantReq := frontier.NewCrawlRequest("https://example.com/cooking/recipes").WithDepth(1)

	relevant := s.ScoreRequest(relevantReq, "machine learning algorithms and their applications")
	irrelevant := s.ScoreRequest(irrelevantReq, "baking bread requires patience and good flour")

	if relevant <= irrelevant {
		t.Errorf("relevant score %v should exceed irrelevant score %v", relevant, irrelevant)
	}
}

func TestScorer_EarlyStopAfterWindowFills(t *testing.T) {
	cfg := enabledConfig("quantum physics")
	cfg.RelevanceWindowSize = 5
	cfg.MinRelevanceThreshold = 0.4
	s := newScorer(t, cfg)

	// Before the window fills the scorer never requests a stop.
	for i := 0; i < 4; i++ {
		req := frontier.NewCrawlRequest(fmt.Sprintf("https://example.com/page-%d", i)).WithDepth(3)
		s.ScoreRequest(req, "gardening tips for the enthusiastic beginner")

		stop, reason := s.ShouldStopEarly()
		if stop {
			t.Fatalf("ShouldStopEarly() = true after %d scores, want false before window fills", i+1)
		}
		if reason != "" {
			t.Errorf("reason = %q before window fills, want empty", reason)
		}
	}

	// Fifth irrelevant page fills the window; average is far below 0.4.
	req := frontier.NewCrawlRequest("https://example.com/page-4").WithDepth(3)
	s.ScoreRequest(req, "gardening tips for the enthusiastic beginner")

	stop, reason := s.ShouldStopEarly()
	if !stop {
		t.Fatal("ShouldStopEarly() = false with a full window of irrelevant scores, want true")
	}
	if !strings.Contains(reason, "Low relevance") {
		t.Errorf("reason = %q, want it to contain %q", reason, "Low relevance")
	}
}

func TestScorer_DomainDiversityMonotonicity(t *testing.T) {
	s := newScorer(t, enabledConfig("science articles"))

	const content = "science articles about physics chemistry and biology research"

	// First request to domain A.
	reqA1 := frontier.NewCrawlRequest("https://domain-a.com/page-1").WithDepth(1)
	s.ScoreRequest(reqA1, content)

	// Record a crawled page on domain A.
	resultA := frontier.NewCrawlResult(reqA1)
	resultA.TextContent = content
	s.UpdateWithResult(resultA)

	// Second request to domain A, then a first request to domain B,
	// identical content and depth.
	reqA2 := frontier.NewCrawlRequest("https://domain-a.com/page-2").WithDepth(1)
	scoreA2 := s.ScoreRequest(reqA2, content)

	reqB := frontier.NewCrawlRequest("https://domain-b.com/page-1").WithDepth(1)
	scoreB := s.ScoreRequest(reqB, content)

	if scoreB < scoreA2 {
		t.Errorf("first visit to fresh domain scored %v, below repeat visit score %v", scoreB, scoreA2)
	}
}

func TestScorer_StatsTracksCorpusAndDomains(t *testing.T) {
	s := newScorer(t, enabledConfig("news"))

	for i := 0; i < 3; i++ {
		req := frontier.NewCrawlRequest(fmt.Sprintf("https://site-%d.com/news", i))
		result := frontier.NewCrawlResult(req)
		result.TextContent = "news content for the corpus"
		s.UpdateWithResult(result)
	}

	stats := s.Stats()
	if !stats.Enabled {
		t.Error("Stats().Enabled = false, want true")
	}
	if stats.UniqueDomains != 3 {
		t.Errorf("Stats().UniqueDomains = %d, want 3", stats.UniqueDomains)
	}
	if stats.TotalPages != 3 {
		t.Errorf("Stats().TotalPages = %d, want 3", stats.TotalPages)
	}
	if stats.CorpusSize != 3 {
		t.Errorf("Stats().CorpusSize = %d, want 3", stats.CorpusSize)
	}
}

func TestScorer_ResetClearsWindow(t *testing.T) {
	cfg := enabledConfig("quantum physics")
	cfg.RelevanceWindowSize = 2
	cfg.MinRelevanceThreshold = 0.4
	s := newScorer(t, cfg)

	for i := 0; i < 2; i++ {
		req := frontier.NewCrawlRequest(fmt.Sprintf("https://example.com/page-%d", i)).WithDepth(4)
		s.ScoreRequest(req, "completely unrelated gardening content")
	}

	if stop, _ := s.ShouldStopEarly(); !stop {
		t.Fatal("expected early stop before reset")
	}

	s.Reset()

	if stop, _ := s.ShouldStopEarly(); stop {
		t.Error("ShouldStopEarly() = true after Reset(), want false")
	}
}

func TestBlendPriority(t *testing.T) {
	tests := []struct {
		name      string
		priority  frontier.Priority
		relevance float64
		want      frontier.Priority
	}{
		// 0.7*4 + 0.3*1.0*4 = 4.0
		{"critical with full relevance stays critical", frontier.PriorityCritical, 1.0, frontier.PriorityCritical},
		// 0.7*4 + 0 = 2.8
		{"critical with zero relevance drops to high", frontier.PriorityCritical, 0.0, frontier.PriorityHigh},
		// 0.7*3 + 0.3*1.0*4 = 3.3
		{"high with full relevance stays high", frontier.PriorityHigh, 1.0, frontier.PriorityHigh},
		// 0.7*2 + 0.3*1.0*4 = 2.6
		{"medium with full relevance promotes to high", frontier.PriorityMedium, 1.0, frontier.PriorityHigh},
		// 0.7*2 + 0 = 1.4
		{"medium with zero relevance drops to low", frontier.PriorityMedium, 0.0, frontier.PriorityLow},
		// 0.7*1 + 0.3*1.0*4 = 1.9
		{"low with full relevance promotes to medium", frontier.PriorityLow, 1.0, frontier.PriorityMedium},
		// 0.7*1 + 0 = 0.7
		{"low with zero relevance stays low", frontier.PriorityLow, 0.0, frontier.PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := queryaware.BlendPriority(tt.priority, tt.relevance)
			if got != tt.want {
				t.Errorf("BlendPriority(%v, %v) = %v, want %v", tt.priority, tt.relevance, got, tt.want)
			}
		})
	}
}
