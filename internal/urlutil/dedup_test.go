package urlutil_test

import (
	"fmt"
	"testing"

	"github.com/jonesrussell/gospider/internal/urlutil"
)

func TestDedupTracker_FirstSightingIsNew(t *testing.T) {
	tracker := urlutil.NewDefaultDedupTracker()

	if tracker.IsDuplicateAndMark("https://example.com/page") {
		t.Error("first sighting reported as duplicate")
	}

	if !tracker.IsDuplicateAndMark("https://example.com/page") {
		t.Error("second sighting not reported as duplicate")
	}

	if !tracker.IsDuplicateAndMark("https://example.com/page") {
		t.Error("third sighting not reported as duplicate")
	}
}

func TestDedupTracker_NormalizedEquivalence(t *testing.T) {
	tracker := urlutil.NewDefaultDedupTracker()

	if tracker.IsDuplicateAndMark("HTTP://Example.com/path?b=2&a=1") {
		t.Error("first sighting reported as duplicate")
	}

	// Equivalent under normalization, so a duplicate.
	if !tracker.IsDuplicateAndMark("https://example.com/path?a=1&b=2") {
		t.Error("normalized-equivalent URL not reported as duplicate")
	}
}

func TestDedupTracker_DifferentPathsSameHost(t *testing.T) {
	tracker := urlutil.NewDefaultDedupTracker()

	if tracker.IsDuplicateAndMark("https://example.com/page-a") {
		t.Error("page-a first sighting reported as duplicate")
	}

	if tracker.IsDuplicateAndMark("https://example.com/page-b") {
		t.Error("page-b on same host incorrectly reported as duplicate")
	}
}

func TestDedupTracker_InvalidURLTreatedAsDuplicate(t *testing.T) {
	tracker := urlutil.NewDefaultDedupTracker()

	if !tracker.IsDuplicateAndMark("://bad") {
		t.Error("unnormalizable URL should be reported as duplicate")
	}
}

func TestDedupTracker_Reset(t *testing.T) {
	tracker := urlutil.NewDefaultDedupTracker()

	tracker.IsDuplicateAndMark("https://example.com/page")
	tracker.Reset()

	if tracker.IsDuplicateAndMark("https://example.com/page") {
		t.Error("sighting after reset reported as duplicate")
	}
}

func TestDedupTracker_SeenDoesNotMark(t *testing.T) {
	tracker := urlutil.NewDefaultDedupTracker()

	if tracker.Seen("https://example.com/page") {
		t.Error("Seen() reported unmarked URL as seen")
	}

	if tracker.IsDuplicateAndMark("https://example.com/page") {
		t.Error("Seen() should not have marked the URL")
	}

	if !tracker.Seen("https://example.com/page") {
		t.Error("Seen() did not report marked URL")
	}
}

func TestNewDedupTracker_InvalidConfig(t *testing.T) {
	tests := []struct {
		name     string
		capacity uint
		fpp      float64
	}{
		{"zero capacity", 0, 0.001},
		{"zero rate", 1000, 0},
		{"rate of one", 1000, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := urlutil.NewDedupTracker(tt.capacity, tt.fpp); err == nil {
				t.Errorf("NewDedupTracker(%d, %v) expected error, got nil", tt.capacity, tt.fpp)
			}
		})
	}
}

func TestDedupTracker_ManyDistinctURLs(t *testing.T) {
	tracker := urlutil.NewDefaultDedupTracker()

	duplicates := 0
	for i := 0; i < 1000; i++ {
		u := fmt.Sprintf("https://example.com/page-%d", i)
		if tracker.IsDuplicateAndMark(u) {
			duplicates++
		}
	}

	// At a 0.1% false positive rate, 1000 distinct URLs should nearly
	// always all be admitted; tolerate a handful of bloom collisions.
	if duplicates > 5 {
		t.Errorf("too many false duplicates among distinct URLs: %d", duplicates)
	}
}
