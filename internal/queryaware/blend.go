package queryaware

import (
	"github.com/jonesrussell/gospider/internal/frontier"
)

// Blending constants. Strategy-driven priority dominates; relevance
// nudges the final bucket.
const (
	priorityWeight  = 0.7
	relevanceWeight = 0.3
	relevanceScale  = 4.0

	criticalThreshold = 3.5
	highThreshold     = 2.5
	mediumThreshold   = 1.5
)

// BlendPriority combines a strategy-assigned priority with a relevance
// score and re-maps the blend onto the priority scale. The priority
// contributes 70% and the relevance, scaled to the priority range, 30%.
func BlendPriority(p frontier.Priority, relevance float64) frontier.Priority {
	blended := priorityWeight*p.Score() + relevanceWeight*relevance*relevanceScale

	switch {
	case blended >= criticalThreshold:
		return frontier.PriorityCritical
	case blended >= highThreshold:
		return frontier.PriorityHigh
	case blended >= mediumThreshold:
		return frontier.PriorityMedium
	default:
		return frontier.PriorityLow
	}
}
