package adaptivestop

import "math"

// contentWindow is a sliding window of per-page unique character counts.
// Gain is the positive delta between successive pages; a window of
// identical counts has zero gain.
type contentWindow struct {
	counts   []int
	capacity int
}

func newContentWindow(capacity int) *contentWindow {
	return &contentWindow{capacity: capacity}
}

// add appends a measurement, evicting the oldest once at capacity.
func (w *contentWindow) add(charCount int) {
	w.counts = append(w.counts, charCount)
	if len(w.counts) > w.capacity {
		w.counts = w.counts[1:]
	}
}

// hasSufficientData reports whether enough measurements exist to judge gain.
func (w *contentWindow) hasSufficientData() bool {
	return len(w.counts) >= 3 || len(w.counts) == w.capacity
}

// averageGain returns the mean positive delta between successive
// measurements, in chronological order. Returns +Inf with fewer than two
// measurements so an underfilled window never triggers a stop.
func (w *contentWindow) averageGain() float64 {
	if len(w.counts) < 2 {
		return math.Inf(1)
	}

	var totalGain float64
	for i := 1; i < len(w.counts); i++ {
		delta := float64(w.counts[i] - w.counts[i-1])
		if delta > 0 {
			totalGain += delta
		}
	}

	return totalGain / float64(len(w.counts)-1)
}

// latest returns the most recent measurement and whether one exists.
func (w *contentWindow) latest() (int, bool) {
	if len(w.counts) == 0 {
		return 0, false
	}
	return w.counts[len(w.counts)-1], true
}

// full reports whether the window is at capacity.
func (w *contentWindow) full() bool {
	return len(w.counts) == w.capacity
}
