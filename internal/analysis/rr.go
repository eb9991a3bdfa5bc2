package analysis

import (
	"sort"

	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/ring"
)

// RRTracker keeps the most recent RR intervals and their median baseline.
type RRTracker struct {
	intervals *ring.Buffer[int64]
	window    int
	scratch   []float64
}

func NewRRTracker(p Params) *RRTracker {
	return &RRTracker{
		intervals: ring.New[int64](p.RRHistorySize),
		window:    p.BaselineWindow,
		scratch:   make([]float64, 0, p.BaselineWindow),
	}
}

// Push records one interval in milliseconds, evicting the oldest when full.
func (r *RRTracker) Push(ms int64) { r.intervals.Push(ms) }

// Baseline is the median of the newest intervals in the baseline window.
func (r *RRTracker) Baseline() (float64, bool) {
	n := min(r.window, r.intervals.Len())
	if n == 0 {
		return 0, false
	}
	r.scratch = r.scratch[:0]
	for i := r.intervals.Len() - n; i < r.intervals.Len(); i++ {
		r.scratch = append(r.scratch, float64(r.intervals.At(i)))
	}
	return median(r.scratch), true
}

func (r *RRTracker) Len() int { return r.intervals.Len() }

func (r *RRTracker) Intervals() []int64 { return r.intervals.Slice() }

func (r *RRTracker) Reset() { r.intervals.Reset() }

// median sorts xs in place.
func median(xs []float64) float64 {
	sort.Float64s(xs)
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}
