package analysis

import "math"

// BPM converts an RR interval in milliseconds to beats per minute.
func BPM(rrMs float64) float64 {
	if rrMs <= 0 {
		return 0
	}
	return 60000 / rrMs
}

// Plausible reports whether rrMs corresponds to a heart rate inside the
// configured physiological bounds.
func (p Params) Plausible(rrMs float64) bool {
	bpm := BPM(rrMs)
	return bpm >= p.MinHeartRate && bpm <= p.MaxHeartRate
}

// HeartRate returns the rounded rate for rrMs, or 0 when it is outside the
// physiological bounds.
func (p Params) HeartRate(rrMs float64) int {
	if !p.Plausible(rrMs) {
		return 0
	}
	return int(math.Round(BPM(rrMs)))
}
