package analysis

import "math"

// QRSWidth estimates the duration in milliseconds of the complex around
// values[idx]. Onset and offset are the nearest samples, within the search
// window, whose distance from the local baseline drops to the onset fraction
// of the peak deflection. A side with no crossing collapses onto the peak.
func QRSWidth(values []float64, idx int, p Params) float64 {
	if idx < 0 || idx >= len(values) || p.SampleRate <= 0 {
		return 0
	}

	baseline, ok := flankBaseline(values, idx, p.QRSExclusionSamples, p.QRSFlankSamples)
	if !ok {
		return 0
	}
	threshold := p.QRSOnsetFraction * math.Abs(values[idx]-baseline)

	onset := idx
	for j := idx - 1; j >= 0 && j >= idx-p.QRSSearchSamples; j-- {
		if math.Abs(values[j]-baseline) <= threshold {
			onset = j
			break
		}
	}

	offset := idx
	for j := idx + 1; j < len(values) && j <= idx+p.QRSSearchSamples; j++ {
		if math.Abs(values[j]-baseline) <= threshold {
			offset = j
			break
		}
	}

	return float64(offset-onset) / p.SampleRate * 1000
}

// flankBaseline averages the samples in [idx-excl-flank, idx-excl) and
// (idx+excl, idx+excl+flank], clipped to the slice.
func flankBaseline(values []float64, idx, excl, flank int) (float64, bool) {
	sum, n := 0.0, 0
	for j := max(0, idx-excl-flank); j < idx-excl && j < len(values); j++ {
		sum += values[j]
		n++
	}
	for j := max(0, idx+excl+1); j <= idx+excl+flank && j < len(values); j++ {
		sum += values[j]
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
