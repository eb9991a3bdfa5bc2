package analysis

import "math"

type Polarity int

const (
	Positive Polarity = iota
	Negative
)

func (p Polarity) String() string {
	if p == Negative {
		return "negative"
	}
	return "positive"
}

// Peak is a candidate R-peak found in one detection pass. Index refers to the
// window copy the pass scanned and is meaningless afterwards.
type Peak struct {
	Time      int64
	Index     int
	Amplitude float64
	Polarity  Polarity
}

// PeakDetector finds extrema beyond mean ± k·σ of the current window.
type PeakDetector struct {
	minSamples int
	k          float64
	refractory int
	gapMs      int64
	radius     int
	violations int
}

func NewPeakDetector(p Params) *PeakDetector {
	return &PeakDetector{
		minSamples: p.MinSamples,
		k:          p.ThresholdK,
		refractory: p.RefractorySamples(),
		gapMs:      int64(math.Round(p.RefractoryMs)),
		radius:     p.DominanceRadius,
		violations: p.MaxDominanceViolations,
	}
}

// Detect scans values for peaks at least the refractory gap after last.
// When haveLast is false every qualifying peak is eligible. Peaks are
// returned in time order.
func (d *PeakDetector) Detect(values []float64, times []int64, last int64, haveLast bool) []Peak {
	n := len(values)
	if n < d.minSamples || n != len(times) {
		return nil
	}

	mean, std := meanStd(values)
	upper := mean + d.k*std
	lower := mean - d.k*std

	var peaks []Peak
	for i := d.refractory; i < n-d.refractory; i++ {
		v := values[i]

		var pol Polarity
		switch {
		case v > upper && v >= values[i-1] && v >= values[i+1]:
			pol = Positive
		case v < lower && v <= values[i-1] && v <= values[i+1]:
			pol = Negative
		default:
			continue
		}

		if !d.dominant(values, i, pol) {
			continue
		}
		if haveLast && times[i]-last < d.gapMs {
			continue
		}

		peaks = append(peaks, Peak{
			Time:      times[i],
			Index:     i,
			Amplitude: math.Abs(v),
			Polarity:  pol,
		})
		last, haveLast = times[i], true
	}
	return peaks
}

// dominant tolerates up to d.violations neighbours that reach the candidate.
func (d *PeakDetector) dominant(values []float64, i int, pol Polarity) bool {
	lo := max(0, i-d.radius)
	hi := min(len(values)-1, i+d.radius)

	bad := 0
	for j := lo; j <= hi; j++ {
		if j == i {
			continue
		}
		if (pol == Positive && values[j] >= values[i]) || (pol == Negative && values[j] <= values[i]) {
			bad++
			if bad > d.violations {
				return false
			}
		}
	}
	return true
}

// meanStd returns the population mean and standard deviation.
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(values)))
}
