package analysis

import (
	"math"

	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/ring"
)

// Template is a waveform snippet normalised to unit peak magnitude. Center is
// the offset of the R-peak inside Values.
type Template struct {
	Values []float64
	Center int
}

// ExtractSegment copies values[idx-half : idx+half] (clipped) and scales it
// by its maximum magnitude. It reports false for an all-zero segment.
func ExtractSegment(values []float64, idx, half int) (Template, bool) {
	if idx < 0 || idx >= len(values) {
		return Template{}, false
	}
	lo := max(0, idx-half)
	hi := min(len(values), idx+half+1)

	peak := 0.0
	for _, v := range values[lo:hi] {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak == 0 {
		return Template{}, false
	}

	seg := make([]float64, hi-lo)
	for i, v := range values[lo:hi] {
		seg[i] = v / peak
	}
	return Template{Values: seg, Center: idx - lo}, true
}

// Correlation is the Pearson coefficient of a and b over the span both
// cover, aligned on their centres. It is 0 when the overlap is shorter than
// minOverlap or either side is constant.
func Correlation(a, b Template, minOverlap int) float64 {
	left := min(a.Center, b.Center)
	right := min(len(a.Values)-a.Center, len(b.Values)-b.Center)
	n := left + right
	if n < minOverlap || n <= 1 {
		return 0
	}
	x := a.Values[a.Center-left : a.Center+right]
	y := b.Values[b.Center-left : b.Center+right]

	var sx, sy float64
	for i := 0; i < n; i++ {
		sx += x[i]
		sy += y[i]
	}
	mx, my := sx/float64(n), sy/float64(n)

	var cov, vx, vy float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-mx, y[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}

// Morphology scores beats against a bank of recent normal templates.
type Morphology struct {
	bank       *ring.Buffer[Template]
	half       int
	minOverlap int
	admitBelow float64
}

func NewMorphology(p Params) *Morphology {
	return &Morphology{
		bank:       ring.New[Template](p.TemplateBankSize),
		half:       p.TemplateHalfWidth,
		minOverlap: p.MinOverlap,
		admitBelow: p.TemplateAdmitBelow,
	}
}

// Segment extracts the scoring segment around values[idx].
func (m *Morphology) Segment(values []float64, idx int) (Template, bool) {
	return ExtractSegment(values, idx, m.half)
}

// Dissimilarity is 1 minus the best correlation against the bank, in [0,1].
// An empty bank or a segment without signal scores 0.
func (m *Morphology) Dissimilarity(seg Template, ok bool) float64 {
	if !ok || m.bank.Len() == 0 {
		return 0
	}
	best := math.Inf(-1)
	for i := 0; i < m.bank.Len(); i++ {
		best = math.Max(best, Correlation(seg, m.bank.At(i), m.minOverlap))
	}
	return clamp01(1 - best)
}

// Admit stores seg as a normal template when the beat's confidence is below
// the admission threshold. Abnormal or ambiguous beats never enter the bank.
func (m *Morphology) Admit(seg Template, confidence float64) bool {
	if len(seg.Values) == 0 || confidence >= m.admitBelow {
		return false
	}
	m.bank.Push(seg)
	return true
}

func (m *Morphology) Len() int { return m.bank.Len() }

func (m *Morphology) Templates() []Template { return m.bank.Slice() }

func (m *Morphology) Reset() { m.bank.Reset() }

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
