package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bump(n, center int, width, amp float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		z := float64(i-center) / width
		values[i] = amp * math.Exp(-0.5*z*z)
	}
	return values
}

func TestExtractSegment(t *testing.T) {
	values := bump(200, 100, 3, 500)

	seg, ok := ExtractSegment(values, 100, 60)
	require.True(t, ok)
	assert.Len(t, seg.Values, 121)
	assert.Equal(t, 60, seg.Center)
	assert.InDelta(t, 1, seg.Values[seg.Center], 1e-12)

	clipped, ok := ExtractSegment(values, 20, 60)
	require.True(t, ok)
	assert.Equal(t, 20, clipped.Center)
	assert.Len(t, clipped.Values, 81)

	_, ok = ExtractSegment(make([]float64, 200), 100, 60)
	assert.False(t, ok, "all-zero segment has no signal")
}

func TestCorrelation(t *testing.T) {
	a, _ := ExtractSegment(bump(200, 100, 3, 500), 100, 60)
	b, _ := ExtractSegment(bump(200, 100, 3, 1500), 100, 60)
	inv, _ := ExtractSegment(bump(200, 100, 3, -500), 100, 60)

	assert.InDelta(t, 1, Correlation(a, b, 10), 1e-9)
	assert.InDelta(t, -1, Correlation(a, inv, 10), 1e-9)

	short := Template{Values: []float64{0, 1, 0}, Center: 1}
	assert.Zero(t, Correlation(a, short, 10))

	flat := Template{Values: make([]float64, 121), Center: 60}
	assert.Zero(t, Correlation(a, flat, 10))
}

func TestCorrelationAlignsOnCenter(t *testing.T) {
	full, _ := ExtractSegment(bump(200, 100, 3, 500), 100, 60)
	// same beat, clipped on the left by the buffer edge
	clipped, _ := ExtractSegment(bump(200, 30, 3, 500), 30, 60)
	assert.InDelta(t, 1, Correlation(full, clipped, 10), 1e-9)
}

func TestMorphologyDissimilarity(t *testing.T) {
	m := NewMorphology(DefaultParams())
	normal, ok := m.Segment(bump(200, 100, 3, 500), 100)
	require.True(t, ok)

	assert.Zero(t, m.Dissimilarity(normal, ok), "empty bank scores as normal")
	assert.Zero(t, m.Dissimilarity(Template{}, false), "no signal scores as normal")

	require.True(t, m.Admit(normal, 0))

	taller, _ := m.Segment(bump(200, 100, 3, 1000), 100)
	assert.InDelta(t, 0, m.Dissimilarity(taller, true), 1e-9)

	inverted, _ := m.Segment(bump(200, 100, 3, -500), 100)
	assert.Equal(t, 1.0, m.Dissimilarity(inverted, true))

	wide, _ := m.Segment(bump(200, 100, 12, 500), 100)
	score := m.Dissimilarity(wide, true)
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 1.0)
}

func TestMorphologyAdmission(t *testing.T) {
	m := NewMorphology(DefaultParams())
	seg, _ := m.Segment(bump(200, 100, 3, 500), 100)

	assert.False(t, m.Admit(seg, 0.3))
	assert.False(t, m.Admit(seg, 0.9))
	assert.False(t, m.Admit(Template{}, 0))
	assert.Zero(t, m.Len())

	assert.True(t, m.Admit(seg, 0.29))
	assert.Equal(t, 1, m.Len())
}

func TestMorphologyBankIsFIFO(t *testing.T) {
	m := NewMorphology(DefaultParams())
	for k := 0; k < 15; k++ {
		seg, ok := m.Segment(bump(200, 100, float64(k+1), 500), 100)
		require.True(t, ok)
		m.Admit(seg, 0)
		require.LessOrEqual(t, m.Len(), 12)
	}

	bank := m.Templates()
	require.Len(t, bank, 12)
	want, _ := ExtractSegment(bump(200, 100, 4, 500), 100, 60)
	assert.Equal(t, want, bank[0], "three oldest templates were evicted")

	m.Reset()
	assert.Zero(t, m.Len())
}
