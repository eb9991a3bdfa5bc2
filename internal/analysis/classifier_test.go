package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifierPathways(t *testing.T) {
	c := NewClassifier(DefaultParams())

	tests := []struct {
		name       string
		f          Features
		label      Label
		pathway    Pathway
		confidence float64
	}{
		{"normal", Features{RRInterval: 1000, BaselineRR: 1000, Amplitude: 450, QRSWidthMs: 80}, Normal, PathwayNone, 0},
		{"very tall on time", Features{RRInterval: 1000, BaselineRR: 1000, Amplitude: 850, QRSWidthMs: 80}, PVC, HighAmplitude, 0.9},
		{"tall and premature", Features{RRInterval: 700, BaselineRR: 1000, Amplitude: 650, QRSWidthMs: 80}, PVC, HighAmplitude, 0.9},
		{"tall but on time", Features{RRInterval: 950, BaselineRR: 1000, Amplitude: 650, QRSWidthMs: 80}, Normal, PathwayNone, 0},
		{"wide and premature", Features{RRInterval: 700, BaselineRR: 1000, Amplitude: 450, QRSWidthMs: 140}, PVC, WideQRS, 0.8},
		{"wide but on time", Features{RRInterval: 1000, BaselineRR: 1000, Amplitude: 450, QRSWidthMs: 140}, Normal, PathwayNone, 0},
		{"very premature and odd shape", Features{RRInterval: 600, BaselineRR: 1000, Amplitude: 450, QRSWidthMs: 80, Morphology: 0.5}, PVC, PrematureMorphology, 0.7},
		{"very premature, normal shape", Features{RRInterval: 600, BaselineRR: 1000, Amplitude: 450, QRSWidthMs: 80, Morphology: 0.1}, Normal, PathwayNone, 0},
		{"odd shape, mildly premature", Features{RRInterval: 700, BaselineRR: 1000, Amplitude: 450, QRSWidthMs: 80, Morphology: 0.9}, Normal, PathwayNone, 0},
		{"precedence: tall beats wide", Features{RRInterval: 600, BaselineRR: 1000, Amplitude: 700, QRSWidthMs: 160, Morphology: 0.9}, PVC, HighAmplitude, 0.9},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			label, pathway, confidence := c.Classify(tc.f)
			assert.Equal(t, tc.label, label)
			assert.Equal(t, tc.pathway, pathway)
			assert.Equal(t, tc.confidence, confidence)
		})
	}
}

func TestClassifierCustomRules(t *testing.T) {
	c := NewClassifierWithRules([]Rule{{
		Pathway:    WideQRS,
		Confidence: 0.5,
		Match:      func(f Features) bool { return f.QRSWidthMs > 100 },
	}})
	label, pathway, confidence := c.Classify(Features{QRSWidthMs: 101})
	assert.Equal(t, PVC, label)
	assert.Equal(t, WideQRS, pathway)
	assert.Equal(t, 0.5, confidence)
}

func TestPercentagePremature(t *testing.T) {
	assert.Equal(t, 50, PercentagePremature(500, 1000))
	assert.Equal(t, 0, PercentagePremature(1000, 1000))
	assert.Equal(t, -50, PercentagePremature(1500, 1000))
	assert.Equal(t, 0, PercentagePremature(500, 0))
	assert.Equal(t, 1.0, Features{RRInterval: 500}.RRRatio())
}

func TestBeatJSON(t *testing.T) {
	b := Beat{Timestamp: 1000, RRInterval: 500, Label: PVC, Pathway: HighAmplitude, PercentagePremature: 50}
	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"label":"pvc"`)
	assert.Contains(t, string(data), `"pathway":"high-amplitude"`)

	var back Beat
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, b, back)

	assert.Error(t, json.Unmarshal([]byte(`{"label":"afib"}`), &back))
}
