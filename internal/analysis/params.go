package analysis

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidSampleRate  = errors.New("sample rate must be positive")
	ErrInvalidWindow      = errors.New("window must hold at least the minimum sample count")
	ErrInvalidRefractory  = errors.New("refractory distance must be at least one sample and fit inside the window")
	ErrInvalidHistory     = errors.New("rr history must cover the baseline window and minimum history")
	ErrInvalidHeartRate   = errors.New("heart rate bounds must satisfy 0 < min < max")
	ErrInvalidRatio       = errors.New("prematurity ratios must be in (0, 1]")
	ErrInvalidConfidence  = errors.New("pathway confidences must be in (0, 1]")
	ErrInvalidBankSize    = errors.New("template bank and beat history sizes must be positive")
	ErrInvalidDetectEvery = errors.New("detection stride must be positive")
)

// Params is the threshold table for the whole pipeline. Amplitudes are in
// microvolts, durations in milliseconds unless the name says otherwise.
type Params struct {
	SampleRate    float64 `mapstructure:"sample_rate"`
	WindowSeconds float64 `mapstructure:"window_seconds"`
	DetectEvery   int     `mapstructure:"detect_every"`
	MinSamples    int     `mapstructure:"min_samples"`

	ThresholdK             float64 `mapstructure:"threshold_k"`
	RefractoryMs           float64 `mapstructure:"refractory_ms"`
	DominanceRadius        int     `mapstructure:"dominance_radius"`
	MaxDominanceViolations int     `mapstructure:"max_dominance_violations"`
	PeakHorizonSeconds     float64 `mapstructure:"peak_horizon_seconds"`
	MaxPeaks               int     `mapstructure:"max_peaks"`

	QRSExclusionSamples int     `mapstructure:"qrs_exclusion_samples"`
	QRSFlankSamples     int     `mapstructure:"qrs_flank_samples"`
	QRSSearchSamples    int     `mapstructure:"qrs_search_samples"`
	QRSOnsetFraction    float64 `mapstructure:"qrs_onset_fraction"`

	TemplateHalfWidth  int     `mapstructure:"template_half_width"`
	TemplateBankSize   int     `mapstructure:"template_bank_size"`
	TemplateAdmitBelow float64 `mapstructure:"template_admit_below"`
	MinOverlap         int     `mapstructure:"min_overlap"`

	RRHistorySize  int     `mapstructure:"rr_history_size"`
	BaselineWindow int     `mapstructure:"baseline_window"`
	MinHistory     int     `mapstructure:"min_history"`
	MinHeartRate   float64 `mapstructure:"min_heart_rate"`
	MaxHeartRate   float64 `mapstructure:"max_heart_rate"`

	VeryHighAmplitude   float64 `mapstructure:"very_high_amplitude"`
	HighAmplitude       float64 `mapstructure:"high_amplitude"`
	PrematureRatio      float64 `mapstructure:"premature_ratio"`
	VeryPrematureRatio  float64 `mapstructure:"very_premature_ratio"`
	WideQRSMs           float64 `mapstructure:"wide_qrs_ms"`
	MorphologyThreshold float64 `mapstructure:"morphology_threshold"`

	HighAmplitudeConfidence float64 `mapstructure:"high_amplitude_confidence"`
	WideQRSConfidence       float64 `mapstructure:"wide_qrs_confidence"`
	MorphologyConfidence    float64 `mapstructure:"morphology_confidence"`

	QualityWindowSeconds float64 `mapstructure:"quality_window_seconds"`
	QualityReference     float64 `mapstructure:"quality_reference"`

	BeatHistorySize int `mapstructure:"beat_history_size"`
	PVCEventLimit   int `mapstructure:"pvc_event_limit"`
}

// DefaultParams returns the table tuned for a Polar H10 chest strap at 130 Hz.
func DefaultParams() Params {
	return Params{
		SampleRate:    130,
		WindowSeconds: 3,
		DetectEvery:   10,
		MinSamples:    130,

		ThresholdK:             1.4,
		RefractoryMs:           300,
		DominanceRadius:        5,
		MaxDominanceViolations: 1,
		PeakHorizonSeconds:     120,
		MaxPeaks:               512,

		QRSExclusionSamples: 10,
		QRSFlankSamples:     10,
		QRSSearchSamples:    20,
		QRSOnsetFraction:    0.1,

		TemplateHalfWidth:  60,
		TemplateBankSize:   12,
		TemplateAdmitBelow: 0.3,
		MinOverlap:         10,

		RRHistorySize:  30,
		BaselineWindow: 8,
		MinHistory:     5,
		MinHeartRate:   40,
		MaxHeartRate:   200,

		VeryHighAmplitude:   800,
		HighAmplitude:       600,
		PrematureRatio:      0.75,
		VeryPrematureRatio:  0.65,
		WideQRSMs:           120,
		MorphologyThreshold: 0.4,

		HighAmplitudeConfidence: 0.9,
		WideQRSConfidence:       0.8,
		MorphologyConfidence:    0.7,

		QualityWindowSeconds: 1,
		QualityReference:     10,

		BeatHistorySize: 1200,
		PVCEventLimit:   10,
	}
}

// WithSampleRate returns a copy of p running at hz. Sample-count derived
// values are recomputed from the durations, so the table stays consistent.
func (p Params) WithSampleRate(hz float64) Params {
	p.SampleRate = hz
	p.MinSamples = int(math.Round(hz))
	return p
}

// WindowSize is the Sample Window capacity in samples.
func (p Params) WindowSize() int {
	return int(math.Round(p.WindowSeconds * p.SampleRate))
}

// RefractorySamples is the minimum peak separation in samples.
func (p Params) RefractorySamples() int {
	return int(math.Round(p.RefractoryMs / 1000 * p.SampleRate))
}

// QualityWindow is the number of trailing samples used by SignalQuality.
func (p Params) QualityWindow() int {
	return int(math.Round(p.QualityWindowSeconds * p.SampleRate))
}

func (p Params) Validate() error {
	if p.SampleRate <= 0 || math.IsNaN(p.SampleRate) || math.IsInf(p.SampleRate, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRate, p.SampleRate)
	}
	if p.DetectEvery <= 0 {
		return ErrInvalidDetectEvery
	}
	if p.MinSamples <= 0 || p.WindowSize() < p.MinSamples {
		return fmt.Errorf("%w: window %d < min %d", ErrInvalidWindow, p.WindowSize(), p.MinSamples)
	}
	if r := p.RefractorySamples(); r < 1 || 2*r >= p.MinSamples {
		return fmt.Errorf("%w: %d samples", ErrInvalidRefractory, r)
	}
	if p.BaselineWindow <= 0 || p.MinHistory <= 0 || p.RRHistorySize < p.BaselineWindow || p.RRHistorySize < p.MinHistory {
		return ErrInvalidHistory
	}
	if p.MinHeartRate <= 0 || p.MaxHeartRate <= p.MinHeartRate {
		return ErrInvalidHeartRate
	}
	for _, r := range []float64{p.PrematureRatio, p.VeryPrematureRatio} {
		if r <= 0 || r > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidRatio, r)
		}
	}
	for _, c := range []float64{p.HighAmplitudeConfidence, p.WideQRSConfidence, p.MorphologyConfidence} {
		if c <= 0 || c > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidConfidence, c)
		}
	}
	if p.TemplateBankSize <= 0 || p.BeatHistorySize <= 0 || p.MaxPeaks <= 0 {
		return ErrInvalidBankSize
	}
	return nil
}
