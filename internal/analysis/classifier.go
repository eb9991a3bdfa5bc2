package analysis

import (
	"fmt"
	"math"
)

type Label int

const (
	Normal Label = iota
	PVC
)

func (l Label) String() string {
	if l == PVC {
		return "pvc"
	}
	return "normal"
}

func (l Label) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *Label) UnmarshalText(b []byte) error {
	switch string(b) {
	case "normal":
		*l = Normal
	case "pvc":
		*l = PVC
	default:
		return fmt.Errorf("unknown beat label %q", b)
	}
	return nil
}

// Pathway names the rule that labelled a beat PVC.
type Pathway int

const (
	PathwayNone Pathway = iota
	HighAmplitude
	WideQRS
	PrematureMorphology
)

var pathwayNames = map[Pathway]string{
	PathwayNone:         "none",
	HighAmplitude:       "high-amplitude",
	WideQRS:             "wide-qrs",
	PrematureMorphology: "premature-morphology",
}

func (p Pathway) String() string {
	if s, ok := pathwayNames[p]; ok {
		return s
	}
	return fmt.Sprintf("pathway(%d)", int(p))
}

func (p Pathway) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Pathway) UnmarshalText(b []byte) error {
	for k, v := range pathwayNames {
		if v == string(b) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("unknown pathway %q", b)
}

// Beat is one classified heartbeat.
type Beat struct {
	Timestamp           int64   `json:"timestamp"`
	RRInterval          int64   `json:"rr_interval"`
	QRSWidthMs          float64 `json:"qrs_width_ms"`
	Amplitude           float64 `json:"amplitude"`
	MorphologyScore     float64 `json:"morphology_score"`
	Confidence          float64 `json:"confidence"`
	Label               Label   `json:"label"`
	Pathway             Pathway `json:"pathway"`
	PercentagePremature int     `json:"percentage_premature"`
}

// Features are the per-beat measurements the rules look at.
type Features struct {
	RRInterval float64
	BaselineRR float64
	Amplitude  float64
	QRSWidthMs float64
	Morphology float64
}

// RRRatio is the current interval relative to the baseline, 1 when the
// baseline is unknown.
func (f Features) RRRatio() float64 {
	if f.BaselineRR <= 0 {
		return 1
	}
	return f.RRInterval / f.BaselineRR
}

// Rule is one row of the decision table.
type Rule struct {
	Pathway    Pathway
	Confidence float64
	Match      func(Features) bool
}

// Classifier evaluates its rules in order; the first match labels the beat.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds the standard three-pathway table from p.
func NewClassifier(p Params) *Classifier {
	premature := func(f Features) bool { return f.RRRatio() < p.PrematureRatio }

	return &Classifier{rules: []Rule{
		{
			Pathway:    HighAmplitude,
			Confidence: p.HighAmplitudeConfidence,
			Match: func(f Features) bool {
				return f.Amplitude > p.VeryHighAmplitude || (f.Amplitude > p.HighAmplitude && premature(f))
			},
		},
		{
			Pathway:    WideQRS,
			Confidence: p.WideQRSConfidence,
			Match: func(f Features) bool {
				return f.QRSWidthMs > p.WideQRSMs && premature(f)
			},
		},
		{
			Pathway:    PrematureMorphology,
			Confidence: p.MorphologyConfidence,
			Match: func(f Features) bool {
				return f.RRRatio() < p.VeryPrematureRatio && f.Morphology > p.MorphologyThreshold
			},
		},
	}}
}

// NewClassifierWithRules is for callers that supply their own table.
func NewClassifierWithRules(rules []Rule) *Classifier {
	return &Classifier{rules: append([]Rule(nil), rules...)}
}

func (c *Classifier) Classify(f Features) (Label, Pathway, float64) {
	for _, r := range c.rules {
		if r.Match(f) {
			return PVC, r.Pathway, r.Confidence
		}
	}
	return Normal, PathwayNone, 0
}

// PercentagePremature is how much earlier than the baseline the beat came,
// in percent. Late beats give negative values.
func PercentagePremature(rrMs, baselineMs float64) int {
	if baselineMs <= 0 {
		return 0
	}
	return int(math.Round(100 * (1 - rrMs/baselineMs)))
}
