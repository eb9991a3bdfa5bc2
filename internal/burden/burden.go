package burden

import (
	"math"

	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/analysis"
)

type Category string

const (
	Low      Category = "low"
	Moderate Category = "moderate"
	High     Category = "high"
)

// Snapshot is a PVC burden over some set of classified beats.
type Snapshot struct {
	TotalBeats    int      `json:"total_beats"`
	PVCBeats      int      `json:"pvc_beats"`
	BurdenPercent float64  `json:"burden_percent"`
	Category      Category `json:"category"`
	Confidence    float64  `json:"confidence"`
}

// WindowSnapshot is a Snapshot restricted to beats in [Start, End].
type WindowSnapshot struct {
	Snapshot
	WindowMinutes    float64 `json:"window_minutes"`
	Start            int64   `json:"start"`
	End              int64   `json:"end"`
	AverageHeartRate int     `json:"average_heart_rate"`
}

// Global is the burden of pvc out of total beats, rounded to one decimal.
func Global(total, pvc int) Snapshot {
	pct := Percent(total, pvc)
	return Snapshot{
		TotalBeats:    max(total, 0),
		PVCBeats:      max(pvc, 0),
		BurdenPercent: pct,
		Category:      Categorize(pct),
		Confidence:    Confidence(total),
	}
}

// Percent is 100·pvc/total rounded to one decimal and clamped to [0,100].
// It is 0 when there are no beats.
func Percent(total, pvc int) float64 {
	if total <= 0 || pvc <= 0 {
		return 0
	}
	pct := math.Round(1000*float64(pvc)/float64(total)) / 10
	return math.Min(pct, 100)
}

func Categorize(pct float64) Category {
	switch {
	case pct > 20:
		return High
	case pct >= 5:
		return Moderate
	}
	return Low
}

// Confidence grows stepwise with the number of beats behind an estimate.
func Confidence(beats int) float64 {
	switch {
	case beats >= 200:
		return 0.9
	case beats >= 100:
		return 0.7
	case beats >= 50:
		return 0.5
	case beats >= 20:
		return 0.3
	}
	return 0.1
}

// Window computes the burden over beats within window milliseconds before
// now. beats must be in time order.
func Window(beats []analysis.Beat, now, window int64) WindowSnapshot {
	start := now - window
	var total, pvc int
	for _, b := range beats {
		if b.Timestamp < start || b.Timestamp > now {
			continue
		}
		total++
		if b.Label == analysis.PVC {
			pvc++
		}
	}

	ws := WindowSnapshot{
		Snapshot:      Global(total, pvc),
		WindowMinutes: float64(window) / 60000,
		Start:         start,
		End:           now,
	}
	if window > 0 {
		ws.AverageHeartRate = int(math.Round(float64(total) * 60000 / float64(window)))
	}
	return ws
}
