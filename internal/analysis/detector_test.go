package analysis_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/analysis"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/signal"
)

const fs = 130

func newDetector(t *testing.T, p analysis.Params) *analysis.Detector {
	t.Helper()
	d, err := analysis.NewDetector(p)
	require.NoError(t, err)
	return d
}

func feed(d *analysis.Detector, sim *signal.ECGSim, seconds int) []analysis.Beat {
	var beats []analysis.Beat
	for i := 0; i < seconds*fs; i++ {
		beats = append(beats, d.Process(sim.Next())...)
	}
	return beats
}

func TestDetectorRegularRhythm(t *testing.T) {
	d := newDetector(t, analysis.DefaultParams())
	beats := feed(d, signal.NewECGSim(fs, 60, 0), 120)

	res := d.Snapshot()
	assert.Zero(t, res.PVCCount)
	assert.Empty(t, res.PVCEvents)
	assert.Equal(t, 60, res.HeartRateBPM)
	assert.Greater(t, res.TotalBeatsObserved, 100)
	assert.Len(t, beats, res.TotalBeatsObserved)
	assert.Equal(t, res.TotalBeatsObserved+6, res.DetectedBeatCount, "first six peaks only build history")

	for _, b := range beats {
		assert.Equal(t, analysis.Normal, b.Label)
		assert.Equal(t, int64(1000), b.RRInterval)
		assert.Equal(t, 0, b.PercentagePremature)
	}
	assert.Equal(t, 12, d.TemplateCount())
}

func TestDetectorFlagsPrematureBeat(t *testing.T) {
	d := newDetector(t, analysis.DefaultParams())
	beats := feed(d, signal.NewECGSim(fs, 60, 0, signal.WithEctopy(20, 0.5, 2, 1)), 30)

	var pvcs []analysis.Beat
	for _, b := range beats {
		if b.Label == analysis.PVC {
			pvcs = append(pvcs, b)
		}
	}
	require.Len(t, pvcs, 1)

	pvc := pvcs[0]
	assert.Equal(t, int64(20_000), pvc.Timestamp)
	assert.Equal(t, analysis.HighAmplitude, pvc.Pathway)
	assert.Equal(t, 0.9, pvc.Confidence)
	assert.Equal(t, int64(500), pvc.RRInterval)
	assert.Equal(t, 50, pvc.PercentagePremature)
	assert.Greater(t, pvc.Amplitude, 800.0)

	res := d.Snapshot()
	assert.Equal(t, 1, res.PVCCount)
	require.Len(t, res.PVCEvents, 1)
	assert.Equal(t, pvc, res.PVCEvents[0])
	assert.Equal(t, 60, res.HeartRateBPM, "compensatory pause does not move the median")
}

func TestDetectorPVCEventsAreRecentAndOrdered(t *testing.T) {
	d := newDetector(t, analysis.DefaultParams())
	feed(d, signal.NewECGSim(fs, 60, 0, signal.WithEctopy(5, 0.5, 2, 1)), 120)

	res := d.Snapshot()
	assert.Greater(t, res.PVCCount, 15)
	require.Len(t, res.PVCEvents, 10)
	for i, b := range res.PVCEvents {
		assert.Equal(t, analysis.PVC, b.Label)
		if i > 0 {
			assert.Greater(t, b.Timestamp, res.PVCEvents[i-1].Timestamp)
		}
	}
	assert.Less(t, d.TemplateCount(), 13)
}

func TestDetectorMemoryIsBounded(t *testing.T) {
	p := analysis.DefaultParams()
	p.MaxPeaks = 64
	p.BeatHistorySize = 50
	d := newDetector(t, p)
	sim := signal.NewECGSim(fs, 60, 3, signal.WithEctopy(7, 0.5, 2, 1))

	for minute := 0; minute < 15; minute++ {
		feed(d, sim, 60)
		require.LessOrEqual(t, d.PeakCount(), 64)
		require.LessOrEqual(t, d.RRCount(), 30)
		require.LessOrEqual(t, d.TemplateCount(), 12)
		require.LessOrEqual(t, len(d.Beats()), 50)
		require.LessOrEqual(t, d.WindowLen(), p.WindowSize())
	}
	assert.Equal(t, 30, d.RRCount())

	peaks := d.Peaks()
	for i := 1; i < len(peaks); i++ {
		assert.GreaterOrEqual(t, peaks[i].Time-peaks[i-1].Time, int64(300))
	}
}

func TestDetectorPeakHorizon(t *testing.T) {
	d := newDetector(t, analysis.DefaultParams())
	feed(d, signal.NewECGSim(fs, 60, 0), 300)

	peaks := d.Peaks()
	require.NotEmpty(t, peaks)
	assert.LessOrEqual(t, peaks[len(peaks)-1].Time-peaks[0].Time, int64(120_000))
	assert.LessOrEqual(t, d.PeakCount(), 121)
}

func TestDetectorRestartsHistoryAfterDropout(t *testing.T) {
	d := newDetector(t, analysis.DefaultParams())
	before := signal.NewECGSim(fs, 60, 0, signal.WithAmplitude(700))

	var last int64
	for i := 0; i < 30*fs; i++ {
		s := before.Next()
		d.Process(s)
		last = s.Timestamp
	}
	require.Equal(t, 60, d.Snapshot().HeartRateBPM)

	// strap off for longer than the peak horizon
	for i := 1; i <= 130*fs; i++ {
		d.Process(analysis.Sample{Amplitude: 0, Timestamp: last + int64(math.Round(float64(i)*1000/fs))})
	}
	resume := last + 130_000 + 8

	var after []analysis.Beat
	faster := signal.NewECGSim(fs, 100, 0, signal.WithAmplitude(700), signal.WithStart(resume))
	for i := 0; i < 30*fs; i++ {
		after = append(after, d.Process(faster.Next())...)
	}

	require.NotEmpty(t, after)
	assert.GreaterOrEqual(t, after[0].Timestamp, resume+3_000, "needs fresh history before classifying")
	for _, b := range after {
		assert.Equal(t, analysis.Normal, b.Label, "beat at %d", b.Timestamp)
		assert.Less(t, b.RRInterval, int64(1_000))
	}

	res := d.Snapshot()
	assert.Zero(t, res.PVCCount)
	assert.Equal(t, 100, res.HeartRateBPM)
	for _, p := range d.Peaks() {
		assert.GreaterOrEqual(t, p.Time, resume)
	}
}

func TestDetectorResetMatchesFreshInstance(t *testing.T) {
	newSim := func() *signal.ECGSim {
		return signal.NewECGSim(fs, 72, 4, signal.WithEctopy(9, 0.6, 2, 1))
	}

	used := newDetector(t, analysis.DefaultParams())
	feed(used, newSim(), 45)
	used.Reset()
	assert.Zero(t, used.WindowLen())
	assert.Zero(t, used.PeakCount())
	assert.Equal(t, analysis.DetectionResult{PVCEvents: []analysis.Beat{}}, used.Snapshot())

	fresh := newDetector(t, analysis.DefaultParams())

	got := feed(used, newSim(), 60)
	want := feed(fresh, newSim(), 60)
	assert.Equal(t, want, got)
	assert.Equal(t, fresh.Snapshot(), used.Snapshot())
}

func TestDetectorDegenerateInput(t *testing.T) {
	d := newDetector(t, analysis.DefaultParams())

	for i := 0; i < 129; i++ {
		require.Empty(t, d.Process(analysis.Sample{Amplitude: float64(i % 7), Timestamp: int64(i * 8)}))
	}

	d.Reset()
	for i := 0; i < 10*fs; i++ {
		require.Empty(t, d.Process(analysis.Sample{Amplitude: 250, Timestamp: int64(i * 8)}))
	}
	res := d.Snapshot()
	assert.Zero(t, res.DetectedBeatCount)
	assert.Zero(t, res.HeartRateBPM)
	assert.Zero(t, res.SignalQuality)
}

func TestNewDetectorRejectsInvalidParams(t *testing.T) {
	p := analysis.DefaultParams()
	p.SampleRate = 0
	_, err := analysis.NewDetector(p)
	assert.ErrorIs(t, err, analysis.ErrInvalidSampleRate)
}
