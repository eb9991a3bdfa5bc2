package burden

import (
	"math"
	"time"

	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/analysis"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/ring"
)

type Config struct {
	Window    time.Duration `mapstructure:"window"`
	Retention time.Duration `mapstructure:"retention"`
	MaxBeats  int           `mapstructure:"max_beats"`
	MaxPoints int           `mapstructure:"max_points"`
}

func DefaultConfig() Config {
	return Config{
		Window:    5 * time.Minute,
		Retention: 2 * time.Hour,
		MaxBeats:  1000,
		MaxPoints: 7200,
	}
}

// ForHeartRate returns c with MaxBeats raised, if needed, so that a full
// window of beats at maxBPM fits in the buffer.
func (c Config) ForHeartRate(maxBPM float64) Config {
	if n := int(math.Ceil(c.Window.Minutes()*maxBPM)) + 1; n > c.MaxBeats {
		c.MaxBeats = n
	}
	return c
}

// DataPoint is one sliding-window burden sample kept for trend display.
type DataPoint struct {
	Timestamp     int64   `json:"timestamp"`
	WindowMinutes float64 `json:"window_minutes"`
	TotalBeats    int     `json:"total_beats"`
	PVCBeats      int     `json:"pvc_beats"`
	BurdenPercent float64 `json:"burden_percent"`
	Confidence    float64 `json:"confidence"`
}

// Tracker aggregates finalized beats. It keeps only the beats inside the
// sliding window and a bounded trend history. Not safe for concurrent use.
type Tracker struct {
	cfg     Config
	beats   *ring.Buffer[analysis.Beat]
	history *ring.Buffer[DataPoint]
	total   int
	pvc     int
}

// NewTracker sizes the beat buffer for the configured window at the
// fastest plausible rhythm.
func NewTracker(cfg Config) *Tracker {
	cfg = cfg.ForHeartRate(analysis.DefaultParams().MaxHeartRate)
	return &Tracker{
		cfg:     cfg,
		beats:   ring.New[analysis.Beat](cfg.MaxBeats),
		history: ring.New[DataPoint](cfg.MaxPoints),
	}
}

func (t *Tracker) Add(beats ...analysis.Beat) {
	for _, b := range beats {
		t.beats.Push(b)
		t.total++
		if b.Label == analysis.PVC {
			t.pvc++
		}
		window := t.cfg.Window.Milliseconds()
		t.beats.DropWhile(func(old analysis.Beat) bool { return b.Timestamp-old.Timestamp > window })
	}
}

// Global is the burden since construction or the last Reset.
func (t *Tracker) Global() Snapshot { return Global(t.total, t.pvc) }

func (t *Tracker) Window(now int64) WindowSnapshot {
	return Window(t.beats.Slice(), now, t.cfg.Window.Milliseconds())
}

// Tick records the current sliding-window burden in the history and drops
// points older than the retention period.
func (t *Tracker) Tick(now int64) DataPoint {
	ws := t.Window(now)
	dp := DataPoint{
		Timestamp:     now,
		WindowMinutes: ws.WindowMinutes,
		TotalBeats:    ws.TotalBeats,
		PVCBeats:      ws.PVCBeats,
		BurdenPercent: ws.BurdenPercent,
		Confidence:    ws.Confidence,
	}
	t.history.Push(dp)
	retention := t.cfg.Retention.Milliseconds()
	t.history.DropWhile(func(p DataPoint) bool { return now-p.Timestamp > retention })
	return dp
}

// History returns the retained data points, oldest first.
func (t *Tracker) History() []DataPoint { return t.history.Slice() }

func (t *Tracker) Reset() {
	t.beats.Reset()
	t.history.Reset()
	t.total = 0
	t.pvc = 0
}
