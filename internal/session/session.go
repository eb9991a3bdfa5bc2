package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/analysis"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/burden"
)

var ErrClosed = errors.New("session closed")

// Burden bundles the whole-session and sliding-window burden.
type Burden struct {
	Global burden.Snapshot       `json:"global"`
	Window burden.WindowSnapshot `json:"window"`
}

// Status describes a session for control replies.
type Status struct {
	SessionID  string    `json:"session_id"`
	SampleRate float64   `json:"sample_rate"`
	Samples    int64     `json:"samples"`
	LastSample int64     `json:"last_sample"`
	StartedAt  time.Time `json:"started_at"`
	Closed     bool      `json:"closed"`
}

// Session is one monitoring run: a detector plus its burden tracker.
// All methods are safe for concurrent use; Ingest and Reset never
// interleave.
type Session struct {
	mu sync.Mutex

	id      uuid.UUID
	log     *slog.Logger
	started time.Time

	params  analysis.Params
	burden  burden.Config
	det     *analysis.Detector
	tracker *burden.Tracker

	samples int64
	last    int64
	closed  bool
}

type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

func WithBurdenConfig(cfg burden.Config) Option {
	return func(s *Session) { s.burden = cfg }
}

func New(p analysis.Params, opts ...Option) (*Session, error) {
	det, err := analysis.NewDetector(p)
	if err != nil {
		return nil, fmt.Errorf("new detector: %w", err)
	}
	s := &Session{
		id:      uuid.New(),
		log:     slog.Default(),
		started: time.Now().UTC(),
		params:  p,
		burden:  burden.DefaultConfig(),
		det:     det,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracker = burden.NewTracker(s.burden.ForHeartRate(p.MaxHeartRate))
	s.log = s.log.With("session", s.id.String())
	s.log.Info("session started", "sample_rate", p.SampleRate)
	return s, nil
}

func (s *Session) ID() uuid.UUID { return s.id }

// Ingest runs samples through the detector in order and returns the beats
// classified along the way. It is a no-op after Close.
func (s *Session) Ingest(samples ...analysis.Sample) []analysis.Beat {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	var beats []analysis.Beat
	for _, smp := range samples {
		beats = append(beats, s.det.Process(smp)...)
		s.last = smp.Timestamp
	}
	s.samples += int64(len(samples))
	s.tracker.Add(beats...)

	for _, b := range beats {
		if b.Label == analysis.PVC {
			s.log.Debug("pvc detected", "ts", b.Timestamp, "pathway", b.Pathway, "rr", b.RRInterval, "premature", b.PercentagePremature)
		}
	}
	return beats
}

// Reset clears the detector and burden history.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.log.Info("session reset")
}

func (s *Session) resetLocked() {
	s.det.Reset()
	s.tracker.Reset()
	s.samples = 0
	s.last = 0
}

// SetSamplingRate rebuilds the detector for hz. All history is dropped
// because every window and distance is derived from the rate.
func (s *Session) SetSamplingRate(hz float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	p := s.params.WithSampleRate(hz)
	det, err := analysis.NewDetector(p)
	if err != nil {
		return fmt.Errorf("sampling rate %v: %w", hz, err)
	}
	s.params = p
	s.det = det
	s.resetLocked()
	s.log.Info("sampling rate changed", "sample_rate", hz)
	return nil
}

func (s *Session) Params() analysis.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

func (s *Session) Result() analysis.DetectionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.det.Snapshot()
}

// Burden reports the global burden and the window ending at now (ms).
func (s *Session) Burden(now int64) Burden {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Burden{Global: s.tracker.Global(), Window: s.tracker.Window(now)}
}

// Tick appends a trend point for now (ms) to the burden history.
func (s *Session) Tick(now int64) burden.DataPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Tick(now)
}

func (s *Session) History() []burden.DataPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.History()
}

// LastTimestamp is the timestamp of the newest ingested sample, 0 if none.
func (s *Session) LastTimestamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		SessionID:  s.id.String(),
		SampleRate: s.params.SampleRate,
		Samples:    s.samples,
		LastSample: s.last,
		StartedAt:  s.started,
		Closed:     s.closed,
	}
}

// Close disposes the session. Later Ingest calls are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	res := s.det.Snapshot()
	s.log.Info("session closed", "samples", s.samples, "beats", res.TotalBeatsObserved, "pvcs", res.PVCCount)
}
