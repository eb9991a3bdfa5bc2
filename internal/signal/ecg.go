package signal

import (
	"math"

	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/analysis"
)

// ECGSim generates a synthetic single-lead ECG (not clinical) in microvolts.
// Beats land exactly on the sample grid so that a regular rhythm has
// constant RR and constant R amplitude. Optionally every n-th beat is
// ectopic: premature, taller, wider, without P wave and with an inverted T,
// followed by a full compensatory pause.
type ECGSim struct {
	fs        float64
	rr        int64
	amplitude float64
	noise     float64
	t0        int64

	ectopicEvery int
	prematurity  float64
	gain         float64
	widen        float64

	i       int64
	count   int
	pending []beat
}

type beat struct {
	at      int64
	ectopic bool
	gap     int64
}

type Option func(*ECGSim)

// WithAmplitude sets the R-wave amplitude of normal beats in microvolts.
func WithAmplitude(uv float64) Option {
	return func(s *ECGSim) { s.amplitude = uv }
}

// WithEctopy makes every n-th beat a PVC arriving after prematurity×RR with
// gain× the normal amplitude and a QRS widened by widen.
func WithEctopy(every int, prematurity, gain, widen float64) Option {
	return func(s *ECGSim) {
		s.ectopicEvery = every
		s.prematurity = prematurity
		s.gain = gain
		s.widen = widen
	}
}

// WithStart sets the timestamp of the first sample in milliseconds.
func WithStart(ms int64) Option {
	return func(s *ECGSim) { s.t0 = ms }
}

// NewECGSim fs in Hz, hrBPM typically 60-120, noise in microvolts.
func NewECGSim(fs, hrBPM, noise float64, opts ...Option) *ECGSim {
	s := &ECGSim{
		fs:          fs,
		rr:          int64(math.Round(60 / hrBPM * fs)),
		amplitude:   450,
		noise:       noise,
		prematurity: 0.5,
		gain:        2,
		widen:       1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rr < 1 {
		s.rr = 1
	}
	first := s.rr / 2
	s.pending = []beat{{at: first, gap: s.rr}}
	s.extend()
	return s
}

// RRMillis is the nominal normal-to-normal interval.
func (s *ECGSim) RRMillis() float64 { return float64(s.rr) / s.fs * 1000 }

// Next returns the next sample and advances time.
func (s *ECGSim) Next() analysis.Sample {
	i := s.i
	s.i++

	for len(s.pending) > 0 && s.ms(i-s.pending[0].at) > 600 {
		s.pending = s.pending[1:]
	}
	s.extend()

	v := 0.0
	for _, b := range s.pending {
		v += s.wave(s.ms(i-b.at), b)
	}
	if s.noise > 0 {
		v += s.noise * (2*fract(math.Sin(12345.678*float64(i))*9876.543) - 1)
	}

	return analysis.Sample{
		Amplitude: v,
		Timestamp: s.t0 + int64(math.Round(float64(i)*1000/s.fs)),
	}
}

// Fill returns the next n samples.
func (s *ECGSim) Fill(n int) []analysis.Sample {
	out := make([]analysis.Sample, n)
	for k := range out {
		out[k] = s.Next()
	}
	return out
}

// extend keeps at least one beat scheduled more than 400 ms ahead so its
// P wave is already rendered.
func (s *ECGSim) extend() {
	for {
		last := s.pending[len(s.pending)-1]
		if s.ms(last.at-s.i) > 400 {
			return
		}
		s.count++
		next := beat{gap: s.rr}
		switch {
		case s.ectopicEvery > 0 && s.count%s.ectopicEvery == 0:
			next.ectopic = true
			next.gap = int64(math.Round(float64(s.rr) * s.prematurity))
		case last.ectopic:
			next.gap = 2*s.rr - last.gap
		}
		next.at = last.at + next.gap
		s.pending = append(s.pending, next)
	}
}

func (s *ECGSim) ms(samples int64) float64 { return float64(samples) / s.fs * 1000 }

// wave renders one beat at dt milliseconds from its R peak.
func (s *ECGSim) wave(dt float64, b beat) float64 {
	a, w := s.amplitude, 1.0
	if b.ectopic {
		a *= s.gain
		w = s.widen
	}

	v := 1.00*gauss(dt, 0, 7*w) - 0.12*gauss(dt, -17*w, 8*w) - 0.25*gauss(dt, 25*w, 10*w)
	if b.ectopic {
		v -= 0.30 * gauss(dt, 260, 60)
	} else {
		v += 0.08*gauss(dt, -117, 25) + 0.25*gauss(dt, 233, 50)
	}
	return a * v
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

func fract(x float64) float64 { return x - math.Floor(x) }
