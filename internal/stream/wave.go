package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/analysis"
)

const waveHeaderSize = 12

var (
	ErrShortFrame = errors.New("frame too short")
	ErrBadRate    = errors.New("frame sample rate must be positive")
)

// Wave is a batch of evenly spaced samples. Sample i was taken at
// Start + round(i*1000/Rate) milliseconds.
type Wave struct {
	Start  int64
	Rate   float32
	Values []float32
}

// EncodeWave lays out w as [start int64][rate float32][n x float32], all
// little endian.
func EncodeWave(w Wave) []byte {
	out := make([]byte, waveHeaderSize+4*len(w.Values))
	binary.LittleEndian.PutUint64(out[0:], uint64(w.Start))
	binary.LittleEndian.PutUint32(out[8:], math.Float32bits(w.Rate))
	for i, v := range w.Values {
		binary.LittleEndian.PutUint32(out[waveHeaderSize+i*4:], math.Float32bits(v))
	}
	return out
}

func DecodeWave(b []byte) (Wave, error) {
	if len(b) < waveHeaderSize {
		return Wave{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(b))
	}
	if (len(b)-waveHeaderSize)%4 != 0 {
		return Wave{}, fmt.Errorf("%w: truncated sample in %d bytes", ErrShortFrame, len(b))
	}
	w := Wave{
		Start: int64(binary.LittleEndian.Uint64(b[0:])),
		Rate:  math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
	if !(w.Rate > 0) || math.IsInf(float64(w.Rate), 0) {
		return Wave{}, fmt.Errorf("%w: %v", ErrBadRate, w.Rate)
	}

	n := (len(b) - waveHeaderSize) / 4
	w.Values = make([]float32, n)
	for i := range w.Values {
		w.Values[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[waveHeaderSize+i*4:]))
	}
	return w, nil
}

// Samples expands w into timestamped samples.
func (w Wave) Samples() []analysis.Sample {
	out := make([]analysis.Sample, len(w.Values))
	for i, v := range w.Values {
		out[i] = analysis.Sample{
			Amplitude: float64(v),
			Timestamp: w.Start + int64(math.Round(float64(i)*1000/float64(w.Rate))),
		}
	}
	return out
}

// WaveFromSamples packs consecutive samples taken at rate Hz.
func WaveFromSamples(samples []analysis.Sample, rate float32) Wave {
	w := Wave{Rate: rate, Values: make([]float32, len(samples))}
	if len(samples) > 0 {
		w.Start = samples[0].Timestamp
	}
	for i, s := range samples {
		w.Values[i] = float32(s.Amplitude)
	}
	return w
}
