package analysis

import "github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/ring"

// Sample is one acquisition value: amplitude in microvolts and a
// non-decreasing timestamp in milliseconds.
type Sample struct {
	Amplitude float64 `json:"amplitude"`
	Timestamp int64   `json:"timestamp"`
}

// Window keeps the most recent samples that every detection pass scans.
type Window struct {
	buf *ring.Buffer[Sample]
}

func NewWindow(capacity int) *Window {
	return &Window{buf: ring.New[Sample](capacity)}
}

// Append adds s, dropping the oldest sample once the window is full.
func (w *Window) Append(s Sample) {
	w.buf.Push(s)
}

func (w *Window) Len() int { return w.buf.Len() }

// Copy flattens the window into values and times, reusing their storage.
func (w *Window) Copy(values []float64, times []int64) ([]float64, []int64) {
	values, times = values[:0], times[:0]
	for i := 0; i < w.buf.Len(); i++ {
		s := w.buf.At(i)
		values = append(values, s.Amplitude)
		times = append(times, s.Timestamp)
	}
	return values, times
}

func (w *Window) Reset() { w.buf.Reset() }
