package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/analysis"
)

// Polar H10 PMD ECG notifications: a 10 byte header (measurement type,
// sensor timestamp, frame type) followed by 73 signed 24-bit little endian
// microvolt samples at 130 Hz.
const (
	PMDFrameSize       = 229
	PMDSampleRate      = 130
	PMDSamplesPerFrame = (PMDFrameSize - pmdHeaderSize) / pmdSampleBytes

	pmdHeaderSize  = 10
	pmdSampleBytes = 3
	pmdTypeECG     = 0x00
)

var ErrPMDFrame = errors.New("not a PMD ECG frame")

// DecodePMD extracts the ECG samples of one notification. Sensor time is
// ignored; sample k is stamped receivedMs + round(k*1000/130).
func DecodePMD(frame []byte, receivedMs int64) ([]analysis.Sample, error) {
	if len(frame) != PMDFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPMDFrame, len(frame))
	}
	if frame[0] != pmdTypeECG {
		return nil, fmt.Errorf("%w: measurement type %#x", ErrPMDFrame, frame[0])
	}

	out := make([]analysis.Sample, 0, PMDSamplesPerFrame)
	for i := pmdHeaderSize; i+2 < len(frame); i += pmdSampleBytes {
		k := len(out)
		out = append(out, analysis.Sample{
			Amplitude: float64(int24(frame[i:])),
			Timestamp: receivedMs + int64(math.Round(float64(k)*1000/PMDSampleRate)),
		})
	}
	return out, nil
}

// EncodePMD builds a notification from exactly 73 microvolt samples,
// clamping each to the 24-bit range.
func EncodePMD(sensorNs uint64, uv []int32) ([]byte, error) {
	if len(uv) != PMDSamplesPerFrame {
		return nil, fmt.Errorf("%w: need %d samples, got %d", ErrPMDFrame, PMDSamplesPerFrame, len(uv))
	}
	out := make([]byte, PMDFrameSize)
	out[0] = pmdTypeECG
	binary.LittleEndian.PutUint64(out[1:], sensorNs)
	for k, v := range uv {
		v = min(max(v, -1<<23), 1<<23-1)
		i := pmdHeaderSize + k*pmdSampleBytes
		out[i] = byte(v)
		out[i+1] = byte(v >> 8)
		out[i+2] = byte(v >> 16)
	}
	return out, nil
}

func int24(b []byte) int32 {
	v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	return v << 8 >> 8
}
