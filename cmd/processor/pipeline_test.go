package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/analysis"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/session"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/signal"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/stream"
)

type recorder map[string][][]byte

func (r recorder) publish(subject string, data []byte) error {
	r[subject] = append(r[subject], data)
	return nil
}

func newPipeline(t *testing.T, rewave bool) (*pipeline, recorder) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := session.New(analysis.DefaultParams(), session.WithLogger(log))
	require.NoError(t, err)
	rec := recorder{}
	return &pipeline{s: s, publish: rec.publish, log: log, rewave: rewave}, rec
}

func TestPipelinePublishesBeatsAndParams(t *testing.T) {
	p, rec := newPipeline(t, false)
	sim := signal.NewECGSim(130, 60, 0, signal.WithEctopy(20, 0.5, 2, 1), signal.WithStart(1_000_000))

	frames := 0
	for i := 0; i < 30*13; i++ {
		frame := stream.EncodeWave(stream.WaveFromSamples(sim.Fill(10), 130))
		w, err := stream.DecodeWave(frame)
		require.NoError(t, err)
		p.handle(w.Samples())
		frames++
	}
	p.tick()

	assert.Len(t, rec[stream.SubjectParams], frames)
	assert.Empty(t, rec[stream.SubjectWave])
	require.NotEmpty(t, rec[stream.SubjectBeats])

	pvcs := 0
	for _, raw := range rec[stream.SubjectBeats] {
		var msg stream.BeatMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, stream.TypeBeat, msg.Type)
		assert.Equal(t, p.s.ID().String(), msg.SessionID)
		if msg.Beat.Label == analysis.PVC {
			pvcs++
			assert.Equal(t, int64(1_020_000), msg.Beat.Timestamp)
		}
	}
	assert.Equal(t, 1, pvcs)

	var last stream.ParamsMessage
	require.NoError(t, json.Unmarshal(rec[stream.SubjectParams][frames-1], &last))
	assert.Equal(t, 1, last.Detection.PVCCount)
	assert.Equal(t, 60, last.Detection.HeartRateBPM)
	assert.Equal(t, len(rec[stream.SubjectBeats]), last.Burden.Global.TotalBeats)
	assert.Len(t, p.s.History(), 1)

	require.Len(t, rec[stream.SubjectBurden], 1)
	var tick stream.BurdenMessage
	require.NoError(t, json.Unmarshal(rec[stream.SubjectBurden][0], &tick))
	assert.Equal(t, stream.TypeBurden, tick.Type)
	assert.Equal(t, p.s.ID().String(), tick.SessionID)
	assert.Equal(t, p.s.History()[0], tick.Point)
	assert.Equal(t, len(rec[stream.SubjectBeats]), tick.Point.TotalBeats)
	assert.Equal(t, 1, tick.Point.PVCBeats)
}

func TestPipelineTickWaitsForData(t *testing.T) {
	p, rec := newPipeline(t, false)
	p.tick()
	assert.Empty(t, rec[stream.SubjectBurden])
	assert.Empty(t, p.s.History())
}

func TestPipelineRewavesDecodedFrames(t *testing.T) {
	p, rec := newPipeline(t, true)
	samples, err := stream.DecodePMD(make([]byte, stream.PMDFrameSize), 5_000)
	require.NoError(t, err)

	p.handle(samples)
	p.handle(nil)

	require.Len(t, rec[stream.SubjectWave], 1)
	w, err := stream.DecodeWave(rec[stream.SubjectWave][0])
	require.NoError(t, err)
	assert.Equal(t, int64(5_000), w.Start)
	assert.Len(t, w.Values, 73)
	assert.Len(t, rec[stream.SubjectParams], 1)
}
