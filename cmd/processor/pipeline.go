package main

import (
	"log/slog"
	"time"

	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/analysis"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/session"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/stream"
)

type publishFunc func(subject string, data []byte) error

// pipeline runs decoded frames through the session and publishes the
// resulting beat and params events.
type pipeline struct {
	s       *session.Session
	publish publishFunc
	log     *slog.Logger

	// rewave republishes decoded samples on the wave subject for sources
	// that do not already deliver wave frames there.
	rewave bool
}

func (p *pipeline) handle(samples []analysis.Sample) {
	if len(samples) == 0 {
		return
	}
	if p.rewave {
		w := stream.WaveFromSamples(samples, float32(p.s.Params().SampleRate))
		p.send(stream.SubjectWave, stream.EncodeWave(w))
	}

	id := p.s.ID().String()
	for _, b := range p.s.Ingest(samples...) {
		p.send(stream.SubjectBeats, stream.Marshal(stream.NewBeat(id, b)))
		if b.Label == analysis.PVC {
			p.log.Info("pvc", "ts", b.Timestamp, "pathway", b.Pathway, "confidence", b.Confidence, "premature", b.PercentagePremature)
		}
	}

	now := samples[len(samples)-1].Timestamp
	msg := stream.NewParams(id, time.Now().UnixMilli(), p.s.Result(), p.s.Burden(now))
	p.send(stream.SubjectParams, stream.Marshal(msg))
}

// tick records a burden trend point and publishes it for live charts.
func (p *pipeline) tick() {
	now := p.s.LastTimestamp()
	if now == 0 {
		return
	}
	dp := p.s.Tick(now)
	p.log.Debug("burden tick", "burden", dp.BurdenPercent, "beats", dp.TotalBeats, "confidence", dp.Confidence)
	p.send(stream.SubjectBurden, stream.Marshal(stream.NewBurden(p.s.ID().String(), dp)))
}

func (p *pipeline) send(subject string, data []byte) {
	if err := p.publish(subject, data); err != nil {
		p.log.Warn("publish failed", "subject", subject, "error", err)
	}
}
