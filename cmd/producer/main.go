package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	osSignal "os/signal"
	"syscall"
	"time"

	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/analysis"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/config"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/logging"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/signal"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/stream"
)

func main() {

	var (
		cfgPath = flag.String("config", "", "config file (default ./config.yaml)")
		natsURL = flag.String("nats", "", "NATS url override")
		sink    = flag.String("sink", "", "publish to: nats (wave frames), pmd (Polar PMD frames) or mqtt")
		hr      = flag.Float64("hr", 0, "heart rate bpm override")
		ectopic = flag.Int("ectopic", -1, "make every n-th beat a PVC (0 disables)")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if *natsURL != "" {
		cfg.NATS.URL = *natsURL
	}
	if *sink != "" {
		cfg.Producer.Sink = *sink
	}
	if *hr > 0 {
		cfg.Producer.HeartRate = *hr
	}
	if *ectopic >= 0 {
		cfg.Producer.EctopicEvery = *ectopic
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.Log, os.Stdout)
	if err != nil {
		log.Fatal(err)
	}
	logger = logger.With("component", "producer")

	if err := run(cfg, logger); err != nil {
		logger.Error("producer failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	pc := cfg.Producer
	fs := cfg.Detection.SampleRate
	batch := pc.Batch
	if pc.Sink == config.SourcePMD {
		fs = stream.PMDSampleRate
		batch = stream.PMDSamplesPerFrame
	}

	publish, closeFn, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	sim := signal.NewECGSim(fs, pc.HeartRate, pc.Noise,
		signal.WithStart(time.Now().UnixMilli()),
		signal.WithEctopy(pc.EctopicEvery, pc.Prematurity, pc.Gain, pc.Widen),
	)

	ctx, cancel := osSignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	period := time.Duration(float64(time.Second) / fs)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	buffer := make([]analysis.Sample, 0, batch)
	logger.Info("producer running", "sink", pc.Sink, "fs", fs, "hr", pc.HeartRate, "ectopic_every", pc.EctopicEvery)

	for {
		select {
		case <-ctx.Done():
			logger.Info("producer stopping")
			return nil

		case <-ticker.C:
			buffer = append(buffer, sim.Next())
			if len(buffer) < batch {
				continue
			}
			payload, err := encode(pc.Sink, buffer, float32(fs))
			if err != nil {
				return err
			}
			if err := publish(payload); err != nil {
				logger.Warn("publish failed", "error", err)
			}
			buffer = buffer[:0]
		}
	}
}

func encode(sink string, samples []analysis.Sample, fs float32) ([]byte, error) {
	if sink != config.SourcePMD {
		return stream.EncodeWave(stream.WaveFromSamples(samples, fs)), nil
	}
	uv := make([]int32, len(samples))
	for i, s := range samples {
		uv[i] = int32(math.Round(s.Amplitude))
	}
	return stream.EncodePMD(uint64(samples[0].Timestamp)*uint64(time.Millisecond), uv)
}

func newPublisher(cfg config.Config, logger *slog.Logger) (func([]byte) error, func(), error) {
	if cfg.Producer.Sink == config.SourceMQTT {
		client, err := stream.ConnectMQTT(stream.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		topic := stream.WaveTopic(cfg.MQTT.Device)
		publish := func(b []byte) error {
			t := client.Publish(topic, 0, false, b)
			t.Wait()
			return t.Error()
		}
		return publish, func() { client.Disconnect(250) }, nil
	}

	nc, err := stream.Connect(cfg.NATS.URL, "ecg-producer", logger)
	if err != nil {
		return nil, nil, fmt.Errorf("nats: %w", err)
	}
	subject := stream.SubjectWave
	if cfg.Producer.Sink == config.SourcePMD {
		subject = stream.SubjectPMD
	}
	publish := func(b []byte) error { return nc.Publish(subject, b) }
	return publish, func() { nc.Drain() }, nil
}
