package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	osSignal "os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nats-io/nats.go"

	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/config"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/logging"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/session"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/stream"
)

func main() {

	var (
		cfgPath = flag.String("config", "", "config file (default ./config.yaml)")
		natsURL = flag.String("nats", "", "NATS url override")
		source  = flag.String("source", "", "ingest source override: nats, pmd or mqtt")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if *natsURL != "" {
		cfg.NATS.URL = *natsURL
	}
	if *source != "" {
		cfg.Processor.Source = *source
		if err := cfg.Validate(); err != nil {
			log.Fatal(err)
		}
	}

	logger, err := logging.New(cfg.Log, os.Stdout)
	if err != nil {
		log.Fatal(err)
	}
	logger = logger.With("component", "processor")

	if err := run(cfg, logger); err != nil {
		logger.Error("processor failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	nc, err := stream.Connect(cfg.NATS.URL, "ecg-processor", logger)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer nc.Drain()

	s, err := session.New(cfg.Detection,
		session.WithLogger(logger),
		session.WithBurdenConfig(cfg.Burden),
	)
	if err != nil {
		return err
	}
	defer s.Close()

	p := &pipeline{
		s:       s,
		publish: nc.Publish,
		log:     logger,
		rewave:  cfg.Processor.Source != config.SourceNATS,
	}

	// NATS callbacks for one subscription run sequentially, but MQTT and
	// the ticker do not; Session serialises them.
	switch cfg.Processor.Source {
	case config.SourceNATS:
		_, err = nc.Subscribe(stream.SubjectWave, func(msg *nats.Msg) {
			w, err := stream.DecodeWave(msg.Data)
			if err != nil {
				logger.Warn("drop wave frame", "error", err)
				return
			}
			p.handle(w.Samples())
		})
	case config.SourcePMD:
		if err = s.SetSamplingRate(stream.PMDSampleRate); err != nil {
			return err
		}
		_, err = nc.Subscribe(stream.SubjectPMD, func(msg *nats.Msg) {
			samples, err := stream.DecodePMD(msg.Data, time.Now().UnixMilli())
			if err != nil {
				logger.Warn("drop pmd frame", "error", err)
				return
			}
			p.handle(samples)
		})
	case config.SourceMQTT:
		var client mqtt.Client
		client, err = stream.ConnectMQTT(stream.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			OnConnect: func(c mqtt.Client) {
				if err := stream.SubscribeWaves(c, logger, func(device string, w stream.Wave) {
					p.handle(w.Samples())
				}); err != nil {
					logger.Error("mqtt subscribe", "error", err)
				}
			},
		}, logger)
		if err == nil {
			defer client.Disconnect(250)
		}
	}
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", cfg.Processor.Source, err)
	}

	if _, err := stream.ServeControl(nc, s, logger); err != nil {
		return fmt.Errorf("control: %w", err)
	}

	ctx, cancel := osSignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ticker := time.NewTicker(cfg.Processor.TickInterval)
	defer ticker.Stop()

	logger.Info("processor running", "source", cfg.Processor.Source, "session", s.ID().String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("processor stopping")
			return nil
		case <-ticker.C:
			p.tick()
		}
	}
}
