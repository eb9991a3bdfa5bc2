package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	osSignal "os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/api"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/config"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/logging"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/stream"
)

func main() {

	var (
		cfgPath = flag.String("config", "", "config file (default ./config.yaml)")
		natsURL = flag.String("nats", "", "NATS url override")
		addr    = flag.String("addr", "", "http address override")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if *natsURL != "" {
		cfg.NATS.URL = *natsURL
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger, err := logging.New(cfg.Log, os.Stdout)
	if err != nil {
		log.Fatal(err)
	}
	logger = logger.With("component", "server")

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	nc, err := stream.Connect(cfg.NATS.URL, "ecg-server", logger)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer nc.Drain()

	a := api.New(stream.NewNATSController(nc), logger)
	h := a.Hub()

	// Waves (binary passthrough)
	if _, err := nc.Subscribe(stream.SubjectWave, func(msg *nats.Msg) {
		h.BroadcastBinary(msg.Data)
	}); err != nil {
		return err
	}
	if _, err := nc.Subscribe(stream.SubjectParams, func(msg *nats.Msg) {
		a.Publish(msg.Data)
	}); err != nil {
		return err
	}
	for _, subject := range []string{stream.SubjectBeats, stream.SubjectBurden} {
		if _, err := nc.Subscribe(subject, func(msg *nats.Msg) {
			h.BroadcastText(msg.Data)
		}); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server running", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, cancel := osSignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
