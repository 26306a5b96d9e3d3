//go:build !js && !wasm

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/himanishpuri/voicematch/internal/config"
	"github.com/himanishpuri/voicematch/internal/metrics"
	"github.com/himanishpuri/voicematch/pkg/logger"
	"github.com/himanishpuri/voicematch/pkg/voicematch"
)

var (
	envFile  string
	addr     string
	logLevel string
	backend  string
	preload  bool
)

func init() {
	flag.StringVar(&envFile, "env", "", "Path to .env file (default .env)")
	flag.StringVar(&addr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	flag.StringVar(&logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
	flag.StringVar(&backend, "backend", "", "Embedding backend (overrides VOICEMATCH_BACKEND)")
	flag.BoolVar(&preload, "preload", false, "Load the embedding model before serving")
}

func main() {
	flag.Parse()

	cfg, err := config.Load(config.Overrides{
		EnvFile:  envFile,
		HTTPAddr: addr,
		LogLevel: logLevel,
		Backend:  backend,
		Preload:  preload,
	})
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	lcfg := logger.DefaultConfig()
	lcfg.Level = logger.ParseLevel(cfg.LogLevel)
	lcfg.JSON = strings.EqualFold(cfg.LogFormat, "json")
	root := logger.New(lcfg)
	log := root.With("server")

	opts := append(cfg.ServiceOptions(),
		voicematch.WithLogger(root.With("voicematch")),
		voicematch.WithLoadHook(metrics.ModelLoadHook()),
	)
	service, err := voicematch.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	prometheus.MustRegister(metrics.NewCollector(service))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Preload {
		// A failed warmup is retried by the first request.
		_ = service.Warmup(ctx)
	}

	server := NewServer(service, cfg, log)
	handler := server.routes(root.With("http").Zerolog())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(handler)
	}()

	select {
	case <-ctx.Done():
		log.Infof("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Errorf("HTTP server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
	}
	log.Infof("VoiceMatch server stopped")
}
