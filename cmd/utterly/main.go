package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/utterly-ai/utterly/pkg/bus"
	"github.com/utterly-ai/utterly/pkg/capture"
	"github.com/utterly-ai/utterly/pkg/config"
	"github.com/utterly-ai/utterly/pkg/device"
	"github.com/utterly-ai/utterly/pkg/server"
	"github.com/utterly-ai/utterly/pkg/trace"
)

func main() {
	godotenv.Load()

	configPath := flag.String("config", "utterly.yaml", "path to the YAML configuration file")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}
	log = log.Level(level)

	ctx := context.Background()
	if err := trace.Initialize(ctx, &cfg.Trace); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := trace.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("trace shutdown failed")
		}
	}()

	devices, err := device.NewManager(log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize audio context")
	}
	defer devices.Close()

	b := bus.NewEventBus(log)
	controller := capture.NewController(devices.Opener(), b, log)
	if err := controller.UpdateConfig(cfg.VAD); err != nil {
		log.Fatal().Err(err).Msg("invalid capture configuration")
	}

	srvConfig := server.DefaultConfig()
	srvConfig.Addr = cfg.Addr

	srv := server.New(srvConfig, controller, devices, b, log)
	if err := srv.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
	log.Info().Str("addr", cfg.Addr).Msg("utterly ready")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down")

	if controller.Capturing() {
		controller.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
