package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chatrelay/internal/config"
	"chatrelay/internal/server/core"
	"chatrelay/internal/server/transport"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	registry := core.NewRegistry()
	server := transport.NewServer(cfg.Addr(), registry)
	server.WriteTimeout = cfg.WriteTimeout

	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")
	server.Stop()
}
