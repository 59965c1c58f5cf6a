// Package main is the entry point for the backlog manager. It serves the
// JSON API and, when a token is configured, the Telegram bot.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"backlog-manager/internal/api"
	"backlog-manager/internal/bot"
	"backlog-manager/internal/config"
	"backlog-manager/internal/metrics"
	"backlog-manager/internal/repository"
	"backlog-manager/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(&cfg.Log)
	log.Info().
		Str("driver", cfg.Storage.Driver).
		Bool("http", cfg.HTTP.Enabled).
		Bool("bot", cfg.Bot.Token != "").
		Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	collector := metrics.NewCollector()
	backlogService := service.NewBacklogService(repo,
		service.WithLockTimeout(cfg.Storage.LockTimeout),
		service.WithObserver(collector),
	)
	detach := collector.Attach(backlogService)
	defer detach()

	var server *http.Server
	if cfg.HTTP.Enabled {
		server = &http.Server{
			Addr: cfg.HTTP.Addr,
			Handler: api.NewRouter(api.Deps{
				Service:        backlogService,
				BaseKey:        cfg.Storage.Key,
				Metrics:        collector.Handler(),
				CORSOrigins:    cfg.HTTP.CORSOrigins,
				RequestTimeout: cfg.HTTP.RequestTimeout,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP server is starting...")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("HTTP server failed")
				stop()
			}
		}()
	}

	var telegramBot *bot.Bot
	if cfg.Bot.Token != "" {
		telegramBot, err = bot.New(&bot.Dependencies{
			Config:  cfg,
			Backlog: backlogService,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create bot")
		}
		go telegramBot.Start()
	}

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info().Msg("Received shutdown signal")

	if telegramBot != nil {
		telegramBot.Stop()
		log.Info().Msg("Bot stopped gracefully")
	}
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown failed")
		} else {
			log.Info().Msg("HTTP server stopped gracefully")
		}
	}
}

// setupLogger configures the global zerolog logger.
func setupLogger(cfg *config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		return
	}
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}
