package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"firewatch-worker-go/internal/alerts"
	"firewatch-worker-go/internal/api"
	"firewatch-worker-go/internal/config"
	"firewatch-worker-go/internal/logging"
	"firewatch-worker-go/internal/models"
	"firewatch-worker-go/internal/services/capture"
	"firewatch-worker-go/internal/services/detection"
	"firewatch-worker-go/internal/services/messaging"
	"firewatch-worker-go/internal/services/pipeline"
	"firewatch-worker-go/internal/services/telegram"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg := config.Load()

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Optionally tee logs into the embedded Logdy UI
	if cfg.LogdyEnabled {
		writer, url, err := logging.StartLogdy(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to start Logdy, console logging only")
		} else {
			console := zerolog.ConsoleWriter{Out: os.Stderr}
			log.Logger = log.Output(io.MultiWriter(console, writer))
			log.Info().Str("url", url).Msg("Log tee to Logdy enabled")
		}
	}

	mainLog := logging.NewServiceLogger(cfg, "worker")
	mainLog.Info().
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Str("source", cfg.Source).
		Int("port", cfg.Port).
		Msg("🚀 Starting Firewatch Worker")

	// Shared alert state
	store := alerts.NewStore()
	decider := alerts.NewDecider(cfg.ConsecutiveThreshold, cfg.AlertCooldown)

	// Notification channels, in configured order
	var channels []models.NotificationChannel

	var server *api.Server
	if cfg.DashboardEnabled {
		server = api.NewServer(cfg, store)
		if err := server.Setup(); err != nil {
			mainLog.Fatal().Err(err).Msg("Failed to setup dashboard API")
		}
		channels = append(channels, server)
	}

	var bot *telegram.BotChannel
	if cfg.TelegramEnabled {
		bot, err = telegram.New(cfg)
		if err != nil {
			mainLog.Fatal().Err(err).Msg("Failed to connect Telegram bot")
		}
		channels = append(channels, bot)
	}

	var nats *messaging.Service
	if cfg.NatsEnabled {
		nats, err = messaging.NewService(cfg)
		if err != nil {
			mainLog.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		channels = append(channels, messaging.NewAlertChannel(nats, cfg.AlertsSubject))
	}

	// Video source and detector
	source, err := capture.NewVideoStreamer(cfg.Source, cfg.OutputQuality)
	if err != nil {
		mainLog.Fatal().Err(err).Msg("Failed to open video source")
	}

	detector := detection.NewClient(cfg)

	// Frame loop
	pipe := pipeline.NewService(cfg, source, detector, decider, store, channels)
	pipe.Start()

	// Telegram decisions feed the store through the status callback
	if bot != nil {
		bot.StartIngress(func(alertID int64, action models.AlertAction) bool {
			return store.Resolve(alertID, action.Status())
		})
	}

	if server != nil {
		go func() {
			if err := server.Start(); err != nil {
				mainLog.Error().Err(err).Msg("Dashboard API stopped")
			}
		}()
	}

	// Wait for interrupt signal or source exhaustion
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		mainLog.Info().Msg("Shutdown signal received")
		pipe.Stop()
	case <-pipe.Done():
		mainLog.Info().Msg("Pipeline finished, shutting down")
	}

	// Graceful shutdown: stop ingress, drain the broker, then the API
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if bot != nil {
		bot.StopIngress()
	}

	if nats != nil {
		if err := nats.Shutdown(ctx); err != nil {
			mainLog.Error().Err(err).Msg("NATS shutdown failed")
		}
	}

	if server != nil {
		if err := server.Stop(); err != nil {
			mainLog.Error().Err(err).Msg("Dashboard API forced to shutdown")
		}
	}

	mainLog.Info().Msg("Shutdown complete")
}
