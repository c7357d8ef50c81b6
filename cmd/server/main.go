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

	"github.com/Alias1177/MSMEPredictor/internal/config"
	"github.com/Alias1177/MSMEPredictor/internal/database"
	"github.com/Alias1177/MSMEPredictor/internal/notify"
	"github.com/Alias1177/MSMEPredictor/internal/predictor"
	"github.com/Alias1177/MSMEPredictor/internal/web"
	"github.com/Alias1177/MSMEPredictor/models"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Setup context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Configure logging
	setupLogging(cfg.LogLevel)
	log.Info().Msg("Starting MSME predictor")
	printConfig(cfg)

	// 3. Prediction service client
	client := predictor.NewClient(cfg)
	if cfg.WaitForPredictor > 0 {
		if err := client.WaitReady(ctx, time.Duration(cfg.WaitForPredictor)*time.Second); err != nil {
			log.Fatal().Err(err).Msg("Prediction service is not available")
		}
		log.Info().Msg("Prediction service is ready")
	}

	opts := web.Options{
		Client:         client,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Notifier:       notify.Nop{},
	}

	// 4. Optional prediction history
	if cfg.DB.Host != "" {
		db, err := database.New(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer db.Close()
		opts.History = db
		log.Info().Str("host", cfg.DB.Host).Str("dbname", cfg.DB.DBName).Msg("Prediction history enabled")
	}

	// 5. Optional Telegram alerts
	if cfg.TelegramBotToken != "" {
		notifier, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Telegram notifier")
		}
		opts.Notifier = notifier
	}

	srv, err := web.NewServer(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create web server")
	}

	// 6. Serve until a shutdown signal arrives
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received, stopping server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	if err := srv.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Pending alerts were not delivered")
	}
	log.Info().Msg("Server stopped")
}

// setupLogging configures the logger
func setupLogging(logLevel string) {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
}

// printConfig outputs the current configuration
func printConfig(cfg *models.Config) {
	log.Info().
		Str("PredictorURL", cfg.PredictorURL).
		Str("ListenAddr", cfg.ListenAddr).
		Int("RequestTimeout", cfg.RequestTimeout).
		Int("RequestsPerSec", cfg.RequestsPerSec).
		Int64("MaxUploadBytes", cfg.MaxUploadBytes).
		Int("WaitForPredictor", cfg.WaitForPredictor).
		Bool("History", cfg.DB.Host != "").
		Bool("TelegramAlerts", cfg.TelegramBotToken != "").
		Msg("Configuration loaded")
}
