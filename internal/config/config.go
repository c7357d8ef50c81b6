package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/MSMEPredictor/models"
)

const (
	DefaultPredictorURL   = "http://localhost:5000"
	DefaultListenAddr     = ":8080"
	DefaultRequestsPerSec = 5
	DefaultMaxUploadBytes = 10 << 20
)

// Load initializes configuration from environment variables
func Load() (*models.Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	return FromEnv()
}

// FromEnv builds the configuration from the current environment only
func FromEnv() (*models.Config, error) {
	var cfg models.Config

	cfg.PredictorURL = strings.TrimRight(getEnvWithDefault("PREDICTOR_URL", DefaultPredictorURL), "/")
	cfg.ListenAddr = getEnvWithDefault("LISTEN_ADDR", DefaultListenAddr)
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 0)
	cfg.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", DefaultRequestsPerSec)
	cfg.MaxUploadBytes = getEnvInt64WithDefault("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
	cfg.WaitForPredictor = getEnvIntWithDefault("WAIT_FOR_PREDICTOR", 0)

	cfg.DB = models.DBConfig{
		Host:     os.Getenv("DB_HOST"),
		Port:     getEnvWithDefault("DB_PORT", "5432"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   os.Getenv("DB_NAME"),
		SSLMode:  getEnvWithDefault("DB_SSLMODE", "disable"),
	}

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at request time
func Validate(cfg *models.Config) error {
	u, err := url.Parse(cfg.PredictorURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid PREDICTOR_URL %q", cfg.PredictorURL)
	}
	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative, got %d", cfg.RequestTimeout)
	}
	if cfg.RequestsPerSec <= 0 {
		return fmt.Errorf("REQUESTS_PER_SEC must be positive, got %d", cfg.RequestsPerSec)
	}
	if cfg.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", cfg.MaxUploadBytes)
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	return nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer environment value")
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer environment value")
	}
	return defaultValue
}
