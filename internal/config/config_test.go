package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PREDICTOR_URL", "LISTEN_ADDR", "LOG_LEVEL", "REQUEST_TIMEOUT", "REQUESTS_PER_SEC",
		"MAX_UPLOAD_BYTES", "WAIT_FOR_PREDICTOR", "DB_HOST", "DB_PORT", "DB_USER",
		"DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultPredictorURL, cfg.PredictorURL)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0, cfg.RequestTimeout)
	assert.Equal(t, DefaultRequestsPerSec, cfg.RequestsPerSec)
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.MaxUploadBytes)
	assert.Equal(t, "5432", cfg.DB.Port)
	assert.Equal(t, "disable", cfg.DB.SSLMode)
	assert.Empty(t, cfg.DB.Host)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PREDICTOR_URL", "http://ml.internal:8000/")
	t.Setenv("REQUEST_TIMEOUT", "15")
	t.Setenv("REQUESTS_PER_SEC", "notanumber")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://ml.internal:8000", cfg.PredictorURL)
	assert.Equal(t, 15, cfg.RequestTimeout)
	assert.Equal(t, DefaultRequestsPerSec, cfg.RequestsPerSec)
	assert.Equal(t, int64(-100123), cfg.TelegramChatID)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad url", "PREDICTOR_URL", "localhost"},
		{"negative timeout", "REQUEST_TIMEOUT", "-1"},
		{"zero rate", "REQUESTS_PER_SEC", "0"},
		{"token without chat", "TELEGRAM_BOT_TOKEN", "token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
