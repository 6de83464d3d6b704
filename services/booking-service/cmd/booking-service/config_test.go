package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/servicehub/libs/httpx"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/notify"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://booking@localhost/booking")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, "9093", cfg.GRPCPort)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.Equal(t, 250*time.Millisecond, cfg.DBSlowQuery)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, notify.BackendNoop, cfg.Notify.Backend)
	assert.Equal(t, notify.DefaultTopic, cfg.Notify.Topic)
	assert.False(t, cfg.EnforceWorkingHours)
	assert.Equal(t, 3*time.Second, cfg.SideEffectTimeout)
	assert.Equal(t, []string{"GET", "POST", "OPTIONS"}, cfg.CORS.AllowedMethods)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://booking@localhost/booking")
	t.Setenv("NOTIFY_BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("NOTIFY_TIMEOUT_MS", "750")
	t.Setenv("ENFORCE_WORKING_HOURS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Notify.Brokers)
	assert.Equal(t, 750*time.Millisecond, cfg.Notify.Timeout)
	assert.True(t, cfg.EnforceWorkingHours)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := loadConfig()
	require.Error(t, err, "DATABASE_URL is required")

	t.Setenv("DATABASE_URL", "postgres://booking@localhost/booking")
	t.Setenv("SIDE_EFFECT_TIMEOUT_MS", "soon")
	_, err = loadConfig()
	assert.ErrorContains(t, err, "SIDE_EFFECT_TIMEOUT_MS")

	t.Setenv("SIDE_EFFECT_TIMEOUT_MS", "")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	_, err = loadConfig()
	assert.ErrorContains(t, err, "RATE_LIMIT_PER_MINUTE")
}

func TestNewLimiterFallsBackToMemory(t *testing.T) {
	l, closeFn := newLimiter(serviceConfig{RateLimitPerMin: 5}, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	defer closeFn()
	assert.IsType(t, &httpx.MemoryRateLimiter{}, l)
}
