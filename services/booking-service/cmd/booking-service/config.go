package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/md-rashed-zaman/servicehub/libs/config"
	"github.com/md-rashed-zaman/servicehub/libs/httpx"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/notify"
)

type serviceConfig struct {
	Port     string
	GRPCPort string

	DatabaseURL string
	DBMaxConns  int32
	DBSlowQuery time.Duration
	AutoMigrate bool

	JWTSecret string
	JWKSURL   string

	Notify              notify.Config
	EnforceWorkingHours bool
	SideEffectTimeout   time.Duration

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RateLimitPrefix   string
	RateLimitPerMin   int
	RateLimitFailOpen bool

	RequestTimeout time.Duration
	BodyLimit      int64
	CORS           httpx.CORSPolicy
}

func loadConfig() (serviceConfig, error) {
	var (
		cfg serviceConfig
		err error
	)
	if cfg.Port, err = config.Port("PORT", "8083"); err != nil {
		return cfg, err
	}
	if cfg.GRPCPort, err = config.Port("GRPC_PORT", "9093"); err != nil {
		return cfg, err
	}
	if cfg.DatabaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
		return cfg, err
	}
	maxConns, err := config.Int("DB_MAX_CONNS", 10)
	if err != nil {
		return cfg, err
	}
	cfg.DBMaxConns = int32(maxConns)
	if cfg.DBSlowQuery, err = config.Millis("DB_SLOW_QUERY_MS", 250*time.Millisecond); err != nil {
		return cfg, err
	}
	cfg.AutoMigrate = config.Bool("AUTO_MIGRATE", true)

	cfg.JWTSecret = config.String("JWT_SECRET", "")
	cfg.JWKSURL = config.String("JWKS_URL", "")

	notifyTimeout, err := config.Millis("NOTIFY_TIMEOUT_MS", 5*time.Second)
	if err != nil {
		return cfg, err
	}
	cfg.Notify = notify.Config{
		Backend:      config.String("NOTIFY_BACKEND", notify.BackendNoop),
		Brokers:      config.List("KAFKA_BROKERS"),
		Topic:        config.String("NOTIFY_TOPIC", notify.DefaultTopic),
		Async:        config.Bool("NOTIFY_ASYNC", false),
		WebhookURL:   config.String("NOTIFY_WEBHOOK_URL", ""),
		WebhookToken: config.String("NOTIFY_WEBHOOK_TOKEN", ""),
		Timeout:      notifyTimeout,
	}
	cfg.EnforceWorkingHours = config.Bool("ENFORCE_WORKING_HOURS", false)
	if cfg.SideEffectTimeout, err = config.Millis("SIDE_EFFECT_TIMEOUT_MS", 3*time.Second); err != nil {
		return cfg, err
	}

	cfg.RedisAddr = config.String("REDIS_ADDR", "")
	cfg.RedisPassword = config.String("REDIS_PASSWORD", "")
	if cfg.RedisDB, err = config.Int("REDIS_DB", 0); err != nil {
		return cfg, err
	}
	cfg.RateLimitPrefix = config.String("RATE_LIMIT_PREFIX", "rl:booking")
	if cfg.RateLimitPerMin, err = config.Int("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return cfg, err
	}
	if cfg.RateLimitPerMin == 0 {
		return cfg, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	cfg.RateLimitFailOpen = config.Bool("RATE_LIMIT_FAIL_OPEN", true)

	if cfg.RequestTimeout, err = config.Millis("REQUEST_TIMEOUT_MS", 10*time.Second); err != nil {
		return cfg, err
	}
	bodyLimit, err := config.Int("BODY_LIMIT_BYTES", 1<<20)
	if err != nil {
		return cfg, err
	}
	cfg.BodyLimit = int64(bodyLimit)

	corsMaxAge, err := config.Int("CORS_MAX_AGE_SECONDS", 600)
	if err != nil {
		return cfg, err
	}
	cfg.CORS = httpx.CORSPolicy{
		AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS"),
		AllowedMethods:   listOr("CORS_ALLOWED_METHODS", "GET", "POST", "OPTIONS"),
		AllowedHeaders:   listOr("CORS_ALLOWED_HEADERS", "Authorization", "Content-Type", "X-Request-Id"),
		AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
		MaxAge:           time.Duration(corsMaxAge) * time.Second,
	}
	return cfg, nil
}

func listOr(key string, fallback ...string) []string {
	if v := config.List(key); len(v) > 0 {
		return v
	}
	return fallback
}

// newLimiter prefers Redis so limits hold across replicas.
func newLimiter(cfg serviceConfig, logger *slog.Logger) (httpx.Limiter, func()) {
	if cfg.RedisAddr == "" {
		logger.Info("rate limiting enabled (in-memory)", "per_minute", cfg.RateLimitPerMin)
		return httpx.NewMemoryRateLimiter(cfg.RateLimitPerMin, time.Minute), func() {}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	logger.Info("rate limiting enabled (redis)", "per_minute", cfg.RateLimitPerMin, "redis_addr", cfg.RedisAddr)
	return httpx.NewRedisRateLimiter(rdb, cfg.RateLimitPerMin, time.Minute, cfg.RateLimitPrefix), func() { _ = rdb.Close() }
}
