package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/servicehub/libs/auth"
	"github.com/md-rashed-zaman/servicehub/libs/config"
	"github.com/md-rashed-zaman/servicehub/libs/db"
	"github.com/md-rashed-zaman/servicehub/libs/grpcx"
	"github.com/md-rashed-zaman/servicehub/libs/httpx"
	"github.com/md-rashed-zaman/servicehub/libs/kafkax"
	otelx "github.com/md-rashed-zaman/servicehub/libs/otel"
	"github.com/md-rashed-zaman/servicehub/libs/runtime"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/notify"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	logger := runtime.NewLogger(service)
	if err := run(service, logger); err != nil {
		logger.Error("booking service exited", "err", err)
		os.Exit(1)
	}
}

func run(service string, logger *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := runtime.SignalContext(logger)
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service), logger)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{
		MaxConns:  cfg.DBMaxConns,
		SlowQuery: cfg.DBSlowQuery,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("db connection: %w", err)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := storage.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("schema migrated")
	}

	notifier, err := notify.New(cfg.Notify, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			logger.Warn("notifier close failed", "err", err)
		}
	}()
	logger.Info("notifications configured", "backend", cfg.Notify.Backend)

	directory := storage.NewDirectoryRepository(pool)
	engine := lifecycle.NewEngine(
		storage.NewBookingRepository(pool),
		directory,
		storage.NewStatsRepository(pool),
		notifier,
		lifecycle.Options{
			Logger:              logger,
			EnforceWorkingHours: cfg.EnforceWorkingHours,
			SideEffectTimeout:   cfg.SideEffectTimeout,
		},
	)

	var jwks *auth.JWKSClient
	if cfg.JWKSURL != "" {
		jwks = auth.NewJWKSClient(cfg.JWKSURL, 5*time.Minute)
	}
	if cfg.JWTSecret == "" && jwks == nil {
		return fmt.Errorf("JWT_SECRET or JWKS_URL is required")
	}
	authn := handlers.RequireActor(auth.NewVerifier(cfg.JWTSecret, jwks), logger)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if cfg.Notify.Backend == notify.BackendKafka {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.Notify.Brokers)})
	}
	mux, probes := runtime.NewBaseMuxWithReady(checks...)
	handlers.NewBookingHandler(engine, logger).Register(mux, authn)

	limiter, closeLimiter := newLimiter(cfg, logger)
	defer closeLimiter()

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(cfg.CORS),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(cfg.BodyLimit),
		httpx.WithTimeout(cfg.RequestTimeout),
		httpx.RateLimit(limiter, httpx.RateLimitOptions{
			Logger:   logger,
			FailOpen: cfg.RateLimitFailOpen,
			Exempt:   []string{"/healthz", "/readyz"},
		}),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv := grpcx.NewServer(logger)
	grpcHealth := grpcx.RegisterHealth(grpcSrv, service)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	go func() {
		logger.Info("grpc health server starting", "addr", lis.Addr().String())
		if err := grpcx.Serve(ctx, grpcSrv, lis, logger); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	probes.Drain()
	grpcHealth.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
	return nil
}
