package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/fincra-gateway/internal/auth"
	"github.com/noah-isme/fincra-gateway/internal/cart"
	"github.com/noah-isme/fincra-gateway/internal/config"
	"github.com/noah-isme/fincra-gateway/internal/fincra"
	"github.com/noah-isme/fincra-gateway/internal/gateway"
	"github.com/noah-isme/fincra-gateway/internal/health"
	"github.com/noah-isme/fincra-gateway/internal/lock"
	"github.com/noah-isme/fincra-gateway/internal/migration"
	"github.com/noah-isme/fincra-gateway/internal/obs"
	"github.com/noah-isme/fincra-gateway/internal/order"
	"github.com/noah-isme/fincra-gateway/internal/ratelimit"
	"github.com/noah-isme/fincra-gateway/internal/resilience"
	"github.com/noah-isme/fincra-gateway/internal/settings"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "fincra")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "fincra-gateway",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if cfg.MigrateOnStart {
		if err := migration.Up(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
		logger.Info().Msg("migrations applied")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "fincra-gateway"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	orders := order.PGStore{DB: pool}
	settingsSvc := settings.NewService(settings.PGRepository{DB: pool}, logger)

	breaker := resilience.NewBreaker(cfg.FincraBreakerMin, cfg.FincraBreakerRatio, cfg.FincraBreakerOpenFor).
		WithTarget("fincra").
		WithLogger(logger)
	client := fincra.NewClient(fincra.Options{
		SandboxBaseURL:    cfg.FincraSandboxBaseURL,
		ProductionBaseURL: cfg.FincraProductionBaseURL,
		Timeout:           cfg.FincraRequestTimeout,
		Breaker:           breaker,
	})

	gw := &gateway.Gateway{
		Orders:        orders,
		Settings:      settingsSvc,
		Client:        client,
		PublicBaseURL: cfg.PublicBaseURL,
		StoreCurrency: cfg.StoreCurrency,
		Logger:        logger,
	}
	webhook := &gateway.Webhook{
		Orders:       orders,
		Carts:        cart.Store{R: redisClient},
		Settings:     settingsSvc,
		Replay:       redisClient,
		ReplayTTL:    cfg.WebhookReplayTTL,
		Locker:       lock.Locker{R: redisClient},
		LockTTL:      cfg.WebhookLockTTL,
		MaxBodyBytes: cfg.WebhookMaxBodyBytes,
		Logger:       logger,
	}

	checkoutLimiter, err := ratelimit.New(redisClient, cfg.CheckoutRateLimit, "")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise checkout rate limiter")
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	router := newRouter(routerDeps{
		Logger:         logger,
		Tracing:        tracingEnabled,
		Metrics:        httpMetrics,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		EnablePprof:    envBool("OBS_ENABLE_PPROF", true),
		PprofUser:      envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", ""),
		PprofPass:      envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", ""),
		Health: health.Handler{
			Probes: map[string]health.Probe{
				"db":    health.PostgresProbe(pool),
				"redis": health.RedisProbe(redisClient),
			},
			Timeout: envDurationMillis("HEALTH_READY_TIMEOUT_MS", 500),
		},
		Storefront:   &gateway.Handler{Gateway: gw, Orders: orders, Settings: settingsSvc},
		Webhook:      webhook,
		WebhookLimit: cfg.WebhookMaxBodyBytes,
		Settings:     &settings.Handler{Svc: settingsSvc},
		Admin:        auth.Middleware{Verifier: auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)},
		CheckoutLimit: ratelimit.Handler{
			Limiter: checkoutLimiter,
			OnError: func(err error) { logger.Warn().Err(err).Msg("checkout rate limiter unavailable") },
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// checkout blocks on Fincra for up to the request timeout
		WriteTimeout: cfg.FincraRequestTimeout + 15*time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-sigCtx.Done():
		health.SetReady(false)
		logger.Info().Msg("shutting down")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}
}
