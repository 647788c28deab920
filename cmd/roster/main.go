package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/roster/pkg/api"
	"github.com/platinummonkey/roster/pkg/audit"
	"github.com/platinummonkey/roster/pkg/auth"
	"github.com/platinummonkey/roster/pkg/config"
	"github.com/platinummonkey/roster/pkg/directory"
	"github.com/platinummonkey/roster/pkg/fixtures"
	"github.com/platinummonkey/roster/pkg/middleware"
	"github.com/platinummonkey/roster/pkg/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "roster: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"driver": cfg.Database.Driver,
		"port":   cfg.Server.Port,
	}).Info("starting roster")

	ctx := context.Background()

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := directory.RunMigrations(ctx, db, cfg.Database.Driver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("migrations applied")

	service := directory.NewSQLService(db, cfg.Database.Driver)

	if cfg.SeedFile != "" {
		if err := fixtures.LoadAndApply(ctx, service, cfg.SeedFile); err != nil {
			return fmt.Errorf("failed to apply seed file: %w", err)
		}
		logger.WithField("file", cfg.SeedFile).Info("seed fixtures applied")
	}

	tokenStore := auth.NewTokenStore(db)
	tokens := auth.NewTokenManager(tokenStore, cfg.Auth.TokenTTL)
	resolver := auth.NewResolver(tokens, service, cfg.Auth.ResolverCacheTTL)

	// The audit trail is written to the database and mirrored to logrus so
	// security events survive even when the database insert fails.
	auditLog := logrus.New()
	auditLog.SetFormatter(&logrus.JSONFormatter{})
	recorder, err := audit.NewDBRecorder(db, auditLog)
	if err != nil {
		return fmt.Errorf("failed to create audit recorder: %w", err)
	}
	denials := audit.NewDenialRecorder(recorder, auditLog)

	sweeper := audit.NewRetentionSweeper(db, tokenStore, cfg.Audit.Retention, auditLog)
	if err := sweeper.Start(cfg.Audit.SweepSchedule); err != nil {
		return fmt.Errorf("failed to start retention sweeper: %w", err)
	}
	defer sweeper.Stop()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// The limiter fails open and readiness reports degraded, so a
			// redis outage at boot is not fatal.
			logger.WithError(err).Warn("redis unreachable at startup")
		}
		defer redisClient.Close()
	}

	opts := []api.ServerOption{
		api.WithAuditRecorder(recorder, denials),
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
		opts = append(opts, api.WithMetrics(metrics))
	}

	if redisClient != nil {
		opts = append(opts, api.WithRateLimiter(middleware.NewRateLimitMiddleware(redisClient)))
	}

	if cfg.Auth.OIDCEnabled {
		oidcProvider, err := auth.NewOIDCProvider(ctx, auth.OIDCConfig{
			IssuerURL:    cfg.Auth.OIDCIssuer,
			ClientID:     cfg.Auth.OIDCClientID,
			ClientSecret: cfg.Auth.OIDCClientSecret,
			RedirectURL:  cfg.Auth.OIDCRedirectURL,
		})
		if err != nil {
			return fmt.Errorf("failed to configure OIDC: %w", err)
		}
		opts = append(opts, api.WithOIDC(oidcProvider))
		logger.WithField("issuer", cfg.Auth.OIDCIssuer).Info("OIDC login enabled")
	}

	var otelProviders *observability.OTelProviders
	if cfg.Observability.OTelEnabled {
		otelProviders, err = observability.InitOTel(ctx, observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Insecure:       cfg.Observability.OTelInsecure,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}
		opts = append(opts, api.WithTracing())
	}

	server := api.NewServer(service, resolver, tokens, logger, opts...)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", observability.Handler(registry))
	}
	healthServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:      healthMux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if metrics != nil {
		go observePoolStats(ctx, db, metrics)
	}

	shutdown := observability.NewShutdownManager(logger, apiServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(shutdownCtx context.Context) error {
		return healthServer.Shutdown(shutdownCtx)
	})
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(func(shutdownCtx context.Context) error {
			return observability.ShutdownOTel(shutdownCtx, otelProviders, logger)
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		done := make(chan error, 1)
		go func() { done <- shutdown.WaitForShutdown() }()
		select {
		case err := <-done:
			return err
		case <-gctx.Done():
			// A sibling failed; drain both listeners so Wait can return
			// the original error.
			drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = apiServer.Shutdown(drainCtx)
			_ = healthServer.Shutdown(drainCtx)
			return nil
		}
	})

	return g.Wait()
}

// observePoolStats samples the sql connection pool into the gauges every
// fifteen seconds until the process exits.
func observePoolStats(ctx context.Context, db *sql.DB, metrics *observability.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			metrics.DBConnectionsActive.Set(float64(stats.InUse))
			metrics.DBConnectionsIdle.Set(float64(stats.Idle))
		}
	}
}
