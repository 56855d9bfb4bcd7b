// Package bootstrap assembles the optimizer and its collaborators from a
// configuration directory. Both the HTTP gateway and the CLI start here.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/af-corp/docai-gateway/internal/audit"
	"github.com/af-corp/docai-gateway/internal/cache"
	"github.com/af-corp/docai-gateway/internal/config"
	"github.com/af-corp/docai-gateway/internal/guard"
	"github.com/af-corp/docai-gateway/internal/optimizer"
	"github.com/af-corp/docai-gateway/internal/ratelimit"
	"github.com/af-corp/docai-gateway/internal/remote"
	"github.com/af-corp/docai-gateway/internal/review"
	"github.com/af-corp/docai-gateway/internal/router"
	"github.com/af-corp/docai-gateway/internal/telemetry"
)

// App is a fully wired optimizer with the handles a front-end needs.
type App struct {
	Loader    *config.Loader
	Optimizer *optimizer.Optimizer
	Reviewer  *review.Evaluator
	Health    *router.HealthTracker
	Registry  *router.Registry
	Limiter   ratelimit.Admitter
	Metrics   *prometheus.Registry

	closers []func()
}

// NewLogger builds the process logger from telemetry settings.
func NewLogger(cfg config.TelemetryConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// New loads configuration from configDir and wires every component.
// Redis and PostgreSQL are optional: when unreachable the optimizer runs
// with in-process state and without the persistent failure log.
func New(ctx context.Context, configDir string) (*App, error) {
	loader := config.NewLoader(configDir, slog.Default())
	if err := loader.Load(); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	cfg := loader.Config()
	slog.SetDefault(NewLogger(cfg.Telemetry))

	app := &App{Loader: loader, Metrics: prometheus.NewRegistry()}
	app.Metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(app.Metrics)

	rdb := connectRedis(ctx, cfg.Redis)
	if rdb != nil {
		app.closers = append(app.closers, func() { rdb.Close() })
	}

	local, err := cache.NewMemoryStore(cfg.Optimizer.CacheMaxEntries)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	var store cache.Store = local
	if rdb != nil {
		store = cache.NewLayered(local, cache.NewRedisStore(rdb))
	}

	if rdb != nil {
		app.Limiter = ratelimit.NewRedisWindow(rdb, "remote", cfg.Optimizer.RateLimitPerMinute)
	} else {
		app.Limiter = ratelimit.NewWindow(cfg.Optimizer.RateLimitPerMinute)
	}

	cb := cfg.Routing.CircuitBreaker
	app.Health = router.NewHealthTracker(cb.FailureThreshold, cb.RecoveryProbeInterval)
	app.Registry = router.BuildFromConfig(ctx, loader.Providers())
	slog.Info("providers registered", "providers", app.Registry.Names())

	client := remote.NewClient(app.Registry, app.Health, loader.Routes, func() remote.Settings {
		return remote.SettingsFromConfig(loader.Config().Optimizer)
	})

	opts := []optimizer.Option{
		optimizer.WithConfig(func() config.OptimizerConfig { return loader.Config().Optimizer }),
		optimizer.WithGuard(
			guard.NewScanner(guard.WithInjectionThreshold(func() float64 { return loader.Config().Guard.InjectionThreshold })),
			func() bool { return loader.Config().Guard.Enabled },
		),
		optimizer.WithMetrics(metrics),
	}
	if sink := app.connectAudit(ctx, cfg.Database); sink != nil {
		opts = append(opts, optimizer.WithAuditRecorder(sink))
	}
	app.Optimizer = optimizer.New(store, app.Limiter, client, opts...)

	app.Reviewer = review.NewEvaluator(func() config.ReviewConfig { return loader.Config().Review })
	if cfg.Review.Enabled {
		if err := app.Reviewer.Load(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("load review policy: %w", err)
		}
	}

	loader.OnReload(func() { app.reload(ctx) })
	return app, nil
}

// reload applies settings that are not read through getters.
func (a *App) reload(ctx context.Context) {
	cfg := a.Loader.Config()
	a.Limiter.SetLimit(cfg.Optimizer.RateLimitPerMinute)
	a.Registry.Replace(router.BuildFromConfig(ctx, a.Loader.Providers()))
	if cfg.Review.Enabled {
		if err := a.Reviewer.Load(ctx); err != nil {
			slog.Error("failed to reload review policy, keeping previous", "error", err)
		}
	}
	slog.Info("configuration applied", "rate_limit_per_minute", cfg.Optimizer.RateLimitPerMinute, "providers", a.Registry.Names())
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if len(cfg.Addresses) == 0 || cfg.Addresses[0] == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addresses[0],
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis not reachable (cache and rate window stay in-process)", "error", err)
		rdb.Close()
		return nil
	}
	slog.Info("redis connected", "addr", cfg.Addresses[0])
	return rdb
}

func (a *App) connectAudit(ctx context.Context, cfg config.DatabaseConfig) audit.Recorder {
	if !cfg.Enabled {
		return nil
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		slog.Warn("invalid database configuration (failure audit disabled)", "error", err)
		return nil
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		slog.Warn("failed to create database pool (failure audit disabled)", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		slog.Warn("database not reachable (failure audit disabled)", "error", err)
		pool.Close()
		return nil
	}
	slog.Info("database connected")

	sink := audit.NewPGSink(pool, cfg.WriteTimeout)
	a.closers = append(a.closers, func() {
		sink.Wait()
		pool.Close()
	})
	return sink
}
