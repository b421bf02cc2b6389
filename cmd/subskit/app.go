package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/subskit/pkg/config"
	"github.com/dmitrymomot/subskit/pkg/environment"
	"github.com/dmitrymomot/subskit/pkg/lock"
	"github.com/dmitrymomot/subskit/pkg/logger"
	"github.com/dmitrymomot/subskit/pkg/pg"
	"github.com/dmitrymomot/subskit/pkg/redis"
	"github.com/dmitrymomot/subskit/pkg/subscription"
	"github.com/dmitrymomot/subskit/pkg/sweep"
)

// appConfig holds process-level settings shared by every subcommand.
type appConfig struct {
	Env              string `env:"APP_ENV" envDefault:"development"`
	ServiceName      string `env:"SERVICE_NAME" envDefault:"subskit"`
	RedisLockEnabled bool   `env:"REDIS_LOCK_ENABLED" envDefault:"false"`
}

// app wires configuration, storage and the subscription service for one
// command invocation. Close releases the connections.
type app struct {
	cfg    appConfig
	log    *slog.Logger
	pool   *pgxpool.Pool
	redis  *goredis.Client
	store  *subscription.PostgresStore
	svc    subscription.Service
	runner *sweep.Runner
}

func newApp(ctx context.Context) (*app, error) {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	log := newLogger(cfg)
	logger.SetAsDefault(log)

	var pgCfg pg.Config
	if err := config.Load(&pgCfg); err != nil {
		return nil, err
	}
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, pool: pool}

	var subCfg subscription.Config
	if err := config.Load(&subCfg); err != nil {
		a.Close()
		return nil, err
	}

	opts := []subscription.ServiceOption{
		subscription.WithConfig(subCfg),
		subscription.WithLogger(log),
		subscription.WithSink(eventLogSink(log)),
	}

	// A single instance is safe with the in-process locker; shared
	// deployments coordinate through Redis instead.
	if cfg.RedisLockEnabled {
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			a.Close()
			return nil, err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		opts = append(opts, subscription.WithLocker(lock.NewRedisLocker(client)))
		log.InfoContext(ctx, "distributed locking enabled")
	}

	a.store = subscription.NewPostgresStore(pool)
	a.svc = subscription.NewService(a.store, opts...)
	a.runner = sweep.NewRunner(a.svc, a.store, sweep.WithLogger(log))
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

func newLogger(cfg appConfig) *slog.Logger {
	return logger.New(
		logger.WithEnvironment(cfg.Env, cfg.ServiceName),
		logger.WithContextExtractors(environment.LoggerExtractor()),
	)
}

// eventLogSink records every published event. It stands in for the
// message bus integration host applications usually register here.
func eventLogSink(log *slog.Logger) subscription.Sink {
	return subscription.SinkFunc(func(ctx context.Context, events ...subscription.Event) error {
		for _, event := range events {
			log.InfoContext(ctx, "subscription event", logger.Event(event.EventName()))
		}
		return nil
	})
}
