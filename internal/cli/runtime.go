package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mcq-practice-service/internal/app"
	"mcq-practice-service/internal/config"
	"mcq-practice-service/internal/docstore"
	"mcq-practice-service/internal/infra/localfs"
	"mcq-practice-service/internal/infra/memory"
	"mcq-practice-service/internal/infra/postgres"
	infraredis "mcq-practice-service/internal/infra/redis"
	"mcq-practice-service/internal/logging"
	"mcq-practice-service/internal/metrics"
)

// runtime is everything a command needs to talk to the configured backend.
type runtime struct {
	cfg     config.Config
	logger  *zap.Logger
	redis   *redis.Client
	store   docstore.Store
	service *app.Service
	closers []func()
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	_ = rt.logger.Sync()
}

func newRuntime(ctx context.Context, configPath string) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return nil, err
	}
	metrics.Init()

	rt := &runtime{cfg: cfg, logger: logger}

	if cfg.Redis.Addr != "" {
		rt.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = rt.redis.Close() })
	}

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		if err := runMigrations(ctx, cfg, logger); err != nil {
			rt.Close()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.closers = append(rt.closers, pool.Close)
		rt.store = postgres.NewStore(pool)
	case config.BackendRedis:
		rt.store = infraredis.NewStore(rt.redis)
	default:
		logger.Warn("using in-memory document store, data is lost on exit")
		rt.store = memory.NewStore()
	}

	local, err := localfs.NewStore(cfg.Local.Dir)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("local store: %w", err)
	}

	var opts []app.Option
	if raw := cfg.Cache.CategoriesTTL; raw != "" {
		ttl := config.TTLDuration(raw, 5*time.Minute)
		if rt.redis != nil {
			opts = append(opts, app.WithCategoryCache(infraredis.NewCategoryCache(rt.redis, ttl, logger)))
		} else {
			opts = append(opts, app.WithCategoryCache(memory.NewCategoryCache(ttl)))
		}
	}
	rt.service = app.NewService(rt.store, local, logger, opts...)

	logger.Info("runtime ready",
		zap.String("backend", cfg.Store.Backend),
		zap.Bool("redis", rt.redis != nil),
		zap.String("local_dir", cfg.Local.Dir),
	)
	return rt, nil
}

func (rt *runtime) sessionRepository() app.SessionRepository {
	if rt.redis != nil {
		return infraredis.NewSessionStore(rt.redis, config.TTLDuration(rt.cfg.Redis.TTL, 30*time.Minute))
	}
	return memory.NewSessionStore()
}
