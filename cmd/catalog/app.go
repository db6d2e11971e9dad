package main

import (
	"context"
	"fmt"

	"github.com/Sternrassler/course-catalog/internal/config"
	"github.com/Sternrassler/course-catalog/pkg/cache"
	"github.com/Sternrassler/course-catalog/pkg/catalog"
	"github.com/Sternrassler/course-catalog/pkg/client"
	"github.com/Sternrassler/course-catalog/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// app is the application root: it owns the session cache, the store and
// the orchestrator shared by every view.
type app struct {
	cfg    *config.Config
	store  cache.Store
	orch   *catalog.Orchestrator
	nav    *catalog.Navigator
	logger zerolog.Logger

	closeStore func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logging.Setup(cfg.LoggingConfig())
	logger := logging.NewLogger("cli")

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c, err := client.New(cfg.ClientConfig())
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	orch, err := catalog.New(catalog.Config{
		Fetcher: c,
		Store:   store,
		Session: cache.NewSession(cfg.SessionTTL),
	})
	if err != nil {
		closeStore()
		return nil, err
	}

	logger.Debug().
		Str("store", cfg.Store).
		Str("base_url", cfg.BaseURL).
		Dur("session_ttl", cfg.SessionTTL).
		Msg("Application ready")

	return &app{
		cfg:        cfg,
		store:      store,
		orch:       orch,
		nav:        catalog.NewNavigator(orch),
		logger:     logger,
		closeStore: closeStore,
	}, nil
}

// Close cancels pending views and releases the store.
func (a *app) Close() error {
	a.nav.Close()
	return a.closeStore()
}

// openStore connects the persistent tier selected by cfg.Store.
func openStore(ctx context.Context, cfg *config.Config) (cache.Store, func() error, error) {
	switch cfg.Store {
	case config.StoreRedis:
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return cache.NewRedisStore(redisClient, cfg.RedisPrefix), redisClient.Close, nil

	case config.StoreSQLite:
		s, err := cache.OpenSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	default:
		return cache.NewMemoryStore(), func() error { return nil }, nil
	}
}
