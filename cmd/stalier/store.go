package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/always-cache/stalier/cache"
	"github.com/always-cache/stalier/internal/config"
	serializer "github.com/always-cache/stalier/pkg/response-serializer"
)

type responseStore = cache.Store[serializer.Response]

// newStore creates the configured store, instrumented for metrics.
// The purger is nil for stores that cannot list their keys.
// The returned function releases the store's resources.
func newStore(ctx context.Context, cfg config.StoreConfig) (responseStore, cache.Purger, func(), error) {
	switch cfg.Type {
	case "memory":
		store := cache.NewMemCache[serializer.Response]()
		return cache.Instrument[serializer.Response]("memory", store), store, func() {}, nil

	case "sqlite":
		path := cfg.SQLite.Path
		if path == "memory" {
			path = ""
		}
		store, err := cache.NewSQLiteCache[serializer.Response](path)
		if err != nil {
			return nil, nil, nil, err
		}
		return cache.Instrument[serializer.Response]("sqlite", store), store, closer("sqlite", store.Close), nil

	case "bigcache":
		store, err := newBigCache(ctx, cfg.BigCache)
		if err != nil {
			return nil, nil, nil, err
		}
		return cache.Instrument[serializer.Response]("bigcache", store), nil, closer("bigcache", store.Close), nil

	case "redis":
		store, err := newRedisCache(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		return cache.Instrument[serializer.Response]("redis", store), nil, closer("redis", store.Close), nil

	case "tiered":
		local, err := newBigCache(ctx, cfg.BigCache)
		if err != nil {
			return nil, nil, nil, err
		}
		remote, err := newRedisCache(ctx, cfg.Redis)
		if err != nil {
			local.Close()
			return nil, nil, nil, err
		}
		store := cache.NewMultiCache[serializer.Response](
			cache.Instrument[serializer.Response]("bigcache", local),
			cache.Instrument[serializer.Response]("redis", remote),
		)
		return store, nil, func() {
			closer("bigcache", local.Close)()
			closer("redis", remote.Close)()
		}, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store type %q", cfg.Type)
}

func newBigCache(ctx context.Context, cfg config.BigCacheConfig) (*cache.BigCache[serializer.Response], error) {
	return cache.NewBigCache[serializer.Response](ctx, cache.BigCacheConfig{
		LifeWindow:       cfg.LifeWindow,
		HardMaxCacheSize: cfg.HardMaxCacheSize,
		MaxEntrySize:     cfg.MaxEntrySize,
	})
}

func newRedisCache(ctx context.Context, cfg config.RedisConfig) (*cache.RedisCache[serializer.Response], error) {
	client, err := cache.DialRedis(ctx, cfg.URL, cache.RedisOptions{
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})
	if err != nil {
		return nil, err
	}
	return cache.NewRedisCache[serializer.Response](client, cfg.Expiration), nil
}

func closer(name string, close func() error) func() {
	return func() {
		if err := close(); err != nil {
			log.Warn().Err(err).Str("store", name).Msg("Could not close store")
		}
	}
}
