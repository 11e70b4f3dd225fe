package cache

import (
	"context"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"
)

var _ Store[string] = (*BigCache[string])(nil)

type BigCacheConfig struct {
	// Time after which bigcache may evict an entry. Defaults to 10 minutes.
	LifeWindow time.Duration
	// Upper limit of the cache size in MB. Zero means no limit.
	HardMaxCacheSize int
	// Expected max entry size in bytes, used for initial allocation only.
	MaxEntrySize int
}

// BigCache stores JSON encoded entries in an in-process bigcache instance.
type BigCache[T any] struct {
	cache *bigcache.BigCache
}

func NewBigCache[T any](ctx context.Context, cfg BigCacheConfig) (*BigCache[T], error) {
	lifeWindow := cfg.LifeWindow
	if lifeWindow <= 0 {
		lifeWindow = 10 * time.Minute
	}
	config := bigcache.DefaultConfig(lifeWindow)
	config.HardMaxCacheSize = cfg.HardMaxCacheSize
	config.Verbose = false
	if cfg.MaxEntrySize > 0 {
		config.MaxEntrySize = cfg.MaxEntrySize
	}

	cache, err := bigcache.New(ctx, config)
	if err != nil {
		return nil, err
	}
	return &BigCache[T]{cache: cache}, nil
}

func (bc *BigCache[T]) Get(ctx context.Context, key string) (*Entry[T], error) {
	data, err := bc.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry, err := decodeEntry[T](data)
	if err != nil {
		// remove corrupted entry
		_ = bc.cache.Delete(key)
		return nil, err
	}
	return entry, nil
}

func (bc *BigCache[T]) Set(ctx context.Context, key string, entry Entry[T]) error {
	data, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	return bc.cache.Set(key, data)
}

// Len returns the number of entries held by bigcache.
func (bc *BigCache[T]) Len() int {
	return bc.cache.Len()
}

func (bc *BigCache[T]) Close() error {
	return bc.cache.Close()
}
