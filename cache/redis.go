package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:generate mockgen -source=redis.go -destination=mock/redis_client.go -package=mock

// RedisClient is the subset of the go-redis client used by RedisCache.
// *redis.Client implements it.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

var _ Store[string] = (*RedisCache[string])(nil)

// RedisCache stores JSON encoded entries in Redis (or a compatible server such as KeyDB).
type RedisCache[T any] struct {
	client     RedisClient
	expiration time.Duration
}

// NewRedisCache creates a cache on top of the given client.
// Keys expire after the given duration, zero means keys are kept until evicted by the server.
func NewRedisCache[T any](client RedisClient, expiration time.Duration) *RedisCache[T] {
	return &RedisCache[T]{
		client:     client,
		expiration: expiration,
	}
}

type RedisOptions struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// DialRedis connects to the server at the given URL (redis://[:password@]host[:port][/db])
// and makes sure it responds.
func DialRedis(ctx context.Context, url string, opts RedisOptions) (*redis.Client, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if opts.DialTimeout > 0 {
		options.DialTimeout = opts.DialTimeout
	}
	if opts.ReadTimeout > 0 {
		options.ReadTimeout = opts.ReadTimeout
	}
	if opts.WriteTimeout > 0 {
		options.WriteTimeout = opts.WriteTimeout
	}
	if opts.PoolSize > 0 {
		options.PoolSize = opts.PoolSize
	}

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", options.Addr, err)
	}
	return client, nil
}

func (rc *RedisCache[T]) Get(ctx context.Context, key string) (*Entry[T], error) {
	data, err := rc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeEntry[T](data)
}

func (rc *RedisCache[T]) Set(ctx context.Context, key string, entry Entry[T]) error {
	data, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, key, data, rc.expiration).Err()
}

func (rc *RedisCache[T]) Close() error {
	return rc.client.Close()
}
