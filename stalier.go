// Package stalier implements stale-while-revalidate caching for arbitrary producer functions.
//
// A call returns a cached value immediately while it is fresh (HIT),
// returns a stale value while refreshing it in the background (STALE),
// or runs the producer and stores its result (MISS).
// If no max-age or stale window is given, the producer is just called (NO_CACHE).
// Failures of the cache store are logged and never returned to the caller.
package stalier

import (
	"context"
	"errors"
	"time"

	"github.com/always-cache/stalier/cache"
)

// Status tells how the data of a Result was obtained.
type Status string

const (
	StatusHit     Status = "HIT"
	StatusMiss    Status = "MISS"
	StatusStale   Status = "STALE"
	StatusNoCache Status = "NO_CACHE"
)

var (
	ErrInvalidPolicy = errors.New("stalier: max-age and stale-while-revalidate must not be negative")
	ErrNilStore      = errors.New("stalier: store is required when caching is enabled")
)

// Producer is the expensive operation whose result is cached.
type Producer[T any] func(ctx context.Context) (T, error)

type Options[T any] struct {
	// Max age of a cached value in seconds.
	MaxAge int
	// Seconds after max-age during which a stale value is returned
	// while it is refreshed in the background.
	// Caching is disabled if both this and MaxAge are zero.
	StaleWhileRevalidate int
	// Key to store the value under.
	Key Key
	// Storage for cache entries.
	Store cache.Store[T]
	// Logger for cache failures. A console logger is used if nil.
	Logger Logger
}

// Result is the data returned to the caller along with its cache status.
type Result[T any] struct {
	Data   T
	Status Status
}

// WithStaleWhileRevalidate returns the result of fn, either from the cache or by calling fn.
// The only error returned (apart from invalid options) is one returned by fn
// when its result is needed right away, i.e. on MISS or NO_CACHE.
//
// Background work (refreshing stale values and writing to the store) is not awaited.
// It runs with a context that keeps the values of ctx but is never canceled.
func WithStaleWhileRevalidate[T any](ctx context.Context, fn Producer[T], opts Options[T]) (Result[T], error) {
	if opts.MaxAge < 0 || opts.StaleWhileRevalidate < 0 {
		return Result[T]{}, ErrInvalidPolicy
	}
	if opts.MaxAge == 0 && opts.StaleWhileRevalidate == 0 {
		data, err := fn(ctx)
		if err != nil {
			return Result[T]{}, err
		}
		return Result[T]{Data: data, Status: StatusNoCache}, nil
	}
	if opts.Store == nil {
		return Result[T]{}, ErrNilStore
	}
	logger := opts.Logger
	if logger == nil {
		logger = consoleLogger
	}

	key := opts.Key.Resolve()
	cached := getEntry(ctx, opts.Store, key, logger)

	switch Classify(cached, opts.MaxAge, opts.StaleWhileRevalidate, time.Now()) {
	case Fresh:
		return Result[T]{Data: cached.Value, Status: StatusHit}, nil
	case Stale:
		u := updater[T]{store: opts.Store, key: key, log: logger}
		go u.revalidate(context.WithoutCancel(ctx), fn, cached.UpdatedCount+1)
		return Result[T]{Data: cached.Value, Status: StatusStale}, nil
	}

	updatedCount := 0
	if cached != nil {
		updatedCount = cached.UpdatedCount + 1
	}
	data, err := fn(ctx)
	if err != nil {
		return Result[T]{}, err
	}
	// write in a goroutine, the caller should not wait for the store
	u := updater[T]{store: opts.Store, key: key, log: logger}
	go u.write(context.WithoutCancel(ctx), cache.Entry[T]{
		Value:        data,
		LastUpdated:  time.Now().UnixMilli(),
		UpdatedCount: updatedCount,
	})
	return Result[T]{Data: data, Status: StatusMiss}, nil
}

// getEntry reads from the store.
// Any failure is logged and reported as a missing entry.
func getEntry[T any](ctx context.Context, store cache.Store[T], key string, logger Logger) (entry *cache.Entry[T]) {
	defer func() {
		if r := recover(); r != nil {
			warnRecovered(logger, r, key)
			entry = nil
		}
	}()
	entry, err := store.Get(ctx, key)
	if err != nil {
		// failure to get from cache is the same as a miss
		warn(logger, err, key)
		return nil
	}
	return entry
}
