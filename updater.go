package stalier

import (
	"context"
	"time"

	"github.com/always-cache/stalier/cache"
)

// updater performs detached writes for a single key.
// Nobody waits for it, so all failures end up in the log.
type updater[T any] struct {
	store cache.Store[T]
	key   string
	log   Logger
}

// revalidate calls fn and writes its result with the given revision.
func (u updater[T]) revalidate(ctx context.Context, fn Producer[T], updatedCount int) {
	defer u.recover()
	data, err := fn(ctx)
	if err != nil {
		warn(u.log, err, u.key)
		return
	}
	u.write(ctx, cache.Entry[T]{
		Value:        data,
		LastUpdated:  time.Now().UnixMilli(),
		UpdatedCount: updatedCount,
	})
}

// write stores the entry, logging a failure instead of returning it.
func (u updater[T]) write(ctx context.Context, entry cache.Entry[T]) {
	defer u.recover()
	if err := u.store.Set(ctx, u.key, entry); err != nil {
		// failure to write is not critical, the value is already returned
		warn(u.log, err, u.key)
	}
}

// recover stops a panic in the producer or the store from crashing the process.
func (u updater[T]) recover() {
	if r := recover(); r != nil {
		warnRecovered(u.log, r, u.key)
	}
}
