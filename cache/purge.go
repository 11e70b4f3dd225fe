package cache

import (
	"context"
	"errors"
)

// Purger is implemented by stores that can list and remove their entries.
type Purger interface {
	// AllKeys calls cb for each stored key starting with prefix.
	AllKeys(ctx context.Context, prefix string, cb func(string)) error
	// Purge removes the entry stored under key.
	Purge(ctx context.Context, key string) error
}

var (
	_ Purger = (*MemCache[string])(nil)
	_ Purger = (*SQLiteCache[string])(nil)
)

// PurgePrefix removes all entries whose key starts with prefix
// and returns the number of removed entries.
// Keys are collected first, so the store is not modified while being listed.
func PurgePrefix(ctx context.Context, p Purger, prefix string) (int, error) {
	var keys []string
	if err := p.AllKeys(ctx, prefix, func(key string) {
		keys = append(keys, key)
	}); err != nil {
		return 0, err
	}
	var errs []error
	purged := 0
	for _, key := range keys {
		if err := p.Purge(ctx, key); err != nil {
			errs = append(errs, err)
			continue
		}
		purged++
	}
	return purged, errors.Join(errs...)
}
