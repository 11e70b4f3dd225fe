package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurgePrefix(t *testing.T) {
	ctx := context.Background()
	for name, store := range map[string]interface {
		Store[string]
		Purger
	}{
		"memory": NewMemCache[string](),
		"sqlite": newTestSQLiteCache[string](t),
	} {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"app-GET-a", "app-GET-b", "app-POST-a"} {
				require.NoError(t, store.Set(ctx, key, Entry[string]{Value: key}))
			}

			purged, err := PurgePrefix(ctx, store, "app-GET-")
			require.NoError(t, err)
			assert.Equal(t, 2, purged)

			for key, present := range map[string]bool{"app-GET-a": false, "app-GET-b": false, "app-POST-a": true} {
				entry, err := store.Get(ctx, key)
				require.NoError(t, err)
				assert.Equal(t, present, entry != nil, key)
			}
		})
	}
}

type failingPurger struct {
	*MemCache[string]
}

func (f failingPurger) Purge(ctx context.Context, key string) error {
	if key == "bad" {
		return errors.New("purge failed")
	}
	return f.MemCache.Purge(ctx, key)
}

func TestPurgePrefixErrors(t *testing.T) {
	ctx := context.Background()
	mem := NewMemCache[string]()
	require.NoError(t, mem.Set(ctx, "bad", Entry[string]{}))
	require.NoError(t, mem.Set(ctx, "bag", Entry[string]{}))

	purged, err := PurgePrefix(ctx, failingPurger{mem}, "ba")
	assert.EqualError(t, err, "purge failed")
	assert.Equal(t, 1, purged)
	assert.Equal(t, 1, mem.Len())
}
