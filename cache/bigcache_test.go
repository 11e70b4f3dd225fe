package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBigCache[T any](t *testing.T) *BigCache[T] {
	t.Helper()
	c, err := NewBigCache[T](context.Background(), BigCacheConfig{LifeWindow: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestBigCacheGetMissing(t *testing.T) {
	c := newTestBigCache[string](t)

	entry, err := c.Get(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestBigCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c := newTestBigCache[payload](t)

	want := Entry[payload]{Value: payload{Name: "a", Count: 3}, LastUpdated: 1234, UpdatedCount: 5}
	require.NoError(t, c.Set(ctx, "k", want))

	entry, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, &want, entry)
	assert.Equal(t, 1, c.Len())
}

func TestBigCacheCorruptEntryIsRemoved(t *testing.T) {
	ctx := context.Background()
	c := newTestBigCache[string](t)
	require.NoError(t, c.cache.Set("k", []byte("{broken")))

	entry, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCorruptEntry)
	assert.Nil(t, entry)

	entry, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestBigCacheDefaultLifeWindow(t *testing.T) {
	c, err := NewBigCache[string](context.Background(), BigCacheConfig{})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(context.Background(), "k", Entry[string]{Value: "v"}))
	entry, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "v", entry.Value)
}
