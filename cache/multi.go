package cache

import (
	"context"
	"errors"
)

var _ Store[string] = (*MultiCache[string])(nil)

// MultiCache chains stores, e.g. a local in-memory layer in front of a shared remote one.
type MultiCache[T any] struct {
	layers []Store[T]
}

func NewMultiCache[T any](layers ...Store[T]) *MultiCache[T] {
	return &MultiCache[T]{layers: layers}
}

// Get returns the entry from the first layer that has it.
// Layer errors are only returned if no layer has the entry.
func (mc *MultiCache[T]) Get(ctx context.Context, key string) (*Entry[T], error) {
	var errs []error
	for _, layer := range mc.layers {
		entry, err := layer.Get(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if entry != nil {
			return entry, nil
		}
	}
	return nil, errors.Join(errs...)
}

// Set writes the entry to all layers.
func (mc *MultiCache[T]) Set(ctx context.Context, key string, entry Entry[T]) error {
	var errs []error
	for _, layer := range mc.layers {
		if err := layer.Set(ctx, key, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Layers returns the number of chained stores.
func (mc *MultiCache[T]) Layers() int {
	return len(mc.layers)
}
