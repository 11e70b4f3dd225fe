package cache

import (
	"context"

	"github.com/always-cache/stalier/pkg/metrics"
)

type instrumented[T any] struct {
	name string
	next Store[T]
}

// Instrument wraps a store so that its operations show up in the Prometheus metrics,
// labelled with the given name.
func Instrument[T any](name string, store Store[T]) Store[T] {
	return instrumented[T]{name: name, next: store}
}

func (i instrumented[T]) Get(ctx context.Context, key string) (*Entry[T], error) {
	done := metrics.TimeStoreOperation("get", i.name)
	entry, err := i.next.Get(ctx, key)
	done()
	switch {
	case err != nil:
		metrics.RecordStoreError("get", i.name)
	case entry == nil:
		metrics.RecordStoreLookup(i.name, false)
	default:
		metrics.RecordStoreLookup(i.name, true)
	}
	return entry, err
}

func (i instrumented[T]) Set(ctx context.Context, key string, entry Entry[T]) error {
	done := metrics.TimeStoreOperation("set", i.name)
	err := i.next.Set(ctx, key, entry)
	done()
	if err != nil {
		metrics.RecordStoreError("set", i.name)
	}
	return err
}
