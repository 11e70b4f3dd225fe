package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrCorruptEntry = errors.New("cache: corrupt entry")

// Store is the capability used for persisting cache entries.
// Get returns a nil entry (and a nil error) if nothing is stored under the key.
// Eviction is up to the implementation and invisible to the callers.
//
// Implementations must be thread-safe!
type Store[T any] interface {
	// Get returns the entry stored under the given key, if it exists.
	Get(ctx context.Context, key string) (*Entry[T], error)
	// Set replaces the entry stored under the given key.
	Set(ctx context.Context, key string, entry Entry[T]) error
}

// Entry is the persisted unit of state for a single key.
type Entry[T any] struct {
	Value T `json:"value"`
	// Time of the write that created this entry, in unix milliseconds.
	LastUpdated int64 `json:"lastUpdated"`
	// Revision counter, incremented by the writer before each write.
	UpdatedCount int `json:"updatedCount"`
}

// encodeEntry is used by the providers storing raw bytes.
func encodeEntry[T any](entry Entry[T]) ([]byte, error) {
	return json.Marshal(entry)
}

func decodeEntry[T any](b []byte) (*Entry[T], error) {
	var entry Entry[T]
	if err := json.Unmarshal(b, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return &entry, nil
}
