package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/glebarez/go-sqlite"
)

var _ Store[string] = (*SQLiteCache[string])(nil)

// SQLiteCache stores entries in a SQLite database.
// Values are stored JSON encoded.
type SQLiteCache[T any] struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteCache creates a new cache with the given filename as the db.
// If file name is empty, a new in-memory db is opened.
func NewSQLiteCache[T any](filename string) (*SQLiteCache[T], error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("could not open sqlite db %s: %w", filename, err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS stalier_cache (
		key TEXT PRIMARY KEY,
		last_updated INTEGER,
		updated_count INTEGER,
		value BLOB
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create cache table: %w", err)
	}
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not set journal mode: %w", err)
	}
	return &SQLiteCache[T]{
		db:         db,
		writeMutex: &sync.Mutex{},
	}, nil
}

func (s *SQLiteCache[T]) Get(ctx context.Context, key string) (*Entry[T], error) {
	var (
		entry Entry[T]
		value []byte
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT last_updated, updated_count, value FROM stalier_cache WHERE key = ?", key,
	).Scan(&entry.LastUpdated, &entry.UpdatedCount, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(value, &entry.Value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return &entry, nil
}

func (s *SQLiteCache[T]) Set(ctx context.Context, key string, entry Entry[T]) error {
	value, err := json.Marshal(entry.Value)
	if err != nil {
		return err
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO stalier_cache
		(key, last_updated, updated_count, value) VALUES (?, ?, ?, ?)`,
		key, entry.LastUpdated, entry.UpdatedCount, value)
	return err
}

// Purge removes the cache entry for the given key.
func (s *SQLiteCache[T]) Purge(ctx context.Context, key string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM stalier_cache WHERE key = ?", key)
	return err
}

// AllKeys calls the given callback for each key with the given prefix.
func (s *SQLiteCache[T]) AllKeys(ctx context.Context, prefix string, cb func(string)) error {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM stalier_cache WHERE key LIKE ?", prefix+"%")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return err
		}
		cb(key)
	}
	return rows.Err()
}

func (s *SQLiteCache[T]) Close() error {
	return s.db.Close()
}
