package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// cacheRepo implements CacheRepo over the session_cache table.
type cacheRepo struct {
	db *sql.DB
}

func (r *cacheRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM session_cache WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache %s: %w", key, err)
	}
	return []byte(value), nil
}

func (r *cacheRepo) Put(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_cache (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		key, string(value))
	if err != nil {
		return fmt.Errorf("put cache %s: %w", key, err)
	}
	return nil
}

func (r *cacheRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM session_cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete cache %s: %w", key, err)
	}
	return nil
}

// MemoryCache is an in-process CacheRepo for tests and callers that want
// session-only volatility.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryCache) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.entries[key] = v
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
