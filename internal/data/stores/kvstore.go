package stores

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/tasksync/internal/core/kv"
	"github.com/colonyops/tasksync/internal/data/db"
)

// KVStore implements kv.KV on the kv_store table. Expired rows are treated
// as missing on read and removed lazily.
type KVStore struct {
	base
	now func() time.Time
}

var _ kv.KV = (*KVStore)(nil)

// NewKVStore creates a new SQLite-backed KV store.
func NewKVStore(db *db.DB) *KVStore {
	return &KVStore{base: base{db: db}, now: time.Now}
}

// Get returns the raw value at key.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	row, err := s.q().KVGet(ctx, key)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, kv.ErrMiss
		}
		return nil, fmt.Errorf("kv get %q: %w", key, err)
	}

	if row.ExpiresAt.Valid && row.ExpiresAt.Int64 <= nanos(s.now()) {
		_ = s.q().KVDelete(ctx, key)
		return nil, kv.ErrMiss
	}

	return row.Value, nil
}

// Put stores raw at key, replacing any previous value and expiry.
func (s *KVStore) Put(ctx context.Context, key string, raw []byte, ttl time.Duration) error {
	now := s.now()

	var expires sql.NullInt64
	if ttl > 0 {
		expires = sql.NullInt64{Int64: nanos(now.Add(ttl)), Valid: true}
	}

	err := s.q().KVSet(ctx, db.KVSetParams{
		Key:       key,
		Value:     raw,
		ExpiresAt: expires,
		CreatedAt: nanos(now),
		UpdatedAt: nanos(now),
	})
	if err != nil {
		return fmt.Errorf("kv put %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.q().KVDelete(ctx, key); err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

// Keys returns the live keys starting with prefix.
func (s *KVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	now := sql.NullInt64{Int64: nanos(s.now()), Valid: true}
	all, err := s.q().KVListKeys(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("kv keys: %w", err)
	}

	keys := make([]string, 0, len(all))
	for _, k := range all {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Sweep removes every expired entry.
func (s *KVStore) Sweep(ctx context.Context) (int64, error) {
	now := sql.NullInt64{Int64: nanos(s.now()), Valid: true}
	n, err := s.q().KVSweepExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("kv sweep: %w", err)
	}
	return n, nil
}
