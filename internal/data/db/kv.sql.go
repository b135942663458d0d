package db

import (
	"context"
	"database/sql"
)

func scanKV(row rowScanner) (KvStore, error) {
	var kv KvStore
	err := row.Scan(&kv.Key, &kv.Value, &kv.ExpiresAt, &kv.CreatedAt, &kv.UpdatedAt)
	return kv, err
}

func (q *Queries) KVGet(ctx context.Context, key string) (KvStore, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT key, value, expires_at, created_at, updated_at
		FROM kv_store WHERE key = ?`, key)
	return scanKV(row)
}

type KVSetParams struct {
	Key       string
	Value     []byte
	ExpiresAt sql.NullInt64
	CreatedAt int64
	UpdatedAt int64
}

func (q *Queries) KVSet(ctx context.Context, arg KVSetParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		arg.Key, arg.Value, arg.ExpiresAt, arg.CreatedAt, arg.UpdatedAt,
	)
	return err
}

func (q *Queries) KVDelete(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key)
	return err
}

func (q *Queries) KVHas(ctx context.Context, key string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_store WHERE key = ?`, key).Scan(&count)
	return count, err
}

func (q *Queries) KVListKeys(ctx context.Context, now sql.NullInt64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT key FROM kv_store
		WHERE expires_at IS NULL OR expires_at > ?
		ORDER BY key`, now)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row rowScanner) (string, error) {
		var key string
		err := row.Scan(&key)
		return key, err
	})
}

func (q *Queries) KVSweepExpired(ctx context.Context, now sql.NullInt64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM kv_store
		WHERE expires_at IS NOT NULL AND expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
