package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/tasksync/internal/data/db"
)

// base resolves the query set a store runs against: the transaction it was
// bound to by a Transactor, or the shared connection otherwise.
type base struct {
	db *db.DB
	tx *db.Queries
}

func (b base) q() *db.Queries {
	if b.tx != nil {
		return b.tx
	}
	return b.db.Queries()
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func fromNullString(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

func nanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n)
}

// encodeLines stores a context window as a JSON array so empty lines survive.
func encodeLines(lines []string) string {
	if lines == nil {
		lines = []string{}
	}
	bits, _ := json.Marshal(lines)
	return string(bits)
}

func decodeLines(raw string) ([]string, error) {
	lines := []string{}
	if raw == "" {
		return lines, nil
	}
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("decode context lines: %w", err)
	}
	return lines, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// atomic runs fn inside the store's transaction when bound to one, and in a
// fresh transaction otherwise.
func (b base) atomic(ctx context.Context, fn func(*db.Queries) error) error {
	if b.tx != nil {
		return fn(b.tx)
	}
	return b.db.WithTx(ctx, fn)
}
