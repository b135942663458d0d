// Package kv defines the persistent key-value store used for caching and
// small pieces of durable state.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when a key is absent or expired.
var ErrMiss = errors.New("kv: key not found")

// KV is a persistent store of raw values with optional expiry.
type KV interface {
	// Get returns the raw value stored at key. Returns ErrMiss when the key
	// is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores raw at key. A zero ttl never expires.
	Put(ctx context.Context, key string, raw []byte, ttl time.Duration) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// Keys returns every live key with the given prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Sweep deletes expired entries and returns how many were removed.
	Sweep(ctx context.Context) (int64, error)
}
