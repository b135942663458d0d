package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Bucket is a typed, namespaced view over a KV store. Every key is stored as
// "namespace:key" and every value as JSON.
type Bucket[T any] struct {
	store  KV
	prefix string
	ttl    time.Duration
}

// Scoped returns a Bucket[T] over store under namespace. Values written
// through the bucket expire after ttl; zero means never.
func Scoped[T any](store KV, namespace string, ttl time.Duration) *Bucket[T] {
	return &Bucket[T]{store: store, prefix: namespace + ":", ttl: ttl}
}

// Get returns the value at key. Returns ErrMiss when absent.
func (b *Bucket[T]) Get(ctx context.Context, key string) (T, error) {
	var v T
	raw, err := b.store.Get(ctx, b.prefix+key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode %s%s: %w", b.prefix, key, err)
	}
	return v, nil
}

// Set stores value at key using the bucket's ttl.
func (b *Bucket[T]) Set(ctx context.Context, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s%s: %w", b.prefix, key, err)
	}
	return b.store.Put(ctx, b.prefix+key, raw, b.ttl)
}

// Delete removes key.
func (b *Bucket[T]) Delete(ctx context.Context, key string) error {
	return b.store.Delete(ctx, b.prefix+key)
}

// Keys returns the bucket's live keys without the namespace prefix.
func (b *Bucket[T]) Keys(ctx context.Context) ([]string, error) {
	keys, err := b.store.Keys(ctx, b.prefix)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, b.prefix)
	}
	return keys, nil
}

// GetOrFetch returns the cached value at key, calling fetch and storing its
// result on a miss. Cache read and write failures fall through to fetch and
// are otherwise ignored.
func (b *Bucket[T]) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) (T, error)) (T, error) {
	if v, err := b.Get(ctx, key); err == nil {
		return v, nil
	} else if !errors.Is(err, ErrMiss) && ctx.Err() != nil {
		return v, ctx.Err()
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}
	_ = b.Set(ctx, key, v)
	return v, nil
}
