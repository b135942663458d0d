package kv

import (
	"context"
	"slices"
	"strings"
	"time"

	memkv "github.com/colonyops/tasksync/pkg/kv"
)

// Memory is a process-local KV. Values do not survive a restart.
type Memory struct {
	store *memkv.Store[string, []byte]
}

// NewMemory creates an empty in-memory KV.
func NewMemory() *Memory {
	return &Memory{store: memkv.New[string, []byte]()}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.store.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return slices.Clone(v), nil
}

func (m *Memory) Put(_ context.Context, key string, raw []byte, ttl time.Duration) error {
	m.store.SetTTL(key, slices.Clone(raw), ttl)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	for _, k := range m.store.Keys() {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (m *Memory) Sweep(_ context.Context) (int64, error) {
	return int64(m.store.Sweep()), nil
}
