package kv

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStore_GetSet(t *testing.T) {
	s := New[string, int]()

	s.Set("foo", 42)
	val, ok := s.Get("foo")
	assert.True(t, ok)
	assert.Equal(t, 42, val)

	_, ok = s.Get("bar")
	assert.False(t, ok)
}

func TestStore_Delete(t *testing.T) {
	s := New[string, string]()
	s.Set("key", "value")

	s.Delete("key")

	_, ok := s.Get("key")
	assert.False(t, ok)
}

func TestStore_TTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := New[string, string]()
	s.now = func() time.Time { return now }

	s.SetTTL("short", "a", time.Minute)
	s.SetTTL("long", "b", time.Hour)
	s.Set("forever", "c")

	assert.Equal(t, 3, s.Len())

	now = now.Add(2 * time.Minute)

	_, ok := s.Get("short")
	assert.False(t, ok, "expired entry is invisible")
	assert.ElementsMatch(t, []string{"long", "forever"}, s.Keys())

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 0, s.Sweep())

	now = now.Add(24 * time.Hour)
	assert.Equal(t, 1, s.Sweep())

	v, ok := s.Get("forever")
	assert.True(t, ok)
	assert.Equal(t, "c", v)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New[int, int]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.SetTTL(n, n*2, time.Hour)
		}(i)
	}

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Get(n)
		}(i)
	}

	wg.Wait()

	assert.Equal(t, 100, s.Len())
}
