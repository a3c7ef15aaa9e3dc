// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// setupMiniRedis creates a RedisStore backed by an in-process miniredis.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := newRedisStoreWithClient(client, "test:session:", zerolog.Nop())
	t.Cleanup(func() { _ = store.Close() })
	return mr, store
}

func TestMemoryStore_PutExistsDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	ok, err := s.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "a", time.Minute))
	ok, _ = s.Exists(ctx, "a")
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "a"), "deleting twice is fine")
	ok, _ = s.Exists(ctx, "a")
	assert.False(t, ok)
}

func TestMemoryStore_Expiration(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, "short", time.Second))
	require.NoError(t, s.Put(ctx, "long", time.Hour))
	n, _ := s.Len(ctx)
	assert.Equal(t, 2, n)

	now = now.Add(time.Minute)
	ok, _ := s.Exists(ctx, "short")
	assert.False(t, ok)
	n, _ = s.Len(ctx)
	assert.Equal(t, 1, n)

	assert.Equal(t, 1, s.deleteExpired())
	assert.Equal(t, 0, s.deleteExpired())
}

func TestMemoryStore_JanitorStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	s := NewMemoryStore(5 * time.Millisecond)
	require.NoError(t, s.Put(ctx, "x", time.Millisecond))
	assert.Eventually(t, func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return len(s.entries) == 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%26))
			_ = s.Put(ctx, id, time.Minute)
			_, _ = s.Exists(ctx, id)
			if i%3 == 0 {
				_ = s.Delete(ctx, id)
			}
		}(i)
	}
	wg.Wait()
	_, err := s.Len(ctx)
	assert.NoError(t, err)
}

func TestRedisStore_PutExistsDelete(t *testing.T) {
	ctx := context.Background()
	mr, s := setupMiniRedis(t)

	require.NoError(t, s.Put(ctx, "abc", time.Minute))
	assert.True(t, mr.Exists("test:session:abc"))
	assert.Equal(t, time.Minute, mr.TTL("test:session:abc"))

	ok, err := s.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "abc"))
	ok, err = s.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Expiration(t *testing.T) {
	ctx := context.Background()
	mr, s := setupMiniRedis(t)

	require.NoError(t, s.Put(ctx, "abc", time.Minute))
	mr.FastForward(2 * time.Minute)

	ok, err := s.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_LenCountsOnlyPrefix(t *testing.T) {
	ctx := context.Background()
	mr, s := setupMiniRedis(t)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Put(ctx, id, time.Minute))
	}
	require.NoError(t, mr.Set("unrelated", "1"))

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRedisStore_ServerDown(t *testing.T) {
	ctx := context.Background()
	mr, s := setupMiniRedis(t)
	require.NoError(t, s.Ping(ctx))

	mr.Close()
	assert.Error(t, s.Ping(ctx))
	_, err := s.Exists(ctx, "abc")
	assert.Error(t, err)
}

func TestNewRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "boardcast:session:", s.prefix)

	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisStore(context.Background(), RedisConfig{Addr: addr}, zerolog.Nop())
	assert.Error(t, err)
}

func TestGate_WithRedisStore(t *testing.T) {
	_, s := setupMiniRedis(t)
	g, err := NewGate(Options{PIN: "4821", Secret: "s", TTL: time.Hour, Store: s})
	require.NoError(t, err)

	cookie := issue(t, g)
	_, err = g.Require(requestWith(cookie))
	assert.NoError(t, err)
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		overlap bool
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("same")
			mu.Lock()
			inside++
			if inside > 1 {
				overlap = true
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.False(t, overlap)
	assert.Zero(t, k.size())

	a := k.Lock("a")
	b := k.Lock("b")
	assert.Equal(t, 2, k.size(), "different keys do not block each other")
	a()
	b()
}
