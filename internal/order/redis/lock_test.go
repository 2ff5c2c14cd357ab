package redis

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"ms-booking/internal/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a Redis client backed by miniredis
func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return NewRedis(client, time.Minute, logger.NewWithWriter(io.Discard)), mr
}

func TestAcquireRelease(t *testing.T) {
	r, _ := setupTestRedis(t)
	ctx := context.Background()

	ok, err := r.Acquire(ctx, "user-1", "TX-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Acquire(ctx, "user-1", "TX-2")
	require.NoError(t, err)
	assert.False(t, ok, "second checkout for the same user must wait")

	ok, err = r.Acquire(ctx, "user-2", "TX-3")
	require.NoError(t, err)
	assert.True(t, ok, "guards are per user")

	require.NoError(t, r.Release(ctx, "user-1", "TX-1"))
	held, err := r.held(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestRelease_OnlyOwner(t *testing.T) {
	r, mr := setupTestRedis(t)
	ctx := context.Background()

	ok, err := r.Acquire(ctx, "user-1", "TX-1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, r.Release(ctx, "user-1", "TX-other"))
	val, err := mr.Get(keyPrefix + "user-1")
	require.NoError(t, err)
	assert.Equal(t, "TX-1", val)

	assert.NoError(t, r.Release(ctx, "nobody", "TX-9"))
}

func TestAcquire_ExpiresWithTTL(t *testing.T) {
	r, mr := setupTestRedis(t)
	ctx := context.Background()

	ok, err := r.Acquire(ctx, "user-1", "TX-1")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = r.Acquire(ctx, "user-1", "TX-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcquire_Concurrent(t *testing.T) {
	r, _ := setupTestRedis(t)
	ctx := context.Background()

	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := r.Acquire(ctx, "user-race", fmt.Sprintf("TX-%d", n))
			if err == nil && ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestLocalLock_OwnerRelease(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLock()

	ok, err := l.Acquire(ctx, "user-1", "TX-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Acquire(ctx, "user-1", "TX-2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Acquire(ctx, "user-2", "TX-3")
	require.NoError(t, err)
	assert.True(t, ok, "guards are per user")

	require.NoError(t, l.Release(ctx, "user-1", "TX-2"))
	ok, _ = l.Acquire(ctx, "user-1", "TX-4")
	assert.False(t, ok, "a non-owner release leaves the guard in place")

	require.NoError(t, l.Release(ctx, "user-1", "TX-1"))
	ok, _ = l.Acquire(ctx, "user-1", "TX-5")
	assert.True(t, ok)
}

func TestLocalLock_ConcurrentAcquire(t *testing.T) {
	l := NewLocalLock()
	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, _ := l.Acquire(context.Background(), "user-race", fmt.Sprintf("TX-%d", n))
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestGuardOwner(t *testing.T) {
	userID, ok := GuardOwner("checkout_lock:user-7")
	assert.True(t, ok)
	assert.Equal(t, "user-7", userID)

	_, ok = GuardOwner("checkout_lock:")
	assert.False(t, ok)
	_, ok = GuardOwner("session:user-7")
	assert.False(t, ok)
}
