// Copyright (c) 2026 Essenzia. All rights reserved.

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/essenzia/essenzia/internal/platform/ratelimit"
)

// newTestLimiter spins up an in-process Redis and a limiter bound to it.
func newTestLimiter(t *testing.T, limit int, window time.Duration) (*ratelimit.Limiter, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return ratelimit.New(client, limit, window), server
}

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 5, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "203.0.113.7:send-otp")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be within the ceiling", i+1)
	}

	allowed, err := limiter.Allow(ctx, "203.0.113.7:send-otp")
	require.NoError(t, err)
	assert.False(t, allowed, "sixth request in the window must be denied")
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "caller-a")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "caller-a")
	require.NoError(t, err)
	assert.False(t, allowed)

	// A different caller gets their own counter.
	allowed, err = limiter.Allow(ctx, "caller-b")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimiter_WindowResets(t *testing.T) {
	limiter, server := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "caller")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "caller")
	require.NoError(t, err)
	assert.False(t, allowed)

	// Advance past the window; the key expires and the counter restarts.
	server.FastForward(61 * time.Second)

	allowed, err = limiter.Allow(ctx, "caller")
	require.NoError(t, err)
	assert.True(t, allowed)
}
