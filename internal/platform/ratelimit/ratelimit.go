// Copyright (c) 2026 Essenzia. All rights reserved.

/*
Package ratelimit implements a Redis-backed fixed-window request ceiling.

It exists to bound abuse of the OTP issuance endpoint: every issued code is a
message on the notification gateway and a guessable credential, so the number
of codes a single caller can mint per window must be capped.

Architecture:

  - Limiter: counts requests per caller key with INCR and a window EXPIRE.
  - Keys: callers are identified by an opaque key chosen by the consumer
    (client IP + route for the HTTP layer).
  - Availability: on Redis failure the limiter reports the error and lets the
    consumer decide; the auth handler fails open so issuance stays available.
*/
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/essenzia/essenzia/internal/platform/constants"
)

// Limiter enforces a maximum number of requests per caller per fixed window.
//
// # Concurrency
//
// All state lives in Redis; a Limiter is safe for concurrent use and for
// sharing across replicas of the API server.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// New constructs a [Limiter] allowing limit requests per window.
func New(client *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Allow records one request for the caller key and reports whether the caller
// is still within the ceiling.
//
// # Semantics
//
// The window is fixed, not sliding: the first request for a key starts the
// window, and the counter resets when the key expires. A denied request still
// increments the counter, so hammering a denied key does not shorten the wait.
func (limiter *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := constants.RedisPrefixRateLimit + key

	count, err := limiter.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit: incr failed: %w", err)
	}

	// First hit in a window owns setting the expiry.
	if count == 1 {
		if err := limiter.client.Expire(ctx, redisKey, limiter.window).Err(); err != nil {
			return false, fmt.Errorf("ratelimit: expire failed: %w", err)
		}
	}

	return count <= int64(limiter.limit), nil
}

// Window returns the configured window, used by consumers to fill the
// Retry-After hint on denied requests.
func (limiter *Limiter) Window() time.Duration {
	return limiter.window
}
