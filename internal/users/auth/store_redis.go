// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/mulita/internal/platform/constants"
)

// # Login Limiter

// RedisLoginLimiter implements LoginLimiter with fixed-window Redis counters.
type RedisLoginLimiter struct {
	client      redis.UniversalClient
	maxAttempts int
	cooldown    time.Duration
}

// NewLoginLimiter creates a Redis-backed LoginLimiter.
func NewLoginLimiter(client redis.UniversalClient, maxAttempts int, cooldown time.Duration) *RedisLoginLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultLoginMaxAttempts
	}
	if cooldown <= 0 {
		cooldown = DefaultLoginCooldown
	}

	return &RedisLoginLimiter{client: client, maxAttempts: maxAttempts, cooldown: cooldown}
}

/*
Check reports how long the caller must wait before the next attempt.

Returns:
  - time.Duration: zero when attempts remain, otherwise the remaining window
  - error: Redis connectivity failures
*/
func (limiter *RedisLoginLimiter) Check(context context.Context, email string) (time.Duration, error) {
	key := constants.RedisPrefixLoginAttempts + email

	count, err := limiter.client.Get(context, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis_login_limiter_get_failed: %w", err)
	}

	if count < limiter.maxAttempts {
		return 0, nil
	}

	ttl, err := limiter.client.TTL(context, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis_login_limiter_ttl_failed: %w", err)
	}
	if ttl <= 0 {
		ttl = limiter.cooldown
	}

	return ttl, nil
}

/*
RecordFailure increments the counter. The window starts at the first failure.
*/
func (limiter *RedisLoginLimiter) RecordFailure(context context.Context, email string) error {
	key := constants.RedisPrefixLoginAttempts + email

	count, err := limiter.client.Incr(context, key).Result()
	if err != nil {
		return fmt.Errorf("redis_login_limiter_incr_failed: %w", err)
	}

	if count == 1 {
		if err := limiter.client.Expire(context, key, limiter.cooldown).Err(); err != nil {
			return fmt.Errorf("redis_login_limiter_expire_failed: %w", err)
		}
	}

	return nil
}

// Reset clears the failure counter.
func (limiter *RedisLoginLimiter) Reset(context context.Context, email string) error {
	if err := limiter.client.Del(context, constants.RedisPrefixLoginAttempts+email).Err(); err != nil {
		return fmt.Errorf("redis_login_limiter_del_failed: %w", err)
	}
	return nil
}

// # Password Reset Throttle

// RedisResetThrottle implements ResetThrottle with SET NX and a TTL.
type RedisResetThrottle struct {
	client   redis.UniversalClient
	cooldown time.Duration
}

// NewResetThrottle creates a Redis-backed ResetThrottle.
func NewResetThrottle(client redis.UniversalClient, cooldown time.Duration) *RedisResetThrottle {
	if cooldown <= 0 {
		cooldown = DefaultResetCooldown
	}
	return &RedisResetThrottle{client: client, cooldown: cooldown}
}

/*
Allow reserves the dispatch slot for email. It returns false while a previous
reservation is still alive.
*/
func (throttle *RedisResetThrottle) Allow(context context.Context, email string) (bool, error) {
	reserved, err := throttle.client.SetNX(context, constants.RedisPrefixResetThrottle+email, 1, throttle.cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("redis_reset_throttle_setnx_failed: %w", err)
	}
	return reserved, nil
}
