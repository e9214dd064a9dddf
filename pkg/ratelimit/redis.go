package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fadedpez/contrast/internal/config"
	redis "github.com/redis/go-redis/v9"
)

var ErrInvalidLimit = errors.New("rate limit and window must be positive")

// RedisLimiter is a fixed-window limiter using Redis INCR/EXPIRE.
// Keys have the form ratelimit:<user>:<action>.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewRedisLimiter connects to Redis and verifies the connection
func NewRedisLimiter(ctx context.Context, cfg config.RateLimitConfig) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	limiter, err := NewRedisLimiterFromClient(client, cfg.BetLimit, cfg.BetWindow)
	if err != nil {
		client.Close()
		return nil, err
	}
	return limiter, nil
}

// NewRedisLimiterFromClient wraps an existing client
func NewRedisLimiterFromClient(client *redis.Client, limit int, window time.Duration) (*RedisLimiter, error) {
	if limit < 1 || window <= 0 {
		return nil, ErrInvalidLimit
	}
	return &RedisLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
	}, nil
}

// Key returns the counter key for a user and action
func Key(userID, action string) string {
	return "ratelimit:" + userID + ":" + action
}

// Allow counts one attempt and reports whether it is within the limit
func (l *RedisLimiter) Allow(ctx context.Context, userID, action string) (bool, error) {
	key := Key(userID, action)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("error incrementing %s: %w", key, err)
	}

	if count == 1 {
		// first hit in this window
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("error setting expiry on %s: %w", key, err)
		}
	}

	return count <= l.limit, nil
}

// Reset clears the counter for a user and action
func (l *RedisLimiter) Reset(ctx context.Context, userID, action string) error {
	return l.client.Del(ctx, Key(userID, action)).Err()
}

// Close closes the Redis client
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
