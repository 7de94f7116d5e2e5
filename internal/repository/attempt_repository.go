package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const attemptKeyPrefix = "upload:attempts:"

// AttemptRepository counts failed token attempts in Redis with a sliding expiry window.
type AttemptRepository struct {
	client *redis.Client
}

// NewAttemptRepository constructs the repository. A nil client disables counting.
func NewAttemptRepository(client *redis.Client) *AttemptRepository {
	return &AttemptRepository{client: client}
}

// AttemptKey builds the counter key for a caller and request.
func AttemptKey(ip, requestID string) string {
	return attemptKeyPrefix + requestID + ":" + ip
}

// Count returns the current failure count for key.
func (r *AttemptRepository) Count(ctx context.Context, key string) (int, error) {
	if r.client == nil {
		return 0, nil
	}
	count, err := r.client.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get %s: %w", key, err)
	}
	return count, nil
}

// Increment records a failure and returns the new count. The window starts at the first failure.
func (r *AttemptRepository) Increment(ctx context.Context, key string, window time.Duration) (int, error) {
	if r.client == nil {
		return 0, nil
	}
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return int(count), fmt.Errorf("redis expire %s: %w", key, err)
		}
	}
	return int(count), nil
}

// Reset clears the counter, typically after a successful validation.
func (r *AttemptRepository) Reset(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Ping verifies Redis is reachable when configured.
func (r *AttemptRepository) Ping(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

