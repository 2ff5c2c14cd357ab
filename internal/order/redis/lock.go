package redis

import (
	"context"
	"fmt"
	"time"

	"ms-booking/internal/logger"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "checkout_lock:"

// Redis guards checkouts so that a user cannot finalize twice at once.
type Redis struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, l *logger.Logger) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Redis{Client: client, TTL: ttl, Logger: l}
}

// Acquire takes the checkout guard for userID on behalf of txID.
// It reports false when another checkout holds the guard.
func (r *Redis) Acquire(ctx context.Context, userID, txID string) (bool, error) {
	ok, err := r.Client.SetNX(ctx, keyPrefix+userID, txID, r.TTL).Result()
	if err != nil {
		r.Logger.Error("REDIS", fmt.Sprintf("Failed to acquire checkout guard for %s: %v", userID, err))
		return false, err
	}
	if !ok {
		r.Logger.Warn("REDIS", fmt.Sprintf("Checkout guard for %s already held", userID))
	}
	return ok, nil
}

// Release drops the guard only if txID still owns it.
func (r *Redis) Release(ctx context.Context, userID, txID string) error {
	key := keyPrefix + userID
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == txID {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

// held reports whether a checkout guard is currently set for userID.
func (r *Redis) held(ctx context.Context, userID string) (bool, error) {
	n, err := r.Client.Exists(ctx, keyPrefix+userID).Result()
	return n > 0, err
}
