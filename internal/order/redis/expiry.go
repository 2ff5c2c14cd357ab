package redis

import (
	"context"
	"fmt"
	"strings"

	"ms-booking/internal/logger"

	"github.com/go-redis/redis/v8"
)

// EnableExpiryEvents asks redis to publish expired-key events. Managed
// instances often forbid CONFIG SET, so failure is only logged.
func EnableExpiryEvents(ctx context.Context, client *redis.Client, l *logger.Logger) {
	if _, err := client.ConfigSet(ctx, "notify-keyspace-events", "Ex").Result(); err != nil {
		l.Warn("REDIS", fmt.Sprintf("Failed to enable keyspace notifications: %v", err))
		return
	}
	l.Info("REDIS", "Keyspace notifications enabled for expired events")
}

// WatchExpiredGuards calls onExpire with the user ID of every checkout guard
// that reached its TTL instead of being released. It returns once the
// subscription is established and stops when ctx is done.
func WatchExpiredGuards(ctx context.Context, client *redis.Client, l *logger.Logger, onExpire func(userID string)) error {
	channel := fmt.Sprintf("__keyevent@%d__:expired", client.Options().DB)
	pubsub := client.PSubscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	l.Info("REDIS", fmt.Sprintf("Subscribed to expired key notifications on %s", channel))

	go func() {
		defer pubsub.Close()
		messages := pubsub.Channel()
		for {
			select {
			case msg, ok := <-messages:
				if !ok {
					return
				}
				userID, isGuard := GuardOwner(msg.Payload)
				if !isGuard {
					continue
				}
				l.Warn("CHECKOUT", fmt.Sprintf("Checkout guard expired for user: %s", userID))
				onExpire(userID)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// GuardOwner extracts the user ID from a checkout guard key.
func GuardOwner(key string) (string, bool) {
	if !strings.HasPrefix(key, keyPrefix) {
		return "", false
	}
	userID := strings.TrimPrefix(key, keyPrefix)
	return userID, userID != ""
}
