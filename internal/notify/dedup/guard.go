// internal/notify/dedup/guard.go
package dedup

import (
	"context"
	"fmt"
	"time"

	"corrtrack-notifier/internal/common/logger"
	"corrtrack-notifier/internal/models"

	"github.com/redis/go-redis/v9"
)

// NotificationLookup is the durable dedup point lookup: does a notification
// with this key exist for this user, created after the given time.
type NotificationLookup interface {
	ExistsWithKeySince(ctx context.Context, userID, key string, since time.Time) (bool, error)
}

// Guard suppresses re-notifying the same user for the same logical event
// within a time window. Redis SETNX is the fast path; the notification store
// answers when Redis is down. The check-then-create race between concurrent
// dispatches is accepted: duplicate suppression is best-effort UX, not a
// correctness guarantee.
type Guard struct {
	redis  *redis.Client
	store  NotificationLookup
	logger logger.Logger
}

func NewGuard(redisClient *redis.Client, store NotificationLookup, log logger.Logger) *Guard {
	return &Guard{
		redis:  redisClient,
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "dedup"}),
	}
}

// DeriveKey builds the default dedup key for an event when the caller does
// not supply one.
func DeriveKey(event models.EventType, itemID, actorID string) string {
	if itemID == "" {
		itemID = "none"
	}
	if actorID == "" {
		actorID = "system"
	}
	return fmt.Sprintf("%s:%s:%s", event, itemID, actorID)
}

func redisKey(userID, key string) string {
	return fmt.Sprintf("notifier:dedup:%s:%s", userID, key)
}

// IsDuplicate reports whether the user was already notified for this key
// within the window. A zero window disables dedup. A DEDUP_UNAVAILABLE error
// tells the caller to stop deduping for the remainder of the dispatch.
func (g *Guard) IsDuplicate(ctx context.Context, userID, key string, window time.Duration) (bool, error) {
	if window <= 0 || key == "" {
		return false, nil
	}

	if g.redis != nil {
		// SETNX both checks and reserves the key; a lost reservation
		// just means one extra notification after a crash.
		created, err := g.redis.SetNX(ctx, redisKey(userID, key), 1, window).Result()
		if err == nil {
			return !created, nil
		}
		g.logger.Warn("redis dedup check failed, falling back to store lookup", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}

	exists, err := g.store.ExistsWithKeySince(ctx, userID, key, time.Now().UTC().Add(-window))
	if err != nil {
		return false, err
	}
	return exists, nil
}
