// internal/notify/recipients/resolver.go
package recipients

import (
	"context"
	"errors"

	stderrors "corrtrack-notifier/internal/common/errors"
	"corrtrack-notifier/internal/common/logger"
	"corrtrack-notifier/internal/models"
	"corrtrack-notifier/internal/store"
)

// SubscriptionSource lists subscription rows matching an event filter.
type SubscriptionSource interface {
	ListForEvent(ctx context.Context, event models.EventType) ([]models.Subscription, error)
}

// UserSource looks up single users; only the acting user is fetched here.
type UserSource interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Resolver computes the final set of user ids considered for a dispatch:
// explicit recipients unioned with subscription-rule matches.
type Resolver struct {
	subs   SubscriptionSource
	users  UserSource
	logger logger.Logger
}

func NewResolver(subs SubscriptionSource, users UserSource, log logger.Logger) *Resolver {
	return &Resolver{
		subs:   subs,
		users:  users,
		logger: log.WithFields(map[string]interface{}{"component": "recipients"}),
	}
}

// Resolve returns a deduplicated recipient id list. Explicit recipients are
// always included. When includeSubscriptions is set, owners of matching
// subscription rows are added; an unprovisioned subscription store degrades
// to explicit-recipients-only with a warning.
func (r *Resolver) Resolve(ctx context.Context, event models.EventType, explicit []string, actorID string, includeSubscriptions bool) ([]string, error) {
	seen := make(map[string]bool, len(explicit))
	resolved := make([]string, 0, len(explicit))
	for _, id := range explicit {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		resolved = append(resolved, id)
	}

	if !includeSubscriptions {
		return resolved, nil
	}

	subs, err := r.subs.ListForEvent(ctx, event)
	if err != nil {
		if stderrors.CodeOf(err) == stderrors.ErrCodeSubscriptionsUnavailable {
			r.logger.Warn("subscription store unavailable, dispatching to explicit recipients only", map[string]interface{}{
				"event": string(event),
			})
			return resolved, nil
		}
		return nil, err
	}
	if len(subs) == 0 {
		// No rows at all: skip the actor lookup entirely.
		return resolved, nil
	}

	var actor *models.User
	if actorID != "" {
		actor, err = r.users.GetUser(ctx, actorID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	for _, sub := range subs {
		if seen[sub.UserID] {
			continue
		}
		if sub.Matches(actor) {
			seen[sub.UserID] = true
			resolved = append(resolved, sub.UserID)
		}
	}

	return resolved, nil
}
