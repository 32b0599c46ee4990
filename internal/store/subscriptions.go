// internal/store/subscriptions.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	stderrors "corrtrack-notifier/internal/common/errors"
	"corrtrack-notifier/internal/models"
)

// SubscriptionStore reads subscription rows matching an event filter and
// replaces a user's subscription list wholesale. The table is optional
// storage: when it has not been provisioned the store reports itself
// unavailable rather than erroring every call.
type SubscriptionStore struct {
	db          *sql.DB
	unavailable atomic.Bool
}

func NewSubscriptionStore(db *sql.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// Probe checks once at startup whether the subscriptions table exists.
// Callers may skip it; a structural error on first use flips the same flag.
func (s *SubscriptionStore) Probe(ctx context.Context) {
	var reg sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT to_regclass('notification_subscriptions')`,
	).Scan(&reg)
	if err == nil && !reg.Valid {
		s.unavailable.Store(true)
	}
}

// Available reports whether the subscription feature is usable.
func (s *SubscriptionStore) Available() bool {
	return !s.unavailable.Load()
}

// ListForEvent returns all subscription rows declaring interest in the given
// event, including ALL-event rows. Returns a SUBSCRIPTIONS_UNAVAILABLE error
// when the table is missing.
func (s *SubscriptionStore) ListForEvent(ctx context.Context, event models.EventType) ([]models.Subscription, error) {
	if s.unavailable.Load() {
		return nil, stderrors.NewSubscriptionsUnavailableError(nil)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, event, scope, value
		 FROM notification_subscriptions
		 WHERE event = $1 OR event = $2`,
		models.SubscriptionEventAll, string(event),
	)
	if err != nil {
		if isSchemaError(err) {
			s.unavailable.Store(true)
			return nil, stderrors.NewSubscriptionsUnavailableError(err)
		}
		return nil, fmt.Errorf("list subscriptions for %s: %w", event, err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var (
			sub   models.Subscription
			value sql.NullString
		)
		if err := rows.Scan(&sub.UserID, &sub.Event, &sub.Scope, &value); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		sub.Value = value.String
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ReplaceForUser deletes all of a user's subscription rows and recreates them
// from the given list, in one transaction. There is no partial editing at the
// data layer.
func (s *SubscriptionStore) ReplaceForUser(ctx context.Context, userID string, subs []models.Subscription) error {
	if s.unavailable.Load() {
		return stderrors.NewSubscriptionsUnavailableError(nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin subscription replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM notification_subscriptions WHERE user_id = $1`, userID,
	); err != nil {
		if isSchemaError(err) {
			s.unavailable.Store(true)
			return stderrors.NewSubscriptionsUnavailableError(err)
		}
		return fmt.Errorf("clear subscriptions for %s: %w", userID, err)
	}

	for _, sub := range subs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO notification_subscriptions (user_id, event, scope, value)
			 VALUES ($1, $2, $3, $4)`,
			userID, sub.Event, string(sub.Scope), nullable(sub.Value),
		); err != nil {
			return fmt.Errorf("insert subscription for %s: %w", userID, err)
		}
	}

	return tx.Commit()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
