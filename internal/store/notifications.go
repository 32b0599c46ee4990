// internal/store/notifications.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	stderrors "corrtrack-notifier/internal/common/errors"
	"corrtrack-notifier/internal/models"
)

// NotificationStore appends Notification and NotificationDelivery rows and
// answers the dedup point lookup. Both tables are append-only from the
// engine's point of view.
type NotificationStore struct {
	db *sql.DB

	// dedup_key is a later migration; when the column is missing the dedup
	// lookup reports unavailable instead of failing dispatch.
	dedupUnavailable atomic.Bool
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// CreateNotification inserts one immutable notification row.
func (s *NotificationStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	var metadata []byte
	if n.Metadata != nil {
		var err error
		metadata, err = json.Marshal(n.Metadata)
		if err != nil {
			return fmt.Errorf("marshal notification metadata: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications
		 (id, user_id, item_id, actor_id, event, title, body, priority, dedup_key, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		n.ID, n.UserID, nullable(n.ItemID), nullable(n.ActorID), string(n.Event),
		n.Title, n.Body, string(n.Priority), n.DedupKey, metadata, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create notification for %s: %w", n.UserID, err)
	}
	return nil
}

// CreateDelivery appends one delivery outcome row.
func (s *NotificationStore) CreateDelivery(ctx context.Context, d *models.NotificationDelivery) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification_deliveries
		 (id, notification_id, channel, status, recipient, reason, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.NotificationID, string(d.Channel), string(d.Status),
		nullable(d.Recipient), nullable(d.Reason), d.SentAt,
	)
	if err != nil {
		return fmt.Errorf("create delivery %s/%s: %w", d.NotificationID, d.Channel, err)
	}
	return nil
}

// ExistsWithKeySince answers "does a notification with key K exist for user U
// created after time T". Returns a DEDUP_UNAVAILABLE error when the dedup_key
// column has not been migrated in yet.
func (s *NotificationStore) ExistsWithKeySince(ctx context.Context, userID, key string, since time.Time) (bool, error) {
	if s.dedupUnavailable.Load() {
		return false, stderrors.NewDedupUnavailableError(nil)
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM notifications
			WHERE user_id = $1 AND dedup_key = $2 AND created_at > $3
		 )`,
		userID, key, since,
	).Scan(&exists)

	if err != nil {
		if isSchemaError(err) {
			s.dedupUnavailable.Store(true)
			return false, stderrors.NewDedupUnavailableError(err)
		}
		return false, fmt.Errorf("dedup lookup for %s: %w", userID, err)
	}
	return exists, nil
}

// GetDeliveries returns the delivery rows of one notification, oldest first.
// Used by audit surfaces, not by the dispatch path.
func (s *NotificationStore) GetDeliveries(ctx context.Context, notificationID string) ([]models.NotificationDelivery, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, notification_id, channel, status, recipient, reason, sent_at
		 FROM notification_deliveries
		 WHERE notification_id = $1
		 ORDER BY sent_at NULLS LAST, id`,
		notificationID,
	)
	if err != nil {
		return nil, fmt.Errorf("get deliveries for %s: %w", notificationID, err)
	}
	defer rows.Close()

	var deliveries []models.NotificationDelivery
	for rows.Next() {
		var (
			d         models.NotificationDelivery
			recipient sql.NullString
			reason    sql.NullString
			sentAt    sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.NotificationID, &d.Channel, &d.Status,
			&recipient, &reason, &sentAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.Recipient = recipient.String
		d.Reason = reason.String
		if sentAt.Valid {
			t := sentAt.Time
			d.SentAt = &t
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}
