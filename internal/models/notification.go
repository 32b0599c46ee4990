// internal/models/notification.go
package models

import "time"

// Notification is the per-recipient audit record for an event that passed
// filtering. Immutable once created.
type Notification struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"userId"`
	ItemID    string                 `json:"itemId,omitempty"`
	ActorID   string                 `json:"actorId,omitempty"`
	Event     EventType              `json:"event"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body,omitempty"`
	Priority  Priority               `json:"priority"`
	DedupKey  string                 `json:"dedupKey"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

// NotificationDelivery records one channel attempt for a Notification.
// Deliveries are append-only; multiple deliveries belong to one Notification.
type NotificationDelivery struct {
	ID             string         `json:"id"`
	NotificationID string         `json:"notificationId"`
	Channel        Channel        `json:"channel"`
	Status         DeliveryStatus `json:"status"`
	Recipient      string         `json:"recipient,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	SentAt         *time.Time     `json:"sentAt,omitempty"`
}
