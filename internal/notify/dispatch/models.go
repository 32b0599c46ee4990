// internal/notify/dispatch/models.go
package dispatch

import (
	"corrtrack-notifier/internal/models"
)

// Input is the full dispatch request. Only Event and Title are required;
// recipients come from UserIDs and, when IncludeSubscriptions is set, from
// subscription-rule matches.
type Input struct {
	Event    models.EventType       `json:"event"`
	Title    string                 `json:"title"`
	Body     string                 `json:"body,omitempty"`
	ItemID   string                 `json:"itemId,omitempty"`
	ActorID  string                 `json:"actorId,omitempty"`
	UserIDs  []string               `json:"userIds,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// DedupKey overrides the derived event:item:actor key.
	DedupKey string `json:"dedupKey,omitempty"`
	// DedupWindowMinutes overrides the configured window; explicit 0
	// disables dedup for this dispatch. Nil means use the config default.
	DedupWindowMinutes *int `json:"dedupWindowMinutes,omitempty"`

	IncludeSubscriptions bool `json:"includeSubscriptions,omitempty"`
}

// Recipient outcome statuses.
const (
	OutcomeNotified   = "notified"
	OutcomeSuppressed = "suppressed"
	OutcomeDuplicate  = "duplicate"
	OutcomeSkipped    = "skipped"
	OutcomeError      = "error"
)

// RecipientOutcome reports what happened for one resolved recipient.
type RecipientOutcome struct {
	UserID         string                        `json:"userId"`
	Status         string                        `json:"status"`
	NotificationID string                        `json:"notificationId,omitempty"`
	Deliveries     []models.NotificationDelivery `json:"deliveries,omitempty"`
}

// Result aggregates per-recipient outcomes for observability. Callers must
// not use it for control flow; delivery failures are already recorded.
type Result struct {
	Event      models.EventType   `json:"event"`
	Recipients int                `json:"recipients"`
	Created    int                `json:"created"`
	Outcomes   []RecipientOutcome `json:"outcomes"`
}
