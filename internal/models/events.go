// internal/models/events.go
package models

// EventType is the closed set of domain occurrences that can trigger
// notifications.
type EventType string

const (
	EventNewItem         EventType = "new_item"
	EventStatusChange    EventType = "status_change"
	EventComment         EventType = "comment"
	EventAssignment      EventType = "assignment"
	EventDeadlineUrgent  EventType = "deadline_urgent"
	EventDeadlineOverdue EventType = "deadline_overdue"
	EventSystem          EventType = "system"
)

// KnownEventTypes lists every event type in a stable order. Defaults and
// matrix normalization iterate this slice; adding an event here without a
// matching defaults row fails the startup check in defaults.go.
func KnownEventTypes() []EventType {
	return []EventType{
		EventNewItem,
		EventStatusChange,
		EventComment,
		EventAssignment,
		EventDeadlineUrgent,
		EventDeadlineOverdue,
		EventSystem,
	}
}

func (e EventType) Valid() bool {
	switch e {
	case EventNewItem, EventStatusChange, EventComment, EventAssignment,
		EventDeadlineUrgent, EventDeadlineOverdue, EventSystem:
		return true
	}
	return false
}

// Channel is a delivery medium.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// KnownChannels lists every channel the orchestrator considers per recipient.
func KnownChannels() []Channel {
	return []Channel{ChannelInApp, ChannelEmail, ChannelChat, ChannelSMS, ChannelPush}
}

// Priority of a notification, taken verbatim from the routing matrix row.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// DeliveryStatus is the terminal state of one channel attempt.
type DeliveryStatus string

const (
	DeliveryQueued  DeliveryStatus = "queued"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliverySkipped DeliveryStatus = "skipped"
)

// Skip/failure reasons recorded on NotificationDelivery rows.
const (
	ReasonQuietHours       = "quiet_hours"
	ReasonMissingEmail     = "missing_email"
	ReasonMissingPhone     = "missing_phone"
	ReasonMissingChatID    = "missing_chat_id"
	ReasonSendFailed       = "send_failed"
	ReasonPushNotSupported = "push_not_supported"
	ReasonChannelDisabled  = "channel_disabled"
)
