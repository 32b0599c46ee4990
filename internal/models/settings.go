// internal/models/settings.go
package models

// DigestFrequency controls email batching. Only meaningful while the email
// channel is enabled.
type DigestFrequency string

const (
	DigestInstant DigestFrequency = "instant"
	DigestDaily   DigestFrequency = "daily"
	DigestWeekly  DigestFrequency = "weekly"
	DigestNever   DigestFrequency = "never"
)

func (d DigestFrequency) Valid() bool {
	switch d {
	case DigestInstant, DigestDaily, DigestWeekly, DigestNever:
		return true
	}
	return false
}

// QuietMode selects the suppression policy while quiet hours are active.
type QuietMode string

const (
	QuietModeAll           QuietMode = "all"
	QuietModeImportantOnly QuietMode = "important_only"
)

// ChannelToggles are the per-user master switches. A matrix row may request a
// channel, but the master switch wins.
type ChannelToggles struct {
	InApp bool `json:"inApp"`
	Email bool `json:"email"`
	Chat  bool `json:"chat"`
	SMS   bool `json:"sms"`
	Push  bool `json:"push"`
}

// Enabled reports the master switch for a channel.
func (c ChannelToggles) Enabled(ch Channel) bool {
	switch ch {
	case ChannelInApp:
		return c.InApp
	case ChannelEmail:
		return c.Email
	case ChannelChat:
		return c.Chat
	case ChannelSMS:
		return c.SMS
	case ChannelPush:
		return c.Push
	}
	return false
}

// EventToggles gate whole event types on or off per user. A single deadline
// toggle covers both urgent and overdue sub-events.
type EventToggles struct {
	NewItem      bool `json:"newItem"`
	StatusChange bool `json:"statusChange"`
	Comment      bool `json:"comment"`
	Assignment   bool `json:"assignment"`
	Deadline     bool `json:"deadline"`
	System       bool `json:"system"`
}

// EnabledFor maps an event type to its gate.
func (e EventToggles) EnabledFor(event EventType) bool {
	switch event {
	case EventNewItem:
		return e.NewItem
	case EventStatusChange:
		return e.StatusChange
	case EventComment:
		return e.Comment
	case EventAssignment:
		return e.Assignment
	case EventDeadlineUrgent, EventDeadlineOverdue:
		return e.Deadline
	case EventSystem:
		return e.System
	}
	return false
}

// MatrixRow is the per-event routing configuration: which channels are
// candidates and what priority the event carries.
type MatrixRow struct {
	Event    EventType      `json:"event"`
	Channels ChannelToggles `json:"channels"`
	Priority Priority       `json:"priority"`
}

// QuietHours is a time-of-day suppression window. Start/End are "HH:MM"
// strings; a window whose start is later than its end wraps midnight.
type QuietHours struct {
	Enabled bool      `json:"enabled"`
	Start   string    `json:"start"`
	End     string    `json:"end"`
	Mode    QuietMode `json:"mode"`
}

// DisplayFlags are UI-facing preferences carried alongside delivery settings.
type DisplayFlags struct {
	GroupSimilar bool `json:"groupSimilar"`
	ShowPreview  bool `json:"showPreview"`
	PlaySound    bool `json:"playSound"`
}

// NotificationSettings is a user's fully resolved notification configuration.
// The resolver guarantees every field is populated and the matrix holds
// exactly one row per known event type.
type NotificationSettings struct {
	Channels      ChannelToggles  `json:"channels"`
	Digest        DigestFrequency `json:"digest"`
	QuietHours    QuietHours      `json:"quietHours"`
	Events        EventToggles    `json:"events"`
	Display       DisplayFlags    `json:"display"`
	Matrix        []MatrixRow     `json:"matrix"`
	Subscriptions []Subscription  `json:"subscriptions"`
}

// MatrixRowFor returns the matrix row for an event, or false when the matrix
// omits it. Post-normalization this always finds a row; callers stay
// defensive anyway.
func (s *NotificationSettings) MatrixRowFor(event EventType) (MatrixRow, bool) {
	for _, row := range s.Matrix {
		if row.Event == event {
			return row, true
		}
	}
	return MatrixRow{}, false
}
