// internal/notify/preferences/defaults.go
package preferences

import (
	"fmt"

	"corrtrack-notifier/internal/models"
)

// defaultMatrix is the global default routing matrix. Every known event type
// must have exactly one row here; init below enforces that so a new event
// type without a default row fails at startup, not at resolution time.
var defaultMatrix = []models.MatrixRow{
	{
		Event:    models.EventNewItem,
		Channels: models.ChannelToggles{InApp: true, Email: true},
		Priority: models.PriorityNormal,
	},
	{
		Event:    models.EventStatusChange,
		Channels: models.ChannelToggles{InApp: true, Email: true},
		Priority: models.PriorityNormal,
	},
	{
		Event:    models.EventComment,
		Channels: models.ChannelToggles{InApp: true, Email: true},
		Priority: models.PriorityLow,
	},
	{
		Event:    models.EventAssignment,
		Channels: models.ChannelToggles{InApp: true, Email: true},
		Priority: models.PriorityNormal,
	},
	{
		Event:    models.EventDeadlineUrgent,
		Channels: models.ChannelToggles{InApp: true, Email: true, Chat: true, SMS: true},
		Priority: models.PriorityHigh,
	},
	{
		Event:    models.EventDeadlineOverdue,
		Channels: models.ChannelToggles{InApp: true, Email: true, Chat: true, SMS: true, Push: true},
		Priority: models.PriorityCritical,
	},
	{
		Event:    models.EventSystem,
		Channels: models.ChannelToggles{InApp: true, Email: true},
		Priority: models.PriorityNormal,
	},
}

func init() {
	seen := make(map[models.EventType]bool, len(defaultMatrix))
	for _, row := range defaultMatrix {
		if seen[row.Event] {
			panic(fmt.Sprintf("preferences: duplicate default matrix row for %s", row.Event))
		}
		seen[row.Event] = true
	}
	for _, event := range models.KnownEventTypes() {
		if !seen[event] {
			panic(fmt.Sprintf("preferences: no default matrix row for %s", event))
		}
	}
}

// Default quiet-hours window, applied even while quiet hours are disabled so
// enabling the flag alone yields a sane window.
const (
	DefaultQuietStart = "22:00"
	DefaultQuietEnd   = "08:00"
)

// DefaultSettings returns a fresh copy of the global default configuration:
// every channel except push enabled, instant digest, quiet hours off
// (22:00-08:00, mode "all"), all event gates on, one matrix row per event.
func DefaultSettings() *models.NotificationSettings {
	matrix := make([]models.MatrixRow, len(defaultMatrix))
	copy(matrix, defaultMatrix)

	return &models.NotificationSettings{
		Channels: models.ChannelToggles{
			InApp: true,
			Email: true,
			Chat:  true,
			SMS:   true,
			Push:  false,
		},
		Digest: models.DigestInstant,
		QuietHours: models.QuietHours{
			Enabled: false,
			Start:   DefaultQuietStart,
			End:     DefaultQuietEnd,
			Mode:    models.QuietModeAll,
		},
		Events: models.EventToggles{
			NewItem:      true,
			StatusChange: true,
			Comment:      true,
			Assignment:   true,
			Deadline:     true,
			System:       true,
		},
		Display: models.DisplayFlags{
			GroupSimilar: true,
			ShowPreview:  true,
			PlaySound:    false,
		},
		Matrix:        matrix,
		Subscriptions: []models.Subscription{},
	}
}

// DefaultMatrixRow returns the default row for an event type. The defensive
// fallback for matrices that somehow omit a row after normalization.
func DefaultMatrixRow(event models.EventType) (models.MatrixRow, bool) {
	for _, row := range defaultMatrix {
		if row.Event == event {
			return row, true
		}
	}
	return models.MatrixRow{}, false
}
