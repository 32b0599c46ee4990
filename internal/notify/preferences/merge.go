// internal/notify/preferences/merge.go
package preferences

import (
	"encoding/json"

	"corrtrack-notifier/internal/models"
)

// settingsDocument mirrors NotificationSettings with pointer fields so the
// merge can tell "omitted" apart from "set to zero value". Fields the stored
// document does not mention keep their defaults; unknown fields are dropped
// by the decoder.
type settingsDocument struct {
	Channels      *channelsDocument     `json:"channels"`
	Digest        *string               `json:"digest"`
	QuietHours    *quietHoursDocument   `json:"quietHours"`
	Events        *eventsDocument       `json:"events"`
	Display       *displayDocument      `json:"display"`
	Matrix        []matrixRowDocument   `json:"matrix"`
	Subscriptions []models.Subscription `json:"subscriptions"`
}

type channelsDocument struct {
	InApp *bool `json:"inApp"`
	Email *bool `json:"email"`
	Chat  *bool `json:"chat"`
	SMS   *bool `json:"sms"`
	Push  *bool `json:"push"`
}

type quietHoursDocument struct {
	Enabled *bool   `json:"enabled"`
	Start   *string `json:"start"`
	End     *string `json:"end"`
	Mode    *string `json:"mode"`
}

type eventsDocument struct {
	NewItem      *bool `json:"newItem"`
	StatusChange *bool `json:"statusChange"`
	Comment      *bool `json:"comment"`
	Assignment   *bool `json:"assignment"`
	Deadline     *bool `json:"deadline"`
	System       *bool `json:"system"`
}

type displayDocument struct {
	GroupSimilar *bool `json:"groupSimilar"`
	ShowPreview  *bool `json:"showPreview"`
	PlaySound    *bool `json:"playSound"`
}

type matrixRowDocument struct {
	Event    models.EventType  `json:"event"`
	Channels *channelsDocument `json:"channels"`
	Priority *string           `json:"priority"`
}

// mergeDocument deep-merges a validated stored document onto the given
// settings (the caller passes a fresh DefaultSettings copy). The result is
// always fully populated.
func mergeDocument(base *models.NotificationSettings, raw json.RawMessage) error {
	var doc settingsDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}

	if doc.Channels != nil {
		mergeChannels(&base.Channels, doc.Channels)
	}
	if doc.Digest != nil {
		if d := models.DigestFrequency(*doc.Digest); d.Valid() {
			base.Digest = d
		}
	}
	if doc.QuietHours != nil {
		q := doc.QuietHours
		if q.Enabled != nil {
			base.QuietHours.Enabled = *q.Enabled
		}
		if q.Start != nil {
			base.QuietHours.Start = *q.Start
		}
		if q.End != nil {
			base.QuietHours.End = *q.End
		}
		if q.Mode != nil {
			base.QuietHours.Mode = models.QuietMode(*q.Mode)
		}
	}
	if doc.Events != nil {
		mergeEvents(&base.Events, doc.Events)
	}
	if doc.Display != nil {
		d := doc.Display
		if d.GroupSimilar != nil {
			base.Display.GroupSimilar = *d.GroupSimilar
		}
		if d.ShowPreview != nil {
			base.Display.ShowPreview = *d.ShowPreview
		}
		if d.PlaySound != nil {
			base.Display.PlaySound = *d.PlaySound
		}
	}
	if doc.Matrix != nil {
		base.Matrix = normalizeMatrix(base.Matrix, doc.Matrix)
	}
	if doc.Subscriptions != nil {
		base.Subscriptions = doc.Subscriptions
	}

	return nil
}

func mergeChannels(base *models.ChannelToggles, doc *channelsDocument) {
	if doc.InApp != nil {
		base.InApp = *doc.InApp
	}
	if doc.Email != nil {
		base.Email = *doc.Email
	}
	if doc.Chat != nil {
		base.Chat = *doc.Chat
	}
	if doc.SMS != nil {
		base.SMS = *doc.SMS
	}
	if doc.Push != nil {
		base.Push = *doc.Push
	}
}

func mergeEvents(base *models.EventToggles, doc *eventsDocument) {
	if doc.NewItem != nil {
		base.NewItem = *doc.NewItem
	}
	if doc.StatusChange != nil {
		base.StatusChange = *doc.StatusChange
	}
	if doc.Comment != nil {
		base.Comment = *doc.Comment
	}
	if doc.Assignment != nil {
		base.Assignment = *doc.Assignment
	}
	if doc.Deadline != nil {
		base.Deadline = *doc.Deadline
	}
	if doc.System != nil {
		base.System = *doc.System
	}
}

// normalizeMatrix folds the document's rows onto the default rows so the
// result holds exactly one row per known event type. Rows for unknown events
// are dropped; on duplicates the last one wins.
func normalizeMatrix(defaults []models.MatrixRow, docRows []matrixRowDocument) []models.MatrixRow {
	byEvent := make(map[models.EventType]models.MatrixRow, len(defaults))
	for _, row := range defaults {
		byEvent[row.Event] = row
	}

	for _, docRow := range docRows {
		if !docRow.Event.Valid() {
			continue
		}
		row := byEvent[docRow.Event]
		if docRow.Channels != nil {
			mergeChannels(&row.Channels, docRow.Channels)
		}
		if docRow.Priority != nil {
			if p := models.Priority(*docRow.Priority); p.Valid() {
				row.Priority = p
			}
		}
		byEvent[docRow.Event] = row
	}

	normalized := make([]models.MatrixRow, 0, len(byEvent))
	for _, event := range models.KnownEventTypes() {
		normalized = append(normalized, byEvent[event])
	}
	return normalized
}
