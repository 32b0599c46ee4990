// internal/notify/routing/matrix.go
package routing

import (
	"corrtrack-notifier/internal/models"
	"corrtrack-notifier/internal/notify/preferences"
)

// Route is the routing decision for one user and event: the channels still
// in play before quiet-hours filtering, and the priority carried by the
// event. Priority comes verbatim from the matrix row; the matrix is the
// single source of truth for it.
type Route struct {
	Candidates map[models.Channel]bool
	Priority   models.Priority
}

// IsCandidate reports whether a channel survived routing.
func (r Route) IsCandidate(ch models.Channel) bool {
	return r.Candidates[ch]
}

// Resolve routes an event through a user's settings. Returns ok=false when
// the user's per-event gate is off: the event is suppressed for this user
// entirely and no notification row is created.
func Resolve(settings *models.NotificationSettings, event models.EventType) (Route, bool) {
	if !settings.Events.EnabledFor(event) {
		return Route{}, false
	}

	row, found := settings.MatrixRowFor(event)
	if !found {
		// Normalization should make this unreachable; fall back to the
		// global default row rather than failing the recipient.
		row, found = preferences.DefaultMatrixRow(event)
		if !found {
			return Route{}, false
		}
	}

	candidates := make(map[models.Channel]bool, len(models.KnownChannels()))
	for _, ch := range models.KnownChannels() {
		// The matrix row requests a channel; the user's master switch
		// has the last word.
		candidates[ch] = row.Channels.Enabled(ch) && settings.Channels.Enabled(ch)
	}

	return Route{Candidates: candidates, Priority: row.Priority}, true
}
