// internal/notify/quiet/quiet.go
package quiet

import (
	"fmt"
	"time"

	"corrtrack-notifier/internal/models"
)

// minuteOfDay parses "HH:MM" into minutes since midnight.
func minuteOfDay(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("bad time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad time of day %q", s)
	}
	return h*60 + m, nil
}

// IsActive reports whether now falls inside the quiet-hours window. A window
// whose start is later than its end wraps midnight: 22:00-08:00 is active at
// 23:30 and at 07:59, inactive at 09:00. Unparseable bounds deactivate the
// window.
func IsActive(q models.QuietHours, now time.Time) bool {
	if !q.Enabled {
		return false
	}

	start, err := minuteOfDay(q.Start)
	if err != nil {
		return false
	}
	end, err := minuteOfDay(q.End)
	if err != nil {
		return false
	}
	if start == end {
		return false
	}

	current := now.Hour()*60 + now.Minute()
	if start > end {
		return current >= start || current < end
	}
	return start <= current && current < end
}

// isImportant classifies events that bypass important-only suppression:
// deadline events and anything routed at high or critical priority.
func isImportant(event models.EventType, priority models.Priority) bool {
	if event == models.EventDeadlineUrgent || event == models.EventDeadlineOverdue {
		return true
	}
	return priority == models.PriorityHigh || priority == models.PriorityCritical
}

// ShouldSkip decides whether one channel's delivery is suppressed by quiet
// hours. In-app is never suppressed: those rows accumulate for later
// viewing. In "all" mode everything else is skipped; in "important_only"
// mode important events pass through on every channel.
func ShouldSkip(active bool, mode models.QuietMode, channel models.Channel, event models.EventType, priority models.Priority) bool {
	if !active {
		return false
	}
	if channel == models.ChannelInApp {
		return false
	}

	switch mode {
	case models.QuietModeAll:
		return true
	case models.QuietModeImportantOnly:
		return !isImportant(event, priority)
	}
	return false
}
