package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corrtrack-notifier/internal/models"
	"corrtrack-notifier/internal/notify/preferences"
)

func TestResolveEventGateOff(t *testing.T) {
	settings := preferences.DefaultSettings()
	settings.Events.Comment = false

	_, enabled := Resolve(settings, models.EventComment)
	assert.False(t, enabled)
}

func TestResolveDeadlineGateCoversBothSubEvents(t *testing.T) {
	settings := preferences.DefaultSettings()
	settings.Events.Deadline = false

	_, enabled := Resolve(settings, models.EventDeadlineUrgent)
	assert.False(t, enabled)
	_, enabled = Resolve(settings, models.EventDeadlineOverdue)
	assert.False(t, enabled)
}

func TestResolveCandidatesFromMatrixRow(t *testing.T) {
	settings := preferences.DefaultSettings()

	route, enabled := Resolve(settings, models.EventDeadlineUrgent)
	require.True(t, enabled)

	assert.True(t, route.IsCandidate(models.ChannelInApp))
	assert.True(t, route.IsCandidate(models.ChannelEmail))
	assert.True(t, route.IsCandidate(models.ChannelChat))
	assert.True(t, route.IsCandidate(models.ChannelSMS))
	assert.False(t, route.IsCandidate(models.ChannelPush), "row requests nothing the master switch disallows")
	assert.Equal(t, models.PriorityHigh, route.Priority)
}

func TestResolveMasterSwitchWins(t *testing.T) {
	settings := preferences.DefaultSettings()
	settings.Channels.Email = false

	route, enabled := Resolve(settings, models.EventNewItem)
	require.True(t, enabled)

	assert.False(t, route.IsCandidate(models.ChannelEmail))
	assert.True(t, route.IsCandidate(models.ChannelInApp))
}

func TestResolvePriorityComesFromRow(t *testing.T) {
	settings := preferences.DefaultSettings()
	for i := range settings.Matrix {
		if settings.Matrix[i].Event == models.EventComment {
			settings.Matrix[i].Priority = models.PriorityCritical
		}
	}

	route, enabled := Resolve(settings, models.EventComment)
	require.True(t, enabled)
	assert.Equal(t, models.PriorityCritical, route.Priority)
}

func TestResolveMissingRowFallsBackToDefaults(t *testing.T) {
	settings := preferences.DefaultSettings()
	settings.Matrix = nil

	route, enabled := Resolve(settings, models.EventDeadlineOverdue)
	require.True(t, enabled)
	assert.Equal(t, models.PriorityCritical, route.Priority)
	assert.True(t, route.IsCandidate(models.ChannelSMS))
}
