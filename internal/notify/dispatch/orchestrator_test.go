package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corrtrack-notifier/internal/channels"
	stderrors "corrtrack-notifier/internal/common/errors"
	"corrtrack-notifier/internal/common/logger"
	"corrtrack-notifier/internal/models"
	"corrtrack-notifier/internal/notify/preferences"
	"corrtrack-notifier/internal/store"
)

// ==========================
// Test doubles
// ==========================

type mockUsers struct {
	users map[string]*models.User
}

func (m *mockUsers) GetUser(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

type mockPrefs struct {
	settings map[string]*models.NotificationSettings
}

func (m *mockPrefs) Resolve(ctx context.Context, user *models.User) (*models.NotificationSettings, error) {
	if s, ok := m.settings[user.ID]; ok {
		return s, nil
	}
	return preferences.DefaultSettings(), nil
}

type mockRecipients struct {
	ResolveFunc func(ctx context.Context, event models.EventType, explicit []string, actorID string, includeSubscriptions bool) ([]string, error)
}

func (m *mockRecipients) Resolve(ctx context.Context, event models.EventType, explicit []string, actorID string, includeSubscriptions bool) ([]string, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, event, explicit, actorID, includeSubscriptions)
	}
	return explicit, nil
}

type mockGuard struct {
	IsDuplicateFunc func(ctx context.Context, userID, key string, window time.Duration) (bool, error)
	calls           int
}

func (m *mockGuard) IsDuplicate(ctx context.Context, userID, key string, window time.Duration) (bool, error) {
	m.calls++
	if m.IsDuplicateFunc != nil {
		return m.IsDuplicateFunc(ctx, userID, key, window)
	}
	return false, nil
}

type mockWriter struct {
	notifications []*models.Notification
	deliveries    []*models.NotificationDelivery

	createNotificationErr error
	createDeliveryErr     error
}

func (m *mockWriter) CreateNotification(ctx context.Context, n *models.Notification) error {
	if m.createNotificationErr != nil {
		return m.createNotificationErr
	}
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *mockWriter) CreateDelivery(ctx context.Context, d *models.NotificationDelivery) error {
	if m.createDeliveryErr != nil {
		return m.createDeliveryErr
	}
	m.deliveries = append(m.deliveries, d)
	return nil
}

type sentMessage struct {
	recipient string
	subject   string
	body      string
}

type recordingSender struct {
	sent []sentMessage
	err  error
}

func (s *recordingSender) Send(ctx context.Context, recipient, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{recipient: recipient, subject: subject, body: body})
	return nil
}

// ==========================
// Harness
// ==========================

type harness struct {
	users   *mockUsers
	prefs   *mockPrefs
	guard   *mockGuard
	writer  *mockWriter
	email   *recordingSender
	chat    *recordingSender
	sms     *recordingSender
	senders map[models.Channel]channels.Sender
}

func newHarness() *harness {
	return &harness{
		users:  &mockUsers{users: map[string]*models.User{}},
		prefs:  &mockPrefs{settings: map[string]*models.NotificationSettings{}},
		guard:  &mockGuard{},
		writer: &mockWriter{},
		email:  &recordingSender{},
		chat:   &recordingSender{},
		sms:    &recordingSender{},
	}
}

func (h *harness) orchestrator(cfg Config) *Orchestrator {
	if h.senders == nil {
		h.senders = map[models.Channel]channels.Sender{
			models.ChannelEmail: h.email,
			models.ChannelChat:  h.chat,
			models.ChannelSMS:   h.sms,
		}
	}
	return NewOrchestrator(cfg, h.users, h.prefs,
		&mockRecipients{}, h.guard, h.writer, h.senders, logger.NewNoOpLogger())
}

func deliveryFor(t *testing.T, outcome RecipientOutcome, ch models.Channel) models.NotificationDelivery {
	t.Helper()
	for _, d := range outcome.Deliveries {
		if d.Channel == ch {
			return d
		}
	}
	t.Fatalf("no delivery for channel %s", ch)
	return models.NotificationDelivery{}
}

func hasDeliveryFor(outcome RecipientOutcome, ch models.Channel) bool {
	for _, d := range outcome.Deliveries {
		if d.Channel == ch {
			return true
		}
	}
	return false
}

// quietWindowAround returns a two-hour quiet window centered on now, so the
// window is active regardless of when the test runs.
func quietWindowAround(now time.Time, mode models.QuietMode) models.QuietHours {
	return models.QuietHours{
		Enabled: true,
		Start:   now.Add(-time.Hour).Format("15:04"),
		End:     now.Add(time.Hour).Format("15:04"),
		Mode:    mode,
	}
}

// ==========================
// Tests
// ==========================

func TestDispatchAssignmentDefaultSettings(t *testing.T) {
	h := newHarness()
	h.users.users["u1"] = &models.User{ID: "u1", Email: "u1@example.com"}
	o := h.orchestrator(Config{})

	result, err := o.Dispatch(context.Background(), &Input{
		Event:   models.EventAssignment,
		Title:   "Item assigned to you",
		Body:    "Case 42 needs review",
		ItemID:  "item-42",
		ActorID: "u2",
		UserIDs: []string{"u1"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Recipients)
	assert.Equal(t, 1, result.Created)
	require.Len(t, result.Outcomes, 1)

	outcome := result.Outcomes[0]
	assert.Equal(t, OutcomeNotified, outcome.Status)
	assert.NotEmpty(t, outcome.NotificationID)

	require.Len(t, h.writer.notifications, 1)
	n := h.writer.notifications[0]
	assert.Equal(t, "u1", n.UserID)
	assert.Equal(t, models.PriorityNormal, n.Priority, "priority comes from the matrix row")
	assert.Equal(t, "assignment:item-42:u2", n.DedupKey)

	inApp := deliveryFor(t, outcome, models.ChannelInApp)
	assert.Equal(t, models.DeliverySent, inApp.Status)
	assert.Equal(t, "u1", inApp.Recipient)
	require.NotNil(t, inApp.SentAt)

	email := deliveryFor(t, outcome, models.ChannelEmail)
	assert.Equal(t, models.DeliverySent, email.Status)
	assert.Equal(t, "u1@example.com", email.Recipient)
	require.Len(t, h.email.sent, 1)

	// Defaults route assignment to in-app and email only.
	assert.False(t, hasDeliveryFor(outcome, models.ChannelChat))
	assert.False(t, hasDeliveryFor(outcome, models.ChannelSMS))
	assert.False(t, hasDeliveryFor(outcome, models.ChannelPush))

	// Every delivery row was persisted.
	assert.Len(t, h.writer.deliveries, len(outcome.Deliveries))
}

func TestDispatchMissingEmailRecordsSkip(t *testing.T) {
	h := newHarness()
	h.users.users["u1"] = &models.User{ID: "u1"}
	o := h.orchestrator(Config{})

	result, err := o.Dispatch(context.Background(), &Input{
		Event:   models.EventComment,
		Title:   "New comment",
		UserIDs: []string{"u1"},
	})
	require.NoError(t, err)

	outcome := result.Outcomes[0]
	assert.Equal(t, OutcomeNotified, outcome.Status)

	email := deliveryFor(t, outcome, models.ChannelEmail)
	assert.Equal(t, models.DeliverySkipped, email.Status)
	assert.Equal(t, models.ReasonMissingEmail, email.Reason)
	assert.Empty(t, h.email.sent)

	inApp := deliveryFor(t, outcome, models.ChannelInApp)
	assert.Equal(t, models.DeliverySent, inApp.Status)
}

func TestDispatchQuietHoursModeAll(t *testing.T) {
	h := newHarness()
	h.users.users["u1"] = &models.User{ID: "u1", Email: "u1@example.com"}

	settings := preferences.DefaultSettings()
	settings.QuietHours = quietWindowAround(time.Now(), models.QuietModeAll)
	h.prefs.settings["u1"] = settings

	o := h.orchestrator(Config{})
	result, err := o.Dispatch(context.Background(), &Input{
		Event:   models.EventStatusChange,
		Title:   "Status changed",
		UserIDs: []string{"u1"},
	})
	require.NoError(t, err)

	outcome := result.Outcomes[0]
	assert.Equal(t, OutcomeNotified, outcome.Status, "the notification row is still created")

	email := deliveryFor(t, outcome, models.ChannelEmail)
	assert.Equal(t, models.DeliverySkipped, email.Status)
	assert.Equal(t, models.ReasonQuietHours, email.Reason)
	assert.Empty(t, h.email.sent)

	// In-app accumulates through quiet hours.
	inApp := deliveryFor(t, outcome, models.ChannelInApp)
	assert.Equal(t, models.DeliverySent, inApp.Status)
}

func TestDispatchQuietHoursImportantOnlyPassesDeadlines(t *testing.T) {
	h := newHarness()
	h.users.users["u1"] = &models.User{
		ID: "u1", Email: "u1@example.com", Phone: "+491700000000", ChatID: "12345",
	}

	settings := preferences.DefaultSettings()
	settings.QuietHours = quietWindowAround(time.Now(), models.QuietModeImportantOnly)
	h.prefs.settings["u1"] = settings

	o := h.orchestrator(Config{})
	result, err := o.Dispatch(context.Background(), &Input{
		Event:   models.EventDeadlineUrgent,
		Title:   "Deadline tomorrow",
		UserIDs: []string{"u1"},
	})
	require.NoError(t, err)

	outcome := result.Outcomes[0]
	email := deliveryFor(t, outcome, models.ChannelEmail)
	assert.Equal(t, models.DeliverySent, email.Status)
	sms := deliveryFor(t, outcome, models.ChannelSMS)
	assert.Equal(t, models.DeliverySent, sms.Status)
	assert.Len(t, h.sms.sent, 1)
}

func TestDispatchQuietHoursImportantOnlySkipsOrdinary(t *testing.T) {
	h := newHarness()
	h.users.users["u1"] = &models.User{ID: "u1", Email: "u1@example.com"}

	settings := preferences.DefaultSettings()
	settings.QuietHours = quietWindowAround(time.Now(), models.QuietModeImportantOnly)
	h.prefs.settings["u1"] = settings

	o := h.orchestrator(Config{})
	result, err := o.Dispatch(context.Background(), &Input{
		Event:   models.EventComment,
		Title:   "New comment",
		UserIDs: []string{"u1"},
	})
	require.NoError(t, err)

	email := deliveryFor(t, result.Outcomes[0], models.ChannelEmail)
	assert.Equal(t, models.DeliverySkipped, email.Status)
	assert.Equal(t, models.ReasonQuietHours, email.Reason)
}

func TestDispatchEventGateOffSuppresses(t *testing.T) {
	h := newHarness()
	h.users.users["u1"] = &models.User{ID: "u1", Email: "u1@example.com"}

	settings := preferences.DefaultSettings()
	settings.Events.Comment = false
	h.prefs.settings["u1"] = settings

	o := h.orchestrator(Config{})
	result, err := o.Dispatch(context.Background(), &Input{
		Event:   models.EventComment,
		Title:   "New comment",
		UserIDs: []string{"u1"},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Created)
	assert.Equal(t, OutcomeSuppressed, result.Outcomes[0].Status)
	assert.Empty(t, h.writer.notifications, "suppressed recipients get no rows at all")
	assert.Empty(t, h.writer.deliveries)
	assert.Zero(t, h.guard.calls, "dedup not consulted for suppressed recipients")
}

func TestDispatchDuplicateRecipient(t *testing.T) {
	h := newHarness()
	h.users.users["u1"] = &models.User{ID: "u1", Email: "u1@example.com"}
	h.guard.IsDuplicateFunc = func(ctx context.Context, userID, key string, window time.Duration) (bool, error) {
		return true, nil
	}

	o := h.orchestrator(Config{DedupWindow: 10 * time.Minute})
	result, err := o.Dispatch(context.Background(), &Input{
		Event:   models.EventComment,
		Title:   "New comment",
		UserIDs: []string{"u1"},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Created)
	assert.Equal(t, OutcomeDuplicate, result.Outcomes[0].Status)
	assert.Empty(t, h.writer.notifications)
	assert.Empty(t, h.email.sent)
}

func TestDispatchDedupUnavailableDisablesForRemainder(t *testing.T) {
	h := newHarness()
	h.users.users["u1"] = &models.User{ID: "u1"}
	h.users.users["u2"] = &models.User{ID: "u2"}
	h.guard.IsDuplicateFunc = func(ctx context.Context, userID, key string, window time.Duration) (bool, error) {
		return false, stderrors.NewDedupUnavailableError(nil)
	}

	o := h.orchestrator(Config{DedupWindow: 10 * time.Minute})
	result, err := o.Dispatch(context.Background(), &Input{
		Event:   models.EventComment,
		Title:   "New comment",
		UserIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created, "dedup degradation never blocks dispatch")
	assert.Equal(t, 1, h.guard.calls, "guard consulted once, then disabled")
}

func TestDispatchDedupTransientErrorProceedsPerRecipient(t *testing.T) {
	h := newHarness()
	h.users.users["u1"] = &models.User{ID: "u1"}
	h.users.users["u2"] = &models.User{ID: "u2"}
	h.guard.IsDuplicateFunc = func(ctx context.Context, userID, key string, window time.Duration) (bool, error) {
		return false, errors.New("timeout")
	}

	o := h.orchestrator(Config{DedupWindow: 10 * time.Minute})
	result, err := o.Dispatch(context.Background(), &Input{
		Event:   models.EventComment,
		Title:   "New comment",
		UserIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 2, h.guard.calls, "transient errors do not disable dedup")
}

func TestDispatchZeroWindowSkipsDedup(t *testing.T) {
	h := newHarness()
	h.users.users["u1"] = &models.User{ID: "u1"}
	zero := 0

	o := h.orchestrator(Config{DedupWindow: 10 * time.Minute})
	_, err := o.Dispatch(context.Background(), &Input{
		Event:              models.EventComment,
		Title:              "New comment",
		UserIDs:            []string{"u1"},
		DedupWindowMinutes: &zero,
	})
	require.NoError(t, err)
	assert.Zero(t, h.guard.calls)
}

func TestDispatchCallerDedupKeyOverride(t *testing.T) {
	h := newHarness()
	h.users.users["u1"] = &models.User{ID: "u1"}
	var gotKey string
	h.guard.IsDuplicateFunc = func(ctx context.Context, userID, key string, window time.Duration) (bool, error) {
		gotKey = key
		return false, nil
	}

	o := h.orchestrator(Config{DedupWindow: 10 * time.Minute})
	_, err := o.Dispatch(context.Background(), &Input{
		Event:    models.EventSystem,
		Title:    "Maintenance tonight",
		UserIDs:  []string{"u1"},
		DedupKey: "maintenance-2026-08",
	})
	require.NoError(t, err)
	assert.Equal(t, "maintenance-2026-08", gotKey)
}

func TestDispatchSendFailureRecordsFailedDelivery(t *testing.T) {
	h := newHarness()
	h.users.users["u1"] = &models.User{ID: "u1", Email: "u1@example.com"}
	h.email.err = errors.New("ses throttled")

	o := h.orchestrator(Config{})
	result, err := o.Dispatch(context.Background(), &Input{
		Event:   models.EventComment,
		Title:   "New comment",
		UserIDs: []string{"u1"},
	})
	require.NoError(t, err, "channel failures never fail the dispatch")

	outcome := result.Outcomes[0]
	assert.Equal(t, OutcomeNotified, outcome.Status)

	email := deliveryFor(t, outcome, models.ChannelEmail)
	assert.Equal(t, models.DeliveryFailed, email.Status)
	assert.Equal(t, models.ReasonSendFailed, email.Reason)
	assert.Nil(t, email.SentAt)

	inApp := deliveryFor(t, outcome, models.ChannelInApp)
	assert.Equal(t, models.DeliverySent, inApp.Status)
}

func TestDispatchUnknownRecipientSkipped(t *testing.T) {
	h := newHarness()
	h.users.users["u1"] = &models.User{ID: "u1"}

	o := h.orchestrator(Config{})
	result, err := o.Dispatch(context.Background(), &Input{
		Event:   models.EventComment,
		Title:   "New comment",
		UserIDs: []string{"ghost", "u1"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Recipients)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, OutcomeSkipped, result.Outcomes[0].Status)
	assert.Equal(t, OutcomeNotified, result.Outcomes[1].Status)
}

func TestDispatchNoSenderRecordsChannelDisabled(t *testing.T) {
	h := newHarness()
	h.users.users["u1"] = &models.User{ID: "u1", Email: "u1@example.com"}
	h.senders = map[models.Channel]channels.Sender{}

	o := h.orchestrator(Config{})
	result, err := o.Dispatch(context.Background(), &Input{
		Event:   models.EventComment,
		Title:   "New comment",
		UserIDs: []string{"u1"},
	})
	require.NoError(t, err)

	email := deliveryFor(t, result.Outcomes[0], models.ChannelEmail)
	assert.Equal(t, models.DeliverySkipped, email.Status)
	assert.Equal(t, models.ReasonChannelDisabled, email.Reason)
}

func TestDispatchPushCandidateRecordedUnsupported(t *testing.T) {
	h := newHarness()
	h.users.users["u1"] = &models.User{ID: "u1"}

	settings := preferences.DefaultSettings()
	settings.Channels.Push = true
	h.prefs.settings["u1"] = settings

	o := h.orchestrator(Config{})
	result, err := o.Dispatch(context.Background(), &Input{
		Event:   models.EventDeadlineOverdue,
		Title:   "Deadline passed",
		UserIDs: []string{"u1"},
	})
	require.NoError(t, err)

	push := deliveryFor(t, result.Outcomes[0], models.ChannelPush)
	assert.Equal(t, models.DeliverySkipped, push.Status)
	assert.Equal(t, models.ReasonPushNotSupported, push.Reason)
}

func TestDispatchTemplatePlaceholders(t *testing.T) {
	h := newHarness()
	h.users.users["u1"] = &models.User{ID: "u1", Email: "u1@example.com"}

	o := h.orchestrator(Config{})
	_, err := o.Dispatch(context.Background(), &Input{
		Event:    models.EventStatusChange,
		Title:    "Case {{caseNumber}} moved to {{status}}",
		Body:     "Changed by {{actorId}}. {{missing}}Details follow.",
		ActorID:  "u2",
		UserIDs:  []string{"u1"},
		Metadata: map[string]interface{}{"caseNumber": 42, "status": "closed"},
	})
	require.NoError(t, err)

	require.Len(t, h.email.sent, 1)
	assert.Equal(t, "Case 42 moved to closed", h.email.sent[0].subject)
	assert.Equal(t, "Changed by u2. Details follow.", h.email.sent[0].body)
}

func TestDispatchInvalidInput(t *testing.T) {
	h := newHarness()
	o := h.orchestrator(Config{})

	tests := []struct {
		name  string
		input *Input
	}{
		{name: "unknown event", input: &Input{Event: "telepathy", Title: "x"}},
		{name: "missing title", input: &Input{Event: models.EventComment}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Dispatch(context.Background(), tt.input)
			assert.Equal(t, stderrors.ErrCodeInvalidDispatchInput, stderrors.CodeOf(err))
		})
	}
}

func TestDispatchRecipientResolutionFailure(t *testing.T) {
	h := newHarness()
	o := NewOrchestrator(Config{}, h.users, h.prefs,
		&mockRecipients{
			ResolveFunc: func(ctx context.Context, event models.EventType, explicit []string, actorID string, include bool) ([]string, error) {
				return nil, errors.New("connection refused")
			},
		},
		h.guard, h.writer, nil, logger.NewNoOpLogger())

	_, err := o.Dispatch(context.Background(), &Input{
		Event:   models.EventComment,
		Title:   "New comment",
		UserIDs: []string{"u1"},
	})
	assert.Equal(t, stderrors.ErrCodeRecipientResolutionFailed, stderrors.CodeOf(err))
}

func TestDispatchNotificationWriteFailurePropagates(t *testing.T) {
	h := newHarness()
	h.users.users["u1"] = &models.User{ID: "u1"}
	h.writer.createNotificationErr = errors.New("disk full")

	o := h.orchestrator(Config{})
	_, err := o.Dispatch(context.Background(), &Input{
		Event:   models.EventComment,
		Title:   "New comment",
		UserIDs: []string{"u1"},
	})
	assert.Equal(t, stderrors.ErrCodeStorageUnavailable, stderrors.CodeOf(err))
}

func TestDispatchDeliveryWriteFailureDoesNotAbort(t *testing.T) {
	h := newHarness()
	h.users.users["u1"] = &models.User{ID: "u1", Email: "u1@example.com"}
	h.writer.createDeliveryErr = errors.New("disk full")

	o := h.orchestrator(Config{})
	result, err := o.Dispatch(context.Background(), &Input{
		Event:   models.EventComment,
		Title:   "New comment",
		UserIDs: []string{"u1"},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotified, result.Outcomes[0].Status)
	assert.Len(t, h.email.sent, 1, "audit row loss does not stop the send")
}
