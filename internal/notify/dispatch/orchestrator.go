// internal/notify/dispatch/orchestrator.go
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"corrtrack-notifier/internal/channels"
	stderrors "corrtrack-notifier/internal/common/errors"
	"corrtrack-notifier/internal/common/logger"
	"corrtrack-notifier/internal/common/metrics"
	"corrtrack-notifier/internal/models"
	"corrtrack-notifier/internal/notify/dedup"
	"corrtrack-notifier/internal/notify/quiet"
	"corrtrack-notifier/internal/notify/routing"
	"corrtrack-notifier/internal/store"
)

// UserSource loads one user profile with contact addresses.
type UserSource interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// PreferenceResolver returns fully populated settings for a user.
type PreferenceResolver interface {
	Resolve(ctx context.Context, user *models.User) (*models.NotificationSettings, error)
}

// RecipientResolver computes the deduplicated recipient id set.
type RecipientResolver interface {
	Resolve(ctx context.Context, event models.EventType, explicit []string, actorID string, includeSubscriptions bool) ([]string, error)
}

// DedupChecker answers whether a user already saw this logical event.
type DedupChecker interface {
	IsDuplicate(ctx context.Context, userID, key string, window time.Duration) (bool, error)
}

// NotificationWriter appends notification and delivery rows.
type NotificationWriter interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	CreateDelivery(ctx context.Context, d *models.NotificationDelivery) error
}

// Config tunes the orchestrator.
type Config struct {
	// DedupWindow applies when the caller does not override it.
	DedupWindow time.Duration
	// SendTimeout bounds each external channel send.
	SendTimeout time.Duration
}

// Orchestrator is the top-level dispatch entry point: it sequences recipient
// resolution, preference resolution, routing, quiet hours and dedup, then
// fans out across channels recording one delivery outcome per channel.
type Orchestrator struct {
	config     Config
	users      UserSource
	prefs      PreferenceResolver
	recipients RecipientResolver
	guard      DedupChecker
	writer     NotificationWriter
	senders    map[models.Channel]channels.Sender
	logger     logger.Logger
}

func NewOrchestrator(
	cfg Config,
	users UserSource,
	prefs PreferenceResolver,
	recipients RecipientResolver,
	guard DedupChecker,
	writer NotificationWriter,
	senders map[models.Channel]channels.Sender,
	log logger.Logger,
) *Orchestrator {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Orchestrator{
		config:     cfg,
		users:      users,
		prefs:      prefs,
		recipients: recipients,
		guard:      guard,
		writer:     writer,
		senders:    senders,
		logger:     log.WithFields(map[string]interface{}{"component": "dispatch"}),
	}
}

// Dispatch runs the full pipeline for one domain event. Recipients are
// processed sequentially; failures are isolated per channel and per
// recipient. Only unrecoverable storage errors propagate.
func (o *Orchestrator) Dispatch(ctx context.Context, input *Input) (*Result, error) {
	started := time.Now()

	if err := validateInput(input); err != nil {
		metrics.DispatchesTotal.WithLabelValues(string(input.Event), "invalid").Inc()
		return nil, err
	}

	log := o.logger.WithFields(map[string]interface{}{
		"event":   string(input.Event),
		"itemId":  input.ItemID,
		"actorId": input.ActorID,
	})

	recipientIDs, err := o.recipients.Resolve(ctx, input.Event, input.UserIDs, input.ActorID, input.IncludeSubscriptions)
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues(string(input.Event), "failed").Inc()
		return nil, stderrors.NewRecipientResolutionFailedError(err)
	}

	dedupKey := input.DedupKey
	if dedupKey == "" {
		dedupKey = dedup.DeriveKey(input.Event, input.ItemID, input.ActorID)
	}
	window := o.config.DedupWindow
	if input.DedupWindowMinutes != nil {
		window = time.Duration(*input.DedupWindowMinutes) * time.Minute
	}

	result := &Result{
		Event:      input.Event,
		Recipients: len(recipientIDs),
		Outcomes:   make([]RecipientOutcome, 0, len(recipientIDs)),
	}

	// Dedup storage failing mid-dispatch disables dedup for the rest of
	// the call instead of failing it.
	dedupDisabled := false

	for _, userID := range recipientIDs {
		outcome, err := o.processRecipient(ctx, log, input, userID, dedupKey, window, &dedupDisabled)
		if err != nil {
			metrics.DispatchesTotal.WithLabelValues(string(input.Event), "failed").Inc()
			return result, err
		}
		if outcome.Status == OutcomeNotified {
			result.Created++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	metrics.DispatchesTotal.WithLabelValues(string(input.Event), "ok").Inc()
	metrics.DispatchDuration.WithLabelValues(string(input.Event)).Observe(time.Since(started).Seconds())

	log.Info("dispatch complete", map[string]interface{}{
		"recipients": result.Recipients,
		"created":    result.Created,
	})
	return result, nil
}

func validateInput(input *Input) error {
	if !input.Event.Valid() {
		return stderrors.NewInvalidDispatchInputError(fmt.Sprintf("unknown event type %q", input.Event))
	}
	if input.Title == "" {
		return stderrors.NewInvalidDispatchInputError("title is required")
	}
	return nil
}

func (o *Orchestrator) processRecipient(
	ctx context.Context,
	log logger.Logger,
	input *Input,
	userID string,
	dedupKey string,
	window time.Duration,
	dedupDisabled *bool,
) (RecipientOutcome, error) {
	outcome := RecipientOutcome{UserID: userID}

	user, err := o.users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("recipient not found, skipping", map[string]interface{}{"userId": userID})
		outcome.Status = OutcomeSkipped
		return outcome, nil
	}
	if err != nil {
		return outcome, stderrors.NewStorageUnavailableError(err)
	}

	settings, err := o.prefs.Resolve(ctx, user)
	if err != nil {
		return outcome, stderrors.NewStorageUnavailableError(err)
	}

	route, enabled := routing.Resolve(settings, input.Event)
	if !enabled {
		metrics.RecipientsSuppressed.WithLabelValues("gate").Inc()
		outcome.Status = OutcomeSuppressed
		return outcome, nil
	}

	if !*dedupDisabled && window > 0 {
		duplicate, err := o.guard.IsDuplicate(ctx, userID, dedupKey, window)
		if err != nil {
			if stderrors.CodeOf(err) == stderrors.ErrCodeDedupUnavailable {
				log.Warn("dedup storage unavailable, dedup disabled for this dispatch", map[string]interface{}{
					"error": err.Error(),
				})
				*dedupDisabled = true
			} else {
				log.Warn("dedup check failed, proceeding without dedup", map[string]interface{}{
					"userId": userID,
					"error":  err.Error(),
				})
			}
		} else if duplicate {
			metrics.RecipientsSuppressed.WithLabelValues("dedup").Inc()
			outcome.Status = OutcomeDuplicate
			return outcome, nil
		}
	}

	notification := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		ItemID:    input.ItemID,
		ActorID:   input.ActorID,
		Event:     input.Event,
		Title:     input.Title,
		Body:      input.Body,
		Priority:  route.Priority,
		DedupKey:  dedupKey,
		Metadata:  input.Metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.writer.CreateNotification(ctx, notification); err != nil {
		return outcome, stderrors.NewStorageUnavailableError(err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(input.Event)).Inc()

	outcome.Status = OutcomeNotified
	outcome.NotificationID = notification.ID
	outcome.Deliveries = o.deliverChannels(ctx, log, input, user, route, settings, notification)
	return outcome, nil
}

// deliverChannels fans out across every known channel, recording one outcome
// row per attempted channel. Channel failures never abort the fan-out.
func (o *Orchestrator) deliverChannels(
	ctx context.Context,
	log logger.Logger,
	input *Input,
	user *models.User,
	route routing.Route,
	settings *models.NotificationSettings,
	notification *models.Notification,
) []models.NotificationDelivery {
	quietActive := quiet.IsActive(settings.QuietHours, time.Now())
	subject := renderTemplate(input.Title, o.templateData(input, user))
	body := renderTemplate(input.Body, o.templateData(input, user))

	var deliveries []models.NotificationDelivery
	record := func(d models.NotificationDelivery) {
		d.ID = uuid.New().String()
		d.NotificationID = notification.ID
		if err := o.writer.CreateDelivery(ctx, &d); err != nil {
			log.Error("delivery row not recorded", map[string]interface{}{
				"notificationId": notification.ID,
				"channel":        string(d.Channel),
				"error":          err.Error(),
			})
		}
		metrics.DeliveriesTotal.WithLabelValues(string(d.Channel), string(d.Status)).Inc()
		deliveries = append(deliveries, d)
	}

	for _, channel := range models.KnownChannels() {
		switch channel {
		case models.ChannelInApp:
			// In-app rows are always recorded as sent: they have no
			// external dependency and accumulate for later viewing.
			now := time.Now().UTC()
			record(models.NotificationDelivery{
				Channel:   models.ChannelInApp,
				Status:    models.DeliverySent,
				Recipient: user.ID,
				SentAt:    &now,
			})

		case models.ChannelPush:
			if !route.IsCandidate(channel) {
				continue
			}
			// Push has no working transport yet; an explicit terminal
			// state rather than a silent drop.
			record(models.NotificationDelivery{
				Channel: models.ChannelPush,
				Status:  models.DeliverySkipped,
				Reason:  models.ReasonPushNotSupported,
			})

		default:
			if !route.IsCandidate(channel) {
				continue
			}
			record(o.attemptExternal(ctx, log, channel, user, subject, body,
				quietActive, settings.QuietHours.Mode, input.Event, route.Priority))
		}
	}
	return deliveries
}

// attemptExternal resolves one external channel (email, chat, sms) to a
// terminal delivery state: quiet-hours skip, missing contact skip, disabled
// adapter skip, send failure, or sent.
func (o *Orchestrator) attemptExternal(
	ctx context.Context,
	log logger.Logger,
	channel models.Channel,
	user *models.User,
	subject, body string,
	quietActive bool,
	quietMode models.QuietMode,
	event models.EventType,
	priority models.Priority,
) models.NotificationDelivery {
	if quiet.ShouldSkip(quietActive, quietMode, channel, event, priority) {
		return models.NotificationDelivery{
			Channel: channel,
			Status:  models.DeliverySkipped,
			Reason:  models.ReasonQuietHours,
		}
	}

	recipient, missingReason := contactFor(channel, user)
	if recipient == "" {
		return models.NotificationDelivery{
			Channel: channel,
			Status:  models.DeliverySkipped,
			Reason:  missingReason,
		}
	}

	sender := o.senders[channel]
	if sender == nil {
		return models.NotificationDelivery{
			Channel:   channel,
			Status:    models.DeliverySkipped,
			Recipient: recipient,
			Reason:    models.ReasonChannelDisabled,
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, o.config.SendTimeout)
	defer cancel()

	if err := sender.Send(sendCtx, recipient, subject, body); err != nil {
		log.Error("channel send failed", map[string]interface{}{
			"channel": string(channel),
			"userId":  user.ID,
			"error":   err.Error(),
		})
		return models.NotificationDelivery{
			Channel:   channel,
			Status:    models.DeliveryFailed,
			Recipient: recipient,
			Reason:    models.ReasonSendFailed,
		}
	}

	now := time.Now().UTC()
	return models.NotificationDelivery{
		Channel:   channel,
		Status:    models.DeliverySent,
		Recipient: recipient,
		SentAt:    &now,
	}
}

// contactFor picks the channel-specific address, or the skip reason when the
// user has none on file.
func contactFor(channel models.Channel, user *models.User) (string, string) {
	switch channel {
	case models.ChannelEmail:
		return user.Email, models.ReasonMissingEmail
	case models.ChannelChat:
		return user.ChatID, models.ReasonMissingChatID
	case models.ChannelSMS:
		return user.Phone, models.ReasonMissingPhone
	}
	return "", ""
}

func (o *Orchestrator) templateData(input *Input, user *models.User) map[string]interface{} {
	data := map[string]interface{}{
		"userId":  user.ID,
		"event":   string(input.Event),
		"itemId":  input.ItemID,
		"actorId": input.ActorID,
	}
	for k, v := range input.Metadata {
		data[k] = v
	}
	return data
}
