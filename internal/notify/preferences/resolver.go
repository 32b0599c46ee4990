// internal/notify/preferences/resolver.go
package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"

	"corrtrack-notifier/internal/common/logger"
	"corrtrack-notifier/internal/models"
	"corrtrack-notifier/internal/store"
)

// DocumentStore is the slice of the preference store the resolver uses.
type DocumentStore interface {
	GetDocument(ctx context.Context, userID string) (json.RawMessage, error)
	SaveDocument(ctx context.Context, userID string, doc json.RawMessage) error
}

// SubscriptionWriter replaces a user's subscription rows on settings save.
type SubscriptionWriter interface {
	ReplaceForUser(ctx context.Context, userID string, subs []models.Subscription) error
}

// Resolver loads a user's effective notification configuration. Resolve is a
// pure read: stored document merged onto defaults when present and
// well-formed, legacy flat columns plus defaults otherwise. It never returns
// a partial or nil settings value.
type Resolver struct {
	docs   DocumentStore
	subs   SubscriptionWriter
	logger logger.Logger
}

func NewResolver(docs DocumentStore, subs SubscriptionWriter, log logger.Logger) *Resolver {
	return &Resolver{
		docs:   docs,
		subs:   subs,
		logger: log.WithFields(map[string]interface{}{"component": "preferences"}),
	}
}

// Resolve returns fully populated settings for the given user. The user row
// supplies the legacy fallback columns, so it must already be loaded.
func (r *Resolver) Resolve(ctx context.Context, user *models.User) (*models.NotificationSettings, error) {
	raw, err := r.docs.GetDocument(ctx, user.ID)
	if errors.Is(err, store.ErrNotFound) {
		return r.fromLegacyColumns(user), nil
	}
	if err != nil {
		return nil, err
	}

	if err := validateDocument(raw); err != nil {
		r.logger.Warn("stored settings document malformed, using legacy fallback", map[string]interface{}{
			"userId": user.ID,
			"error":  err.Error(),
		})
		return r.fromLegacyColumns(user), nil
	}

	settings := DefaultSettings()
	if err := mergeDocument(settings, raw); err != nil {
		r.logger.Warn("stored settings document undecodable, using legacy fallback", map[string]interface{}{
			"userId": user.ID,
			"error":  err.Error(),
		})
		return r.fromLegacyColumns(user), nil
	}

	// Documents saved before a new event type shipped have no row for it.
	settings.Matrix = ensureFullMatrix(settings)

	return settings, nil
}

// ensureFullMatrix re-checks the invariant of one row per known event type,
// filling gaps from the default matrix.
func ensureFullMatrix(settings *models.NotificationSettings) []models.MatrixRow {
	full := make([]models.MatrixRow, 0, len(models.KnownEventTypes()))
	for _, event := range models.KnownEventTypes() {
		if row, ok := settings.MatrixRowFor(event); ok {
			full = append(full, row)
			continue
		}
		if row, ok := DefaultMatrixRow(event); ok {
			full = append(full, row)
		}
	}
	return full
}

var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// fromLegacyColumns synthesizes settings from the five legacy flat user
// columns plus defaults for everything those columns cannot express.
func (r *Resolver) fromLegacyColumns(user *models.User) *models.NotificationSettings {
	settings := DefaultSettings()

	settings.Channels.Email = user.LegacyEmailEnabled
	settings.Channels.Chat = user.LegacyChatEnabled

	if user.LegacyDigest.Valid() {
		settings.Digest = user.LegacyDigest
	}

	if timeOfDayPattern.MatchString(user.LegacyQuietStart) &&
		timeOfDayPattern.MatchString(user.LegacyQuietEnd) {
		settings.QuietHours.Enabled = true
		settings.QuietHours.Start = user.LegacyQuietStart
		settings.QuietHours.End = user.LegacyQuietEnd
	}

	return settings
}

// Save persists a user's settings document and replaces their subscription
// rows wholesale, per the settings-update lifecycle. A missing subscription
// store degrades with a warning instead of failing the save.
func (r *Resolver) Save(ctx context.Context, userID string, settings *models.NotificationSettings) error {
	settings.Matrix = ensureFullMatrix(settings)

	doc, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	if err := r.docs.SaveDocument(ctx, userID, doc); err != nil {
		return err
	}

	for i := range settings.Subscriptions {
		settings.Subscriptions[i].UserID = userID
	}
	if err := r.subs.ReplaceForUser(ctx, userID, settings.Subscriptions); err != nil {
		r.logger.Warn("subscription replace failed, settings saved without subscriptions", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}
	return nil
}
