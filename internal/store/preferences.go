// internal/store/preferences.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PreferenceStore reads and writes the structured per-user settings document
// (a JSONB column keyed by user id). The resolver treats a missing row or an
// unprovisioned table the same way: fall back to legacy columns.
type PreferenceStore struct {
	db *sql.DB
}

func NewPreferenceStore(db *sql.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

// GetDocument returns the raw stored settings document for a user.
// ErrNotFound when the user has no document or the table does not exist yet.
func (s *PreferenceStore) GetDocument(ctx context.Context, userID string) (json.RawMessage, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT settings FROM notification_preferences WHERE user_id = $1`,
		userID,
	).Scan(&doc)

	if err == sql.ErrNoRows || isSchemaError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get preferences for %s: %w", userID, err)
	}
	return json.RawMessage(doc), nil
}

// SaveDocument upserts a user's settings document.
func (s *PreferenceStore) SaveDocument(ctx context.Context, userID string, doc json.RawMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification_preferences (user_id, settings, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET settings = $2, updated_at = NOW()`,
		userID, []byte(doc),
	)
	if err != nil {
		return fmt.Errorf("save preferences for %s: %w", userID, err)
	}
	return nil
}
