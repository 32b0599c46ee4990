// internal/models/user.go
package models

// User carries the profile fields the dispatch engine reads: contact
// addresses per channel plus the legacy flat notification columns used when
// no structured preferences document exists.
type User struct {
	ID     string `json:"id"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	ChatID string `json:"chatId"`

	// Legacy flat notification columns, superseded by the preferences
	// document but still honored as a fallback source.
	LegacyEmailEnabled bool            `json:"legacyEmailEnabled"`
	LegacyChatEnabled  bool            `json:"legacyChatEnabled"`
	LegacyQuietStart   string          `json:"legacyQuietStart"`
	LegacyQuietEnd     string          `json:"legacyQuietEnd"`
	LegacyDigest       DigestFrequency `json:"legacyDigest"`
}
