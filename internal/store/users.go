// internal/store/users.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"corrtrack-notifier/internal/models"

	"github.com/lib/pq"
)

// UserStore reads user profile rows: identity, role, per-channel contact
// addresses and the legacy flat notification columns.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, role, email, phone, chat_id,
	notify_email, notify_chat, quiet_start, quiet_end, digest_frequency`

func (s *UserStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	row := s.db.QueryRowContext(ctx, query, id)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return user, nil
}

// GetUsers loads a set of users by id. Unknown ids are silently absent from
// the result.
func (s *UserStore) GetUsers(ctx context.Context, ids []string) (map[string]*models.User, error) {
	if len(ids) == 0 {
		return map[string]*models.User{}, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = ANY($1)`, userColumns)
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	defer rows.Close()

	users := make(map[string]*models.User, len(ids))
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[user.ID] = user
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user       models.User
		phone      sql.NullString
		chatID     sql.NullString
		quietStart sql.NullString
		quietEnd   sql.NullString
		digest     sql.NullString
	)

	err := row.Scan(&user.ID, &user.Role, &user.Email, &phone, &chatID,
		&user.LegacyEmailEnabled, &user.LegacyChatEnabled,
		&quietStart, &quietEnd, &digest)
	if err != nil {
		return nil, err
	}

	user.Phone = phone.String
	user.ChatID = chatID.String
	user.LegacyQuietStart = quietStart.String
	user.LegacyQuietEnd = quietEnd.String
	user.LegacyDigest = models.DigestFrequency(digest.String)
	return &user, nil
}
