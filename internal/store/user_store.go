package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"marketplace/internal/models"
)

var ErrNoProfileFields = errors.New("no profile fields")

// Unique constraints on users, as reported in pq.Error.Constraint.
const (
	UsersEmailKey        = "users_email_lower_key"
	UsersTelegramIDKey   = "users_telegram_id_key"
	UsersReferralCodeKey = "users_referral_code_key"
)

const userColumns = `
	id, email, password_hash, username, nickname, role, name, bio, avatar_url, phone,
	telegram_id, telegram_username, verified, is_premium, agency_id, agency_name,
	business_type, referral_code, referred_by, failed_login_attempts, last_login_at, created_at`

// profileColumns lists the user columns a caller may change about themselves.
var profileColumns = map[string]struct{}{
	"nickname":          {},
	"name":              {},
	"bio":               {},
	"avatar_url":        {},
	"phone":             {},
	"telegram_username": {},
}

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

type NewUser struct {
	ID               string
	Email            string
	PasswordHash     string
	Username         string
	Name             *string
	Role             string
	ReferralCode     string
	ReferredBy       *string
	TelegramID       *int64
	TelegramUsername *string
	AvatarURL        *string
}

func (s *UserStore) Create(ctx context.Context, tx Execer, user NewUser) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, username, name, role, referral_code, referred_by, telegram_id, telegram_username, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, user.ID, user.Email, user.PasswordHash, user.Username, user.Name, user.Role, user.ReferralCode,
		user.ReferredBy, user.TelegramID, user.TelegramUsername, user.AvatarURL)
	return err
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return user, err
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return user, err
}

func (s *UserStore) GetByTelegramID(ctx context.Context, telegramID int64) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
	return user, err
}

func (s *UserStore) GetByReferralCode(ctx context.Context, code string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code)
	return user, err
}

func (s *UserStore) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE referral_code = $1)`, code)
	return exists, err
}

func (s *UserStore) RecordFailedLogin(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1, last_failed_login_at = NOW()
		WHERE id = $1
	`, userID)
	return err
}

func (s *UserStore) RecordLogin(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET failed_login_attempts = 0, last_login_at = NOW()
		WHERE id = $1
	`, userID)
	return err
}

func (s *UserStore) ResetFailedLogins(ctx context.Context, tx Execer, userID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET failed_login_attempts = 0, updated_at = NOW()
		WHERE id = $1
	`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdatePassword also clears the lockout counter.
func (s *UserStore) UpdatePassword(ctx context.Context, tx Execer, userID, passwordHash string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $1, failed_login_attempts = 0, updated_at = NOW()
		WHERE id = $2
	`, passwordHash, userID)
	return err
}

// UpdateProfile writes the allow-listed columns in fields and reports how many
// rows matched. Unknown columns are dropped.
func (s *UserStore) UpdateProfile(ctx context.Context, userID string, fields map[string]any) (int64, error) {
	columns := make([]string, 0, len(fields))
	for column := range fields {
		if _, ok := profileColumns[column]; ok {
			columns = append(columns, column)
		}
	}
	if len(columns) == 0 {
		return 0, ErrNoProfileFields
	}
	sort.Strings(columns)

	sets := make([]string, 0, len(columns)+1)
	args := make([]any, 0, len(columns)+1)
	for i, column := range columns {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, i+1))
		args = append(args, fields[column])
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, userID)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *UserStore) RefreshTelegram(ctx context.Context, userID string, username, avatarURL *string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET telegram_username = $1, avatar_url = COALESCE($2, avatar_url), updated_at = NOW()
		WHERE id = $3
	`, username, avatarURL, userID)
	return err
}

func (s *UserStore) MarkVerified(ctx context.Context, tx Execer, email string) error {
	_, err := tx.ExecContext(ctx, `UPDATE users SET verified = TRUE, updated_at = NOW() WHERE lower(email) = lower($1)`, email)
	return err
}
