package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ResetStore keeps the hashed single-use secrets behind both password reset
// flows: emailed reset links and six-digit codes.
type ResetStore struct {
	db DB
}

func NewResetStore(db DB) *ResetStore {
	return &ResetStore{db: db}
}

func (s *ResetStore) SaveToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, tokenHash, userID, expiresAt)
	return err
}

// ConsumeToken deletes the token row and returns its owner. A token that was
// already used yields ("", false, nil).
func (s *ResetStore) ConsumeToken(ctx context.Context, tx Getter, tokenHash string) (string, bool, error) {
	var userID string
	err := tx.GetContext(ctx, &userID, `
		DELETE FROM password_reset_tokens
		WHERE token_hash = $1
		RETURNING user_id
	`, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

func (s *ResetStore) DeleteUserTokens(ctx context.Context, tx Execer, userID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, userID)
	return err
}

// InvalidateCodes marks every unused code of the user as used.
func (s *ResetStore) InvalidateCodes(ctx context.Context, tx Execer, userID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE password_reset_codes
		SET used = TRUE
		WHERE user_id = $1 AND used = FALSE
	`, userID)
	return err
}

func (s *ResetStore) SaveCode(ctx context.Context, tx Execer, id, userID, email, codeHash string, expiresAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO password_reset_codes (id, user_id, email, code_hash, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, userID, email, codeHash, expiresAt)
	return err
}

// ConsumeCode marks the newest matching live code as used and returns its
// owner. No match yields ("", false, nil).
func (s *ResetStore) ConsumeCode(ctx context.Context, tx Getter, email, codeHash string) (string, bool, error) {
	var userID string
	err := tx.GetContext(ctx, &userID, `
		UPDATE password_reset_codes
		SET used = TRUE
		WHERE id = (
			SELECT id FROM password_reset_codes
			WHERE lower(email) = lower($1) AND code_hash = $2 AND used = FALSE AND expires_at > NOW()
			ORDER BY created_at DESC
			LIMIT 1
		)
		RETURNING user_id
	`, email, codeHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}
