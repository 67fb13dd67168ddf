package store

import (
	"context"
	"time"
)

type EmailToken struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	ExpiresAt time.Time `db:"expires_at"`
}

type EmailTokenStore struct {
	db DB
}

func NewEmailTokenStore(db DB) *EmailTokenStore {
	return &EmailTokenStore{db: db}
}

func (s *EmailTokenStore) DeleteExpired(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM email_verification_tokens WHERE expires_at <= NOW()`)
	return err
}

func (s *EmailTokenStore) Save(ctx context.Context, id, email, codeHash string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO email_verification_tokens (id, email, code_hash, expires_at)
		VALUES ($1, $2, $3, $4)
	`, id, email, codeHash, expiresAt)
	return err
}

// Find returns the newest token for email and code regardless of expiry.
func (s *EmailTokenStore) Find(ctx context.Context, email, codeHash string) (EmailToken, error) {
	var token EmailToken
	err := s.db.GetContext(ctx, &token, `
		SELECT id, email, expires_at
		FROM email_verification_tokens
		WHERE lower(email) = lower($1) AND code_hash = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, email, codeHash)
	return token, err
}

func (s *EmailTokenStore) Delete(ctx context.Context, tx Execer, id string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM email_verification_tokens WHERE id = $1`, id)
	return err
}
