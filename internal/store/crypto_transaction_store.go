package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

type CryptoTransactionStore struct {
	db DB
}

type CryptoTransactionInput struct {
	ID        string
	UserID    string
	InvoiceID string
	Currency  string
	Amount    decimal.Decimal
}

func NewCryptoTransactionStore(db DB) *CryptoTransactionStore {
	return &CryptoTransactionStore{db: db}
}

// Complete moves the invoice's transaction to completed. It returns the row id
// and true when this call made the transition, or false when the invoice was
// already completed.
func (s *CryptoTransactionStore) Complete(ctx context.Context, tx Getter, input CryptoTransactionInput) (string, bool, error) {
	var id string
	err := tx.GetContext(ctx, &id, `
		INSERT INTO crypto_transactions (id, user_id, invoice_id, currency, amount_crypto, type, status, processed_at)
		VALUES ($1, $2, $3, $4, $5, 'deposit', 'completed', NOW())
		ON CONFLICT (invoice_id) DO UPDATE
		SET status = 'completed', amount_crypto = EXCLUDED.amount_crypto, processed_at = NOW()
		WHERE crypto_transactions.status <> 'completed'
		RETURNING id
	`, input.ID, input.UserID, input.InvoiceID, input.Currency, input.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// MarkPending records a pending invoice. Completed rows are left untouched.
func (s *CryptoTransactionStore) MarkPending(ctx context.Context, tx Execer, input CryptoTransactionInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO crypto_transactions (id, user_id, invoice_id, currency, amount_crypto, type, status)
		VALUES ($1, $2, $3, $4, $5, 'deposit', 'pending')
		ON CONFLICT (invoice_id) DO UPDATE
		SET status = 'pending', amount_crypto = EXCLUDED.amount_crypto
		WHERE crypto_transactions.status <> 'completed'
	`, input.ID, input.UserID, input.InvoiceID, input.Currency, input.Amount)
	return err
}
