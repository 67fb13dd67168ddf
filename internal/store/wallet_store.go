package store

import (
	"context"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"marketplace/internal/models"
)

type WalletStore struct {
	db DB
}

func NewWalletStore(db DB) *WalletStore {
	return &WalletStore{db: db}
}

// Seed creates zero balances for every currency the user does not hold yet.
func (s *WalletStore) Seed(ctx context.Context, tx Execer, userID string, currencies []string) error {
	if len(currencies) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_balances (user_id, currency, amount)
		SELECT $1, c, 0 FROM unnest($2::text[]) AS c
		ON CONFLICT (user_id, currency) DO NOTHING
	`, userID, pq.StringArray(currencies))
	return err
}

// Credit adds amount to the user's balance in currency, creating the row if
// needed, and returns the new balance.
func (s *WalletStore) Credit(ctx context.Context, tx Getter, userID, currency string, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.GetContext(ctx, &balance, `
		INSERT INTO wallet_balances (user_id, currency, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, currency)
		DO UPDATE SET amount = wallet_balances.amount + EXCLUDED.amount, updated_at = NOW()
		RETURNING amount
	`, userID, currency, amount)
	return balance, err
}

func (s *WalletStore) ListByUser(ctx context.Context, userID string) ([]models.WalletBalance, error) {
	var rows []models.WalletBalance
	err := s.db.SelectContext(ctx, &rows, `
		SELECT user_id, currency, amount, updated_at
		FROM wallet_balances
		WHERE user_id = $1
		ORDER BY currency
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
