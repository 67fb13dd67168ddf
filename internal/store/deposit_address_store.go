package store

import (
	"context"

	"marketplace/internal/models"
)

const depositAddressColumns = `id, user_id, currency, address, tag, invoice_id, status, created_at`

type DepositAddressStore struct {
	db DB
}

func NewDepositAddressStore(db DB) *DepositAddressStore {
	return &DepositAddressStore{db: db}
}

func (s *DepositAddressStore) LatestActive(ctx context.Context, userID, currency string) (models.DepositAddress, error) {
	var row models.DepositAddress
	err := s.db.GetContext(ctx, &row, `
		SELECT `+depositAddressColumns+`
		FROM crypto_deposit_addresses
		WHERE user_id = $1 AND currency = $2 AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, currency)
	return row, err
}

// CreateActive inserts address as the active row for its user and currency.
// It reports false when another active row already holds that slot.
func (s *DepositAddressStore) CreateActive(ctx context.Context, address models.DepositAddress) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO crypto_deposit_addresses (id, user_id, currency, address, tag, invoice_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'active')
		ON CONFLICT DO NOTHING
	`, address.ID, address.UserID, address.Currency, address.Address, address.Tag, address.InvoiceID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (s *DepositAddressStore) GetByInvoice(ctx context.Context, tx Getter, invoiceID string) (models.DepositAddress, error) {
	var row models.DepositAddress
	err := tx.GetContext(ctx, &row, `
		SELECT `+depositAddressColumns+`
		FROM crypto_deposit_addresses
		WHERE invoice_id = $1
	`, invoiceID)
	return row, err
}
