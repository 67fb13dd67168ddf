package store

import (
	"context"

	"marketplace/internal/models"
)

type TelegramPaymentStore struct {
	db DB
}

func NewTelegramPaymentStore(db DB) *TelegramPaymentStore {
	return &TelegramPaymentStore{db: db}
}

// Save records a successful payment once per Telegram charge id and reports
// whether this call inserted it.
func (s *TelegramPaymentStore) Save(ctx context.Context, payment models.TelegramPayment) (bool, error) {
	var payload any
	if len(payment.Payload) > 0 {
		payload = []byte(payment.Payload)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO telegram_payments (
			telegram_payment_charge_id, provider_payment_charge_id, telegram_user_id,
			amount, currency, payload, status, processed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, 'completed', NOW())
		ON CONFLICT (telegram_payment_charge_id) DO NOTHING
	`, payment.TelegramPaymentChargeID, payment.ProviderPaymentChargeID, payment.TelegramUserID,
		payment.Amount, payment.Currency, payload)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
