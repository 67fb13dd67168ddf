package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketplace/internal/cryptocloud"
	"marketplace/internal/db"
	"marketplace/internal/events"
	"marketplace/internal/models"
	"marketplace/internal/store"
	"marketplace/internal/websocket"
)

const (
	PaymentStatusSuccess = "success"
	PaymentStatusPending = "pending"
)

// DepositCurrencies are the currencies CryptoCloud issues addresses for.
var DepositCurrencies = []string{"BTC", "ETH", "USDT", "LTC", "BCH"}

var (
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrUnknownInvoice      = errors.New("invoice not found")
	ErrInvalidAmount       = errors.New("invalid amount")
)

type DepositService struct {
	txRunner     db.TxRunner
	addresses    DepositAddressStore
	transactions CryptoTransactionStore
	wallets      WalletStore
	processor    InvoiceCreator
	hub          BalanceHub
	publisher    EventPublisher
	logger       *zap.Logger
	now          func() time.Time
}

type DepositDeps struct {
	TxRunner     db.TxRunner
	Addresses    DepositAddressStore
	Transactions CryptoTransactionStore
	Wallets      WalletStore
	Processor    InvoiceCreator
	Hub          BalanceHub
	Publisher    EventPublisher
}

func NewDepositService(deps DepositDeps, logger *zap.Logger) *DepositService {
	return &DepositService{
		txRunner:     deps.TxRunner,
		addresses:    deps.Addresses,
		transactions: deps.Transactions,
		wallets:      deps.Wallets,
		processor:    deps.Processor,
		hub:          deps.Hub,
		publisher:    deps.Publisher,
		logger:       logger.With(zap.String("component", "deposits")),
		now:          time.Now,
	}
}

// NormalizeDepositCurrency uppercases currency and checks it is supported.
func NormalizeDepositCurrency(currency string) (string, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	for _, supported := range DepositCurrencies {
		if currency == supported {
			return currency, nil
		}
	}
	return "", ErrUnsupportedCurrency
}

// GetOrCreateAddress returns the user's active address for currency, asking
// the processor for one only when none exists.
func (s *DepositService) GetOrCreateAddress(ctx context.Context, userID, currency string) (models.DepositAddress, error) {
	currency, err := NormalizeDepositCurrency(currency)
	if err != nil {
		return models.DepositAddress{}, err
	}

	existing, err := s.addresses.LatestActive(ctx, userID, currency)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.DepositAddress{}, err
	}

	if !s.processor.Configured() {
		return models.DepositAddress{}, cryptocloud.ErrNotConfigured
	}
	invoice, err := s.processor.CreateInvoice(ctx, cryptocloud.InvoiceRequest{
		Amount:    0,
		Currency:  currency,
		OrderID:   fmt.Sprintf("deposit_%s_%d", userID, s.now().Unix()),
		AddFields: map[string]string{"user_id": userID},
	})
	if err != nil {
		return models.DepositAddress{}, err
	}

	address := models.DepositAddress{
		ID:        uuid.NewString(),
		UserID:    userID,
		Currency:  currency,
		Address:   invoice.Address,
		Tag:       invoice.Tag,
		InvoiceID: invoice.UUID,
		Status:    models.AddressStatusActive,
	}
	inserted, err := s.addresses.CreateActive(ctx, address)
	if err != nil {
		return models.DepositAddress{}, err
	}
	if !inserted {
		s.logger.Info("concurrent address issue, returning winner",
			zap.String("user_id", userID), zap.String("currency", currency), zap.String("dropped_invoice", invoice.UUID))
	}
	return s.addresses.LatestActive(ctx, userID, currency)
}

// AddressResult is one currency's outcome in a bulk issue.
type AddressResult struct {
	Address *models.DepositAddress
	Err     error
}

// GetAllAddresses issues addresses for every supported currency. A failure
// for one currency does not stop the others.
func (s *DepositService) GetAllAddresses(ctx context.Context, userID string) map[string]AddressResult {
	results := make(map[string]AddressResult, len(DepositCurrencies))
	for _, currency := range DepositCurrencies {
		address, err := s.GetOrCreateAddress(ctx, userID, currency)
		if err != nil {
			s.logger.Warn("address issue failed", zap.String("user_id", userID), zap.String("currency", currency), zap.Error(err))
			results[currency] = AddressResult{Err: err}
			continue
		}
		results[currency] = AddressResult{Address: &address}
	}
	return results
}

type PaymentNotification struct {
	InvoiceID string
	Amount    decimal.Decimal
	Currency  string
	Status    string
}

type PaymentResult struct {
	Success   bool
	Status    string
	Duplicate bool
	Message   string
	Balance   decimal.Decimal
}

// ProcessPayment applies a processor notification. The invoice must resolve
// whatever the status. A success credits the wallet once per invoice; replays
// report Duplicate.
func (s *DepositService) ProcessPayment(ctx context.Context, n PaymentNotification) (PaymentResult, error) {
	if !n.Amount.IsPositive() {
		return PaymentResult{}, ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(n.Currency))

	switch n.Status {
	case PaymentStatusSuccess:
		return s.completePayment(ctx, n.InvoiceID, currency, n.Amount)
	case PaymentStatusPending:
		err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			address, err := s.lookupInvoice(ctx, tx, n.InvoiceID)
			if err != nil {
				return err
			}
			return s.transactions.MarkPending(ctx, tx, store.CryptoTransactionInput{
				ID:        uuid.NewString(),
				UserID:    address.UserID,
				InvoiceID: n.InvoiceID,
				Currency:  currency,
				Amount:    n.Amount,
			})
		})
		if err != nil {
			return PaymentResult{}, err
		}
		return PaymentResult{Success: true, Status: PaymentStatusPending}, nil
	default:
		err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			_, err := s.lookupInvoice(ctx, tx, n.InvoiceID)
			return err
		})
		if err != nil {
			return PaymentResult{}, err
		}
		return PaymentResult{Status: n.Status, Message: "Unknown status: " + n.Status}, nil
	}
}

func (s *DepositService) completePayment(ctx context.Context, invoiceID, currency string, amount decimal.Decimal) (PaymentResult, error) {
	var (
		userID        string
		transactionID string
		credited      bool
		balance       decimal.Decimal
	)
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		address, err := s.lookupInvoice(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		userID = address.UserID
		id, transitioned, err := s.transactions.Complete(ctx, tx, store.CryptoTransactionInput{
			ID:        uuid.NewString(),
			UserID:    address.UserID,
			InvoiceID: invoiceID,
			Currency:  currency,
			Amount:    amount,
		})
		if err != nil {
			return err
		}
		credited = transitioned
		if !transitioned {
			return nil
		}
		transactionID = id
		balance, err = s.wallets.Credit(ctx, tx, address.UserID, currency, amount)
		return err
	})
	if err != nil {
		return PaymentResult{}, err
	}
	if !credited {
		s.logger.Info("duplicate completion ignored", zap.String("invoice_id", invoiceID))
		return PaymentResult{Success: true, Status: models.CryptoStatusCompleted, Duplicate: true}, nil
	}

	s.logger.Info("deposit credited",
		zap.String("user_id", userID),
		zap.String("invoice_id", invoiceID),
		zap.String("currency", currency),
		zap.String("amount", amount.String()))
	s.hub.BroadcastBalance(userID, websocket.BalanceUpdate{
		Currency:  currency,
		Balance:   balance.String(),
		Delta:     amount.String(),
		InvoiceID: invoiceID,
	})
	event := events.DepositCredited{
		TransactionID: transactionID,
		UserID:        userID,
		InvoiceID:     invoiceID,
		Currency:      currency,
		Amount:        amount,
		Balance:       balance,
		CreditedAt:    s.now().UTC(),
	}
	if err := s.publisher.PublishDepositCredited(ctx, event); err != nil {
		s.logger.Warn("deposit event not published", zap.String("invoice_id", invoiceID), zap.Error(err))
	}
	return PaymentResult{Success: true, Status: models.CryptoStatusCompleted, Balance: balance}, nil
}

func (s *DepositService) lookupInvoice(ctx context.Context, tx *sqlx.Tx, invoiceID string) (models.DepositAddress, error) {
	address, err := s.addresses.GetByInvoice(ctx, tx, invoiceID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DepositAddress{}, ErrUnknownInvoice
	}
	return address, err
}
