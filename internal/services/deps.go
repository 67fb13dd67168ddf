package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"marketplace/internal/cryptocloud"
	"marketplace/internal/events"
	"marketplace/internal/mailer"
	"marketplace/internal/models"
	"marketplace/internal/store"
	"marketplace/internal/websocket"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, user store.NewUser) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (models.User, error)
	GetByReferralCode(ctx context.Context, code string) (models.User, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	RecordFailedLogin(ctx context.Context, userID string) error
	RecordLogin(ctx context.Context, userID string) error
	ResetFailedLogins(ctx context.Context, tx store.Execer, userID string) (int64, error)
	UpdatePassword(ctx context.Context, tx store.Execer, userID, passwordHash string) error
	RefreshTelegram(ctx context.Context, userID string, username, avatarURL *string) error
	MarkVerified(ctx context.Context, tx store.Execer, email string) error
}

type WalletStore interface {
	Seed(ctx context.Context, tx store.Execer, userID string, currencies []string) error
	Credit(ctx context.Context, tx store.Getter, userID, currency string, amount decimal.Decimal) (decimal.Decimal, error)
}

type ResetStore interface {
	SaveToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	ConsumeToken(ctx context.Context, tx store.Getter, tokenHash string) (string, bool, error)
	DeleteUserTokens(ctx context.Context, tx store.Execer, userID string) error
	InvalidateCodes(ctx context.Context, tx store.Execer, userID string) error
	SaveCode(ctx context.Context, tx store.Execer, id, userID, email, codeHash string, expiresAt time.Time) error
	ConsumeCode(ctx context.Context, tx store.Getter, email, codeHash string) (string, bool, error)
}

type EmailTokenStore interface {
	DeleteExpired(ctx context.Context) error
	Save(ctx context.Context, id, email, codeHash string, expiresAt time.Time) error
	Find(ctx context.Context, email, codeHash string) (store.EmailToken, error)
	Delete(ctx context.Context, tx store.Execer, id string) error
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID string, data any) error
}

type DepositAddressStore interface {
	LatestActive(ctx context.Context, userID, currency string) (models.DepositAddress, error)
	CreateActive(ctx context.Context, address models.DepositAddress) (bool, error)
	GetByInvoice(ctx context.Context, tx store.Getter, invoiceID string) (models.DepositAddress, error)
}

type CryptoTransactionStore interface {
	Complete(ctx context.Context, tx store.Getter, input store.CryptoTransactionInput) (string, bool, error)
	MarkPending(ctx context.Context, tx store.Execer, input store.CryptoTransactionInput) error
}

type Mailer interface {
	Configured() bool
	Send(msg mailer.Message) error
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

type InvoiceCreator interface {
	Configured() bool
	CreateInvoice(ctx context.Context, req cryptocloud.InvoiceRequest) (cryptocloud.Invoice, error)
}

type EventPublisher interface {
	PublishDepositCredited(ctx context.Context, event events.DepositCredited) error
}
