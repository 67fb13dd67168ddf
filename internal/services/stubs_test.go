package services

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"marketplace/internal/cryptocloud"
	"marketplace/internal/events"
	"marketplace/internal/mailer"
	"marketplace/internal/models"
	"marketplace/internal/store"
	"marketplace/internal/websocket"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn             func(ctx context.Context, tx store.Execer, user store.NewUser) error
	getByEmailFn         func(ctx context.Context, email string) (models.User, error)
	getByIDFn            func(ctx context.Context, userID string) (models.User, error)
	getByTelegramIDFn    func(ctx context.Context, telegramID int64) (models.User, error)
	getByReferralCodeFn  func(ctx context.Context, code string) (models.User, error)
	referralCodeExistsFn func(ctx context.Context, code string) (bool, error)
	recordFailedLoginFn  func(ctx context.Context, userID string) error
	recordLoginFn        func(ctx context.Context, userID string) error
	resetFailedLoginsFn  func(ctx context.Context, tx store.Execer, userID string) (int64, error)
	updatePasswordFn     func(ctx context.Context, tx store.Execer, userID, passwordHash string) error
	refreshTelegramFn    func(ctx context.Context, userID string, username, avatarURL *string) error
	markVerifiedFn       func(ctx context.Context, tx store.Execer, email string) error
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, user store.NewUser) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, user)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{ID: userID, Role: models.RoleBuyer}, nil
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) GetByTelegramID(ctx context.Context, telegramID int64) (models.User, error) {
	return s.getByTelegramIDFn(ctx, telegramID)
}

func (s stubUserStore) GetByReferralCode(ctx context.Context, code string) (models.User, error) {
	return s.getByReferralCodeFn(ctx, code)
}

func (s stubUserStore) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	if s.referralCodeExistsFn == nil {
		return false, nil
	}
	return s.referralCodeExistsFn(ctx, code)
}

func (s stubUserStore) RecordFailedLogin(ctx context.Context, userID string) error {
	if s.recordFailedLoginFn == nil {
		return nil
	}
	return s.recordFailedLoginFn(ctx, userID)
}

func (s stubUserStore) RecordLogin(ctx context.Context, userID string) error {
	if s.recordLoginFn == nil {
		return nil
	}
	return s.recordLoginFn(ctx, userID)
}

func (s stubUserStore) ResetFailedLogins(ctx context.Context, tx store.Execer, userID string) (int64, error) {
	return s.resetFailedLoginsFn(ctx, tx, userID)
}

func (s stubUserStore) UpdatePassword(ctx context.Context, tx store.Execer, userID, passwordHash string) error {
	if s.updatePasswordFn == nil {
		return nil
	}
	return s.updatePasswordFn(ctx, tx, userID, passwordHash)
}

func (s stubUserStore) RefreshTelegram(ctx context.Context, userID string, username, avatarURL *string) error {
	if s.refreshTelegramFn == nil {
		return nil
	}
	return s.refreshTelegramFn(ctx, userID, username, avatarURL)
}

func (s stubUserStore) MarkVerified(ctx context.Context, tx store.Execer, email string) error {
	if s.markVerifiedFn == nil {
		return nil
	}
	return s.markVerifiedFn(ctx, tx, email)
}

type stubWalletStore struct {
	seedFn   func(ctx context.Context, tx store.Execer, userID string, currencies []string) error
	creditFn func(ctx context.Context, tx store.Getter, userID, currency string, amount decimal.Decimal) (decimal.Decimal, error)
}

func (s stubWalletStore) Seed(ctx context.Context, tx store.Execer, userID string, currencies []string) error {
	if s.seedFn == nil {
		return nil
	}
	return s.seedFn(ctx, tx, userID, currencies)
}

func (s stubWalletStore) Credit(ctx context.Context, tx store.Getter, userID, currency string, amount decimal.Decimal) (decimal.Decimal, error) {
	return s.creditFn(ctx, tx, userID, currency, amount)
}

type stubResetStore struct {
	saveTokenFn        func(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	consumeTokenFn     func(ctx context.Context, tx store.Getter, tokenHash string) (string, bool, error)
	deleteUserTokensFn func(ctx context.Context, tx store.Execer, userID string) error
	invalidateCodesFn  func(ctx context.Context, tx store.Execer, userID string) error
	saveCodeFn         func(ctx context.Context, tx store.Execer, id, userID, email, codeHash string, expiresAt time.Time) error
	consumeCodeFn      func(ctx context.Context, tx store.Getter, email, codeHash string) (string, bool, error)
}

func (s stubResetStore) SaveToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	if s.saveTokenFn == nil {
		return nil
	}
	return s.saveTokenFn(ctx, userID, tokenHash, expiresAt)
}

func (s stubResetStore) ConsumeToken(ctx context.Context, tx store.Getter, tokenHash string) (string, bool, error) {
	return s.consumeTokenFn(ctx, tx, tokenHash)
}

func (s stubResetStore) DeleteUserTokens(ctx context.Context, tx store.Execer, userID string) error {
	if s.deleteUserTokensFn == nil {
		return nil
	}
	return s.deleteUserTokensFn(ctx, tx, userID)
}

func (s stubResetStore) InvalidateCodes(ctx context.Context, tx store.Execer, userID string) error {
	if s.invalidateCodesFn == nil {
		return nil
	}
	return s.invalidateCodesFn(ctx, tx, userID)
}

func (s stubResetStore) SaveCode(ctx context.Context, tx store.Execer, id, userID, email, codeHash string, expiresAt time.Time) error {
	if s.saveCodeFn == nil {
		return nil
	}
	return s.saveCodeFn(ctx, tx, id, userID, email, codeHash, expiresAt)
}

func (s stubResetStore) ConsumeCode(ctx context.Context, tx store.Getter, email, codeHash string) (string, bool, error) {
	return s.consumeCodeFn(ctx, tx, email, codeHash)
}

type stubEmailTokenStore struct {
	deleteExpiredFn func(ctx context.Context) error
	saveFn          func(ctx context.Context, id, email, codeHash string, expiresAt time.Time) error
	findFn          func(ctx context.Context, email, codeHash string) (store.EmailToken, error)
	deleteFn        func(ctx context.Context, tx store.Execer, id string) error
}

func (s stubEmailTokenStore) DeleteExpired(ctx context.Context) error {
	if s.deleteExpiredFn == nil {
		return nil
	}
	return s.deleteExpiredFn(ctx)
}

func (s stubEmailTokenStore) Save(ctx context.Context, id, email, codeHash string, expiresAt time.Time) error {
	if s.saveFn == nil {
		return nil
	}
	return s.saveFn(ctx, id, email, codeHash, expiresAt)
}

func (s stubEmailTokenStore) Find(ctx context.Context, email, codeHash string) (store.EmailToken, error) {
	return s.findFn(ctx, email, codeHash)
}

func (s stubEmailTokenStore) Delete(ctx context.Context, tx store.Execer, id string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, tx, id)
}

type auditCall struct {
	actorID, action, entityType, entityID string
}

type stubAuditStore struct {
	calls []auditCall
}

func (s *stubAuditStore) Log(_ context.Context, _ store.Execer, actorID, action, entityType, entityID string, _ any) error {
	s.calls = append(s.calls, auditCall{actorID: actorID, action: action, entityType: entityType, entityID: entityID})
	return nil
}

type stubMailer struct {
	configured bool
	sent       []mailer.Message
	err        error
}

func (m *stubMailer) Configured() bool {
	return m.configured
}

func (m *stubMailer) Send(msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type stubAddressStore struct {
	latestActiveFn func(ctx context.Context, userID, currency string) (models.DepositAddress, error)
	createActiveFn func(ctx context.Context, address models.DepositAddress) (bool, error)
	getByInvoiceFn func(ctx context.Context, tx store.Getter, invoiceID string) (models.DepositAddress, error)
}

func (s stubAddressStore) LatestActive(ctx context.Context, userID, currency string) (models.DepositAddress, error) {
	return s.latestActiveFn(ctx, userID, currency)
}

func (s stubAddressStore) CreateActive(ctx context.Context, address models.DepositAddress) (bool, error) {
	return s.createActiveFn(ctx, address)
}

func (s stubAddressStore) GetByInvoice(ctx context.Context, tx store.Getter, invoiceID string) (models.DepositAddress, error) {
	return s.getByInvoiceFn(ctx, tx, invoiceID)
}

type stubCryptoTransactionStore struct {
	completeFn    func(ctx context.Context, tx store.Getter, input store.CryptoTransactionInput) (string, bool, error)
	markPendingFn func(ctx context.Context, tx store.Execer, input store.CryptoTransactionInput) error
}

func (s stubCryptoTransactionStore) Complete(ctx context.Context, tx store.Getter, input store.CryptoTransactionInput) (string, bool, error) {
	return s.completeFn(ctx, tx, input)
}

func (s stubCryptoTransactionStore) MarkPending(ctx context.Context, tx store.Execer, input store.CryptoTransactionInput) error {
	return s.markPendingFn(ctx, tx, input)
}

type stubProcessor struct {
	configured bool
	createFn   func(ctx context.Context, req cryptocloud.InvoiceRequest) (cryptocloud.Invoice, error)
}

func (s stubProcessor) Configured() bool {
	return s.configured
}

func (s stubProcessor) CreateInvoice(ctx context.Context, req cryptocloud.InvoiceRequest) (cryptocloud.Invoice, error) {
	return s.createFn(ctx, req)
}

type stubPublisher struct {
	events []events.DepositCredited
	err    error
}

func (s *stubPublisher) PublishDepositCredited(_ context.Context, event events.DepositCredited) error {
	s.events = append(s.events, event)
	return s.err
}

type stubHub struct {
	calls []websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(_ string, update websocket.BalanceUpdate) {
	s.calls = append(s.calls, update)
}
