package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"marketplace/internal/auth"
	"marketplace/internal/config"
	"marketplace/internal/models"
	"marketplace/internal/moderation"
	"marketplace/internal/services"
	"marketplace/internal/store"
	"marketplace/internal/telegram"
	"marketplace/internal/websocket"
)

const testWebhookSecret = "webhook-secret"

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubAuthService struct {
	registerFn         func(ctx context.Context, input services.RegisterInput) (services.AuthResult, error)
	loginFn            func(ctx context.Context, email, password string) (services.AuthResult, error)
	verifyTokenFn      func(token string) (auth.Claims, error)
	refreshFn          func(ctx context.Context, refreshToken string) (auth.Session, error)
	forgotPasswordFn   func(ctx context.Context, email string) error
	resetPasswordFn    func(ctx context.Context, token, newPassword string) error
	requestResetCodeFn func(ctx context.Context, email string) error
	resetWithCodeFn    func(ctx context.Context, email, code, newPassword string) error
	sendCodeFn         func(ctx context.Context, email string) error
	verifyEmailFn      func(ctx context.Context, email, code string) error
	sendCredentialsFn  func(ctx context.Context, actorID, email, login, password, phone string) (bool, error)
	unlockFn           func(ctx context.Context, actorID, userID string) error
	telegramLoginFn    func(ctx context.Context, fields map[string]string) (services.AuthResult, error)
	miniAppLoginFn     func(ctx context.Context, raw string) (services.AuthResult, error)
}

func (s stubAuthService) Register(ctx context.Context, input services.RegisterInput) (services.AuthResult, error) {
	if s.registerFn == nil {
		return services.AuthResult{}, nil
	}
	return s.registerFn(ctx, input)
}

func (s stubAuthService) Login(ctx context.Context, email, password string) (services.AuthResult, error) {
	if s.loginFn == nil {
		return services.AuthResult{}, nil
	}
	return s.loginFn(ctx, email, password)
}

func (s stubAuthService) VerifyToken(token string) (auth.Claims, error) {
	if s.verifyTokenFn == nil {
		return auth.Claims{}, nil
	}
	return s.verifyTokenFn(token)
}

func (s stubAuthService) Refresh(ctx context.Context, refreshToken string) (auth.Session, error) {
	if s.refreshFn == nil {
		return auth.Session{}, nil
	}
	return s.refreshFn(ctx, refreshToken)
}

func (s stubAuthService) ForgotPassword(ctx context.Context, email string) error {
	if s.forgotPasswordFn == nil {
		return nil
	}
	return s.forgotPasswordFn(ctx, email)
}

func (s stubAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if s.resetPasswordFn == nil {
		return nil
	}
	return s.resetPasswordFn(ctx, token, newPassword)
}

func (s stubAuthService) RequestResetCode(ctx context.Context, email string) error {
	if s.requestResetCodeFn == nil {
		return nil
	}
	return s.requestResetCodeFn(ctx, email)
}

func (s stubAuthService) ResetWithCode(ctx context.Context, email, code, newPassword string) error {
	if s.resetWithCodeFn == nil {
		return nil
	}
	return s.resetWithCodeFn(ctx, email, code, newPassword)
}

func (s stubAuthService) SendVerificationCode(ctx context.Context, email string) error {
	if s.sendCodeFn == nil {
		return nil
	}
	return s.sendCodeFn(ctx, email)
}

func (s stubAuthService) VerifyEmail(ctx context.Context, email, code string) error {
	if s.verifyEmailFn == nil {
		return nil
	}
	return s.verifyEmailFn(ctx, email, code)
}

func (s stubAuthService) SendCredentials(ctx context.Context, actorID, email, login, password, phone string) (bool, error) {
	if s.sendCredentialsFn == nil {
		return true, nil
	}
	return s.sendCredentialsFn(ctx, actorID, email, login, password, phone)
}

func (s stubAuthService) UnlockUser(ctx context.Context, actorID, userID string) error {
	if s.unlockFn == nil {
		return nil
	}
	return s.unlockFn(ctx, actorID, userID)
}

func (s stubAuthService) TelegramLogin(ctx context.Context, fields map[string]string) (services.AuthResult, error) {
	if s.telegramLoginFn == nil {
		return services.AuthResult{}, nil
	}
	return s.telegramLoginFn(ctx, fields)
}

func (s stubAuthService) MiniAppLogin(ctx context.Context, raw string) (services.AuthResult, error) {
	if s.miniAppLoginFn == nil {
		return services.AuthResult{}, nil
	}
	return s.miniAppLoginFn(ctx, raw)
}

type stubDepositService struct {
	getOrCreateFn    func(ctx context.Context, userID, currency string) (models.DepositAddress, error)
	getAllFn         func(ctx context.Context, userID string) map[string]services.AddressResult
	processPaymentFn func(ctx context.Context, n services.PaymentNotification) (services.PaymentResult, error)
}

func (s stubDepositService) GetOrCreateAddress(ctx context.Context, userID, currency string) (models.DepositAddress, error) {
	if s.getOrCreateFn == nil {
		return models.DepositAddress{}, nil
	}
	return s.getOrCreateFn(ctx, userID, currency)
}

func (s stubDepositService) GetAllAddresses(ctx context.Context, userID string) map[string]services.AddressResult {
	if s.getAllFn == nil {
		return map[string]services.AddressResult{}
	}
	return s.getAllFn(ctx, userID)
}

func (s stubDepositService) ProcessPayment(ctx context.Context, n services.PaymentNotification) (services.PaymentResult, error) {
	if s.processPaymentFn == nil {
		return services.PaymentResult{}, nil
	}
	return s.processPaymentFn(ctx, n)
}

type stubUserStore struct {
	getByIDFn       func(ctx context.Context, userID string) (models.User, error)
	updateProfileFn func(ctx context.Context, userID string, fields map[string]any) (int64, error)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{ID: userID}, nil
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) UpdateProfile(ctx context.Context, userID string, fields map[string]any) (int64, error) {
	if s.updateProfileFn == nil {
		return 1, nil
	}
	return s.updateProfileFn(ctx, userID, fields)
}

type stubWalletStore struct {
	listByUserFn func(ctx context.Context, userID string) ([]models.WalletBalance, error)
}

func (s stubWalletStore) ListByUser(ctx context.Context, userID string) ([]models.WalletBalance, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID)
}

type stubCatalogStore struct {
	listFn     func(ctx context.Context, filter store.CatalogFilter) ([]models.CatalogItem, error)
	createFn   func(ctx context.Context, item store.NewCatalogItem) error
	getOwnerFn func(ctx context.Context, itemID string) (string, error)
	updateFn   func(ctx context.Context, itemID string, patch store.CatalogPatch) error
}

func (s stubCatalogStore) List(ctx context.Context, filter store.CatalogFilter) ([]models.CatalogItem, error) {
	if s.listFn == nil {
		return []models.CatalogItem{}, nil
	}
	return s.listFn(ctx, filter)
}

func (s stubCatalogStore) Create(ctx context.Context, item store.NewCatalogItem) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, item)
}

func (s stubCatalogStore) GetOwner(ctx context.Context, itemID string) (string, error) {
	if s.getOwnerFn == nil {
		return "", nil
	}
	return s.getOwnerFn(ctx, itemID)
}

func (s stubCatalogStore) Update(ctx context.Context, itemID string, patch store.CatalogPatch) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, itemID, patch)
}

type stubBusinessServiceStore struct {
	listFn          func(ctx context.Context, status string) ([]models.BusinessService, error)
	createFn        func(ctx context.Context, tx store.Execer, service store.NewBusinessService) error
	createProgramFn func(ctx context.Context, tx store.Execer, program store.NewServiceProgram) error
	getOwnerFn      func(ctx context.Context, serviceID string) (string, error)
	updateStatusFn  func(ctx context.Context, serviceID, status string) error
}

func (s stubBusinessServiceStore) List(ctx context.Context, status string) ([]models.BusinessService, error) {
	if s.listFn == nil {
		return []models.BusinessService{}, nil
	}
	return s.listFn(ctx, status)
}

func (s stubBusinessServiceStore) Create(ctx context.Context, tx store.Execer, service store.NewBusinessService) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, service)
}

func (s stubBusinessServiceStore) CreateProgram(ctx context.Context, tx store.Execer, program store.NewServiceProgram) error {
	if s.createProgramFn == nil {
		return nil
	}
	return s.createProgramFn(ctx, tx, program)
}

func (s stubBusinessServiceStore) GetOwner(ctx context.Context, serviceID string) (string, error) {
	if s.getOwnerFn == nil {
		return "", nil
	}
	return s.getOwnerFn(ctx, serviceID)
}

func (s stubBusinessServiceStore) UpdateStatus(ctx context.Context, serviceID, status string) error {
	if s.updateStatusFn == nil {
		return nil
	}
	return s.updateStatusFn(ctx, serviceID, status)
}

type stubPaymentStore struct {
	saveFn func(ctx context.Context, payment models.TelegramPayment) (bool, error)
}

func (s stubPaymentStore) Save(ctx context.Context, payment models.TelegramPayment) (bool, error) {
	if s.saveFn == nil {
		return true, nil
	}
	return s.saveFn(ctx, payment)
}

type stubAuditStore struct {
	listFn func(ctx context.Context, limit, offset int) ([]store.AuditEntry, error)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]store.AuditEntry, error) {
	if s.listFn == nil {
		return []store.AuditEntry{}, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubTelegramClient struct {
	unconfigured  bool
	sendMessageFn func(ctx context.Context, req telegram.SendMessageRequest) (telegram.Message, error)
	sendInvoiceFn func(ctx context.Context, req telegram.SendInvoiceRequest) (telegram.Message, error)
}

func (s stubTelegramClient) Configured() bool {
	return !s.unconfigured
}

func (s stubTelegramClient) SendMessage(ctx context.Context, req telegram.SendMessageRequest) (telegram.Message, error) {
	if s.sendMessageFn == nil {
		return telegram.Message{MessageID: 1}, nil
	}
	return s.sendMessageFn(ctx, req)
}

func (s stubTelegramClient) SendInvoice(ctx context.Context, req telegram.SendInvoiceRequest) (telegram.Message, error) {
	if s.sendInvoiceFn == nil {
		return telegram.Message{MessageID: 1}, nil
	}
	return s.sendInvoiceFn(ctx, req)
}

type stubModerator struct {
	audioFn func(ctx context.Context, req moderation.AudioRequest) (moderation.Verdict, error)
	photoFn func(ctx context.Context, req moderation.PhotoRequest) (moderation.Verdict, error)
}

func (s stubModerator) ModerateAudio(ctx context.Context, req moderation.AudioRequest) (moderation.Verdict, error) {
	if s.audioFn == nil {
		return moderation.Fallback(), nil
	}
	return s.audioFn(ctx, req)
}

func (s stubModerator) ModeratePhoto(ctx context.Context, req moderation.PhotoRequest) (moderation.Verdict, error) {
	if s.photoFn == nil {
		return moderation.Fallback(), nil
	}
	return s.photoFn(ctx, req)
}

func testConfig() config.Config {
	return config.Config{
		App:         config.AppConfig{Env: "test", Port: "0", WebAppURL: "https://app.example"},
		JWT:         config.JWTConfig{Secret: "secret", AccessTTL: time.Minute, RefreshTTL: time.Hour, ResetTTL: time.Minute},
		Telegram:    config.TelegramConfig{BotToken: "bot-token", PaymentProviderToken: "provider"},
		CryptoCloud: config.CryptoCloudConfig{APIKey: "key", WebhookSecret: testWebhookSecret},
	}
}

func testTokens() *auth.TokenService {
	return auth.NewTokenService("secret", time.Minute, time.Hour, time.Minute)
}

// newTestHandler fills every dependency the test leaves empty with a stub.
func newTestHandler(deps Deps) *Handler {
	return newTestHandlerWithConfig(testConfig(), deps)
}

func newTestHandlerWithConfig(cfg config.Config, deps Deps) *Handler {
	if deps.Tokens == nil {
		deps.Tokens = testTokens()
	}
	if deps.TxRunner == nil {
		deps.TxRunner = fakeTxRunner{}
	}
	if deps.Auth == nil {
		deps.Auth = stubAuthService{}
	}
	if deps.Deposits == nil {
		deps.Deposits = stubDepositService{}
	}
	if deps.Users == nil {
		deps.Users = stubUserStore{}
	}
	if deps.Wallets == nil {
		deps.Wallets = stubWalletStore{}
	}
	if deps.Catalog == nil {
		deps.Catalog = stubCatalogStore{}
	}
	if deps.Services == nil {
		deps.Services = stubBusinessServiceStore{}
	}
	if deps.Payments == nil {
		deps.Payments = stubPaymentStore{}
	}
	if deps.Audit == nil {
		deps.Audit = stubAuditStore{}
	}
	if deps.Telegram == nil {
		deps.Telegram = stubTelegramClient{}
	}
	if deps.Moderator == nil {
		deps.Moderator = stubModerator{}
	}
	if deps.Hub == nil {
		deps.Hub = websocket.NewHub()
	}
	return New(cfg, deps, zap.NewNop())
}

func accessToken(t *testing.T, h *Handler, userID, role string) string {
	t.Helper()
	token, err := h.tokens.Issue(auth.AccessToken, auth.Subject{UserID: userID, Email: userID + "@example.com", Role: role})
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

// serve sends a JSON request through the full router. An empty userID sends
// no credentials.
func serve(t *testing.T, h *Handler, method, path string, body any, userID, role string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	case []byte:
		reader = bytes.NewReader(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-Authorization", "Bearer "+accessToken(t, h, userID, role))
	}
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected response body %q: %v", rr.Body.String(), err)
	}
	return body
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("unexpected status: got %d want %d body=%s", rr.Code, want, rr.Body.String())
	}
}

func stringPtr(value string) *string {
	return &value
}

func subjectFor(userID string) auth.Subject {
	return auth.Subject{UserID: userID, Email: userID + "@example.com", Role: models.RoleBuyer}
}
