package handlers

import (
	"context"

	"marketplace/internal/auth"
	"marketplace/internal/models"
	"marketplace/internal/moderation"
	"marketplace/internal/services"
	"marketplace/internal/store"
	"marketplace/internal/telegram"
)

type AuthService interface {
	Register(ctx context.Context, input services.RegisterInput) (services.AuthResult, error)
	Login(ctx context.Context, email, password string) (services.AuthResult, error)
	VerifyToken(token string) (auth.Claims, error)
	Refresh(ctx context.Context, refreshToken string) (auth.Session, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	RequestResetCode(ctx context.Context, email string) error
	ResetWithCode(ctx context.Context, email, code, newPassword string) error
	SendVerificationCode(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, email, code string) error
	SendCredentials(ctx context.Context, actorID, email, login, password, phone string) (bool, error)
	UnlockUser(ctx context.Context, actorID, userID string) error
	TelegramLogin(ctx context.Context, fields map[string]string) (services.AuthResult, error)
	MiniAppLogin(ctx context.Context, rawInitData string) (services.AuthResult, error)
}

type DepositService interface {
	GetOrCreateAddress(ctx context.Context, userID, currency string) (models.DepositAddress, error)
	GetAllAddresses(ctx context.Context, userID string) map[string]services.AddressResult
	ProcessPayment(ctx context.Context, n services.PaymentNotification) (services.PaymentResult, error)
}

type UserStore interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
	UpdateProfile(ctx context.Context, userID string, fields map[string]any) (int64, error)
}

type WalletStore interface {
	ListByUser(ctx context.Context, userID string) ([]models.WalletBalance, error)
}

type CatalogStore interface {
	List(ctx context.Context, filter store.CatalogFilter) ([]models.CatalogItem, error)
	Create(ctx context.Context, item store.NewCatalogItem) error
	GetOwner(ctx context.Context, itemID string) (string, error)
	Update(ctx context.Context, itemID string, patch store.CatalogPatch) error
}

type BusinessServiceStore interface {
	List(ctx context.Context, status string) ([]models.BusinessService, error)
	Create(ctx context.Context, tx store.Execer, service store.NewBusinessService) error
	CreateProgram(ctx context.Context, tx store.Execer, program store.NewServiceProgram) error
	GetOwner(ctx context.Context, serviceID string) (string, error)
	UpdateStatus(ctx context.Context, serviceID, status string) error
}

type TelegramPaymentStore interface {
	Save(ctx context.Context, payment models.TelegramPayment) (bool, error)
}

type AuditStore interface {
	List(ctx context.Context, limit, offset int) ([]store.AuditEntry, error)
}

type TelegramClient interface {
	Configured() bool
	SendMessage(ctx context.Context, req telegram.SendMessageRequest) (telegram.Message, error)
	SendInvoice(ctx context.Context, req telegram.SendInvoiceRequest) (telegram.Message, error)
}

type Moderator interface {
	ModerateAudio(ctx context.Context, req moderation.AudioRequest) (moderation.Verdict, error)
	ModeratePhoto(ctx context.Context, req moderation.PhotoRequest) (moderation.Verdict, error)
}
