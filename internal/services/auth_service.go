package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	initdata "github.com/telegram-mini-apps/init-data-golang"
	"go.uber.org/zap"

	"marketplace/internal/auth"
	"marketplace/internal/db"
	"marketplace/internal/mailer"
	"marketplace/internal/models"
	"marketplace/internal/store"
)

const (
	maxFailedLogins       = 5
	referralCodeAttempts  = 10
	resetCodeTTL          = 15 * time.Minute
	verificationCodeTTL   = 10 * time.Minute
	telegramEmailTemplate = "telegram_%d@temp.local"
)

var (
	ErrEmailTaken            = errors.New("email already registered")
	ErrInvalidRole           = errors.New("invalid role")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrAccountLocked         = errors.New("account locked: too many failed login attempts")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidResetToken     = errors.New("invalid or expired token")
	ErrInvalidResetCode      = errors.New("invalid or expired code")
	ErrInvalidCode           = errors.New("invalid code")
	ErrCodeExpired           = errors.New("code expired")
	ErrTelegramNotConfigured = errors.New("Telegram bot token not configured")
	ErrTelegramAuth          = errors.New("invalid Telegram authentication")
	ErrReferralCodeExhausted = errors.New("could not allocate a referral code")
)

var selfAssignableRoles = map[string]struct{}{
	models.RoleBuyer:    {},
	models.RoleBusiness: {},
	models.RoleAgency:   {},
}

type AuthConfig struct {
	Currencies            []string
	ReferralBonusAmount   decimal.Decimal
	ReferralBonusCurrency string
	WebAppURL             string
	BotToken              string
	TelegramMaxAge        time.Duration
}

type AuthService struct {
	txRunner    db.TxRunner
	users       UserStore
	wallets     WalletStore
	resets      ResetStore
	emailTokens EmailTokenStore
	audit       AuditStore
	tokens      *auth.TokenService
	mailer      Mailer
	cfg         AuthConfig
	logger      *zap.Logger
	now         func() time.Time
}

type AuthDeps struct {
	TxRunner    db.TxRunner
	Users       UserStore
	Wallets     WalletStore
	Resets      ResetStore
	EmailTokens EmailTokenStore
	Audit       AuditStore
	Tokens      *auth.TokenService
	Mailer      Mailer
}

func NewAuthService(deps AuthDeps, cfg AuthConfig, logger *zap.Logger) *AuthService {
	return &AuthService{
		txRunner:    deps.TxRunner,
		users:       deps.Users,
		wallets:     deps.Wallets,
		resets:      deps.Resets,
		emailTokens: deps.EmailTokens,
		audit:       deps.Audit,
		tokens:      deps.Tokens,
		mailer:      deps.Mailer,
		cfg:         cfg,
		logger:      logger.With(zap.String("component", "auth")),
		now:         time.Now,
	}
}

// AuthResult is a signed-in user with a fresh session.
type AuthResult struct {
	Session auth.Session
	User    models.User
	NewUser bool
}

type RegisterInput struct {
	Email        string
	Password     string
	Username     string
	Role         string
	ReferralCode string
}

// TelegramProfile is what Telegram tells us about a user at sign-in.
type TelegramProfile struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	PhotoURL  string
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	email := NormalizeEmail(input.Email)
	role := input.Role
	if role == "" {
		role = models.RoleBuyer
	}
	if _, ok := selfAssignableRoles[role]; !ok {
		return AuthResult{}, ErrInvalidRole
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return AuthResult{}, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return AuthResult{}, err
	}

	var referrer *models.User
	if code := strings.ToUpper(strings.TrimSpace(input.ReferralCode)); code != "" {
		found, err := s.users.GetByReferralCode(ctx, code)
		switch {
		case err == nil:
			referrer = &found
		case errors.Is(err, sql.ErrNoRows):
			s.logger.Info("unknown referral code", zap.String("code", code))
		default:
			return AuthResult{}, err
		}
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, err
	}
	user := store.NewUser{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Username:     strings.TrimSpace(input.Username),
		Role:         role,
	}
	if err := s.createUser(ctx, user, referrer); err != nil {
		if db.UniqueViolationOn(err, store.UsersEmailKey) {
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, err
	}
	return s.signIn(ctx, user.ID, true)
}

// ImplicitRegister creates the account behind a first Telegram sign-in. The
// account gets the same referral code and wallet rows as a registered one
// and an unusable random password.
func (s *AuthService) ImplicitRegister(ctx context.Context, profile TelegramProfile) (string, error) {
	password, err := auth.RandomPassword()
	if err != nil {
		return "", err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	username := profile.Username
	if username == "" {
		username = "user" + strconv.FormatInt(profile.ID, 10)
	}
	name := displayName(profile)
	telegramID := profile.ID
	user := store.NewUser{
		ID:               uuid.NewString(),
		Email:            fmt.Sprintf(telegramEmailTemplate, profile.ID),
		PasswordHash:     hash,
		Username:         username,
		Name:             &name,
		Role:             models.RoleBuyer,
		TelegramID:       &telegramID,
		TelegramUsername: optional(profile.Username),
		AvatarURL:        optional(profile.PhotoURL),
	}
	if err := s.createUser(ctx, user, nil); err != nil {
		return "", err
	}
	return user.ID, nil
}

// createUser inserts the user with a fresh referral code, drawing again when
// a concurrent insert took the same code.
func (s *AuthService) createUser(ctx context.Context, user store.NewUser, referrer *models.User) error {
	if referrer != nil {
		user.ReferredBy = &referrer.ID
	}
	for i := 0; i < referralCodeAttempts; i++ {
		code, err := s.newReferralCode(ctx)
		if err != nil {
			return err
		}
		user.ReferralCode = code
		err = s.insertUser(ctx, user, referrer)
		if !db.UniqueViolationOn(err, store.UsersReferralCodeKey) {
			return err
		}
		s.logger.Warn("referral code taken at insert, retrying", zap.String("code", code))
	}
	return ErrReferralCodeExhausted
}

func (s *AuthService) insertUser(ctx context.Context, user store.NewUser, referrer *models.User) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.users.Create(ctx, tx, user); err != nil {
			return err
		}
		if err := s.wallets.Seed(ctx, tx, user.ID, s.cfg.Currencies); err != nil {
			return err
		}
		if referrer == nil || !s.cfg.ReferralBonusAmount.IsPositive() {
			return nil
		}
		_, err := s.wallets.Credit(ctx, tx, referrer.ID, s.cfg.ReferralBonusCurrency, s.cfg.ReferralBonusAmount)
		return err
	})
}

func (s *AuthService) newReferralCode(ctx context.Context) (string, error) {
	for i := 0; i < referralCodeAttempts; i++ {
		code, err := auth.ReferralCode()
		if err != nil {
			return "", err
		}
		exists, err := s.users.ReferralCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrReferralCodeExhausted
}

// Login checks the lockout before the password, so a locked account stays
// locked even for the right password.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, err
	}
	if user.FailedLoginAttempts >= maxFailedLogins {
		return AuthResult{}, ErrAccountLocked
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		if err := s.users.RecordFailedLogin(ctx, user.ID); err != nil {
			s.logger.Error("record failed login", zap.String("user_id", user.ID), zap.Error(err))
		}
		return AuthResult{}, ErrInvalidCredentials
	}
	if err := s.users.RecordLogin(ctx, user.ID); err != nil {
		return AuthResult{}, err
	}
	user.FailedLoginAttempts = 0
	session, err := s.tokens.IssueSession(subjectOf(user))
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Session: session, User: user}, nil
}

func (s *AuthService) VerifyToken(token string) (auth.Claims, error) {
	return s.tokens.Verify(token, auth.AccessToken)
}

// Refresh trades a refresh token for a new session. Role and email come from
// the current user row, not the old token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (auth.Session, error) {
	claims, err := s.tokens.Verify(refreshToken, auth.RefreshToken)
	if err != nil {
		return auth.Session{}, err
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return auth.Session{}, err
	}
	return s.tokens.IssueSession(subjectOf(user))
}

// ForgotPassword emails a reset link. Unknown addresses succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if !s.mailer.Configured() {
		return mailer.ErrNotConfigured
	}
	email = NormalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	token, err := s.tokens.Issue(auth.ResetToken, auth.Subject{UserID: user.ID})
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(s.tokens.TTL(auth.ResetToken))
	if err := s.resets.SaveToken(ctx, user.ID, auth.HashSecret(token), expiresAt); err != nil {
		return err
	}
	link := s.cfg.WebAppURL + "/reset-password?token=" + url.QueryEscape(token)
	return s.mailer.Send(mailer.ResetLink(user.Email, link))
}

// ResetPassword consumes a reset token. Token verification errors from the
// auth package are returned as is.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := s.tokens.Verify(token, auth.ResetToken)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		owner, ok, err := s.resets.ConsumeToken(ctx, tx, auth.HashSecret(token))
		if err != nil {
			return err
		}
		if !ok || owner != claims.UserID {
			return ErrInvalidResetToken
		}
		if err := s.users.UpdatePassword(ctx, tx, owner, hash); err != nil {
			return err
		}
		if err := s.resets.DeleteUserTokens(ctx, tx, owner); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, "", "password.reset", "user", owner, map[string]string{"method": "link"})
	})
}

// RequestResetCode emails a six-digit code and voids any earlier one.
// Unknown addresses succeed silently.
func (s *AuthService) RequestResetCode(ctx context.Context, email string) error {
	if !s.mailer.Configured() {
		return mailer.ErrNotConfigured
	}
	email = NormalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	code, err := auth.OneTimeCode()
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(resetCodeTTL)
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.resets.InvalidateCodes(ctx, tx, user.ID); err != nil {
			return err
		}
		return s.resets.SaveCode(ctx, tx, uuid.NewString(), user.ID, email, auth.HashSecret(code), expiresAt)
	})
	if err != nil {
		return err
	}
	return s.mailer.Send(mailer.ResetCode(email, code))
}

func (s *AuthService) ResetWithCode(ctx context.Context, email, code, newPassword string) error {
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	email = NormalizeEmail(email)
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		owner, ok, err := s.resets.ConsumeCode(ctx, tx, email, auth.HashSecret(strings.TrimSpace(code)))
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidResetCode
		}
		if err := s.users.UpdatePassword(ctx, tx, owner, hash); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, "", "password.reset", "user", owner, map[string]string{"method": "code"})
	})
}

func (s *AuthService) SendVerificationCode(ctx context.Context, email string) error {
	if !s.mailer.Configured() {
		return mailer.ErrNotConfigured
	}
	email = NormalizeEmail(email)
	if err := s.emailTokens.DeleteExpired(ctx); err != nil {
		return err
	}
	code, err := auth.OneTimeCode()
	if err != nil {
		return err
	}
	if err := s.emailTokens.Save(ctx, uuid.NewString(), email, auth.HashSecret(code), s.now().Add(verificationCodeTTL)); err != nil {
		return err
	}
	return s.mailer.Send(mailer.VerificationCode(email, code))
}

func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	email = NormalizeEmail(email)
	token, err := s.emailTokens.Find(ctx, email, auth.HashSecret(strings.TrimSpace(code)))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidCode
	}
	if err != nil {
		return err
	}
	if !s.now().Before(token.ExpiresAt) {
		return ErrCodeExpired
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.emailTokens.Delete(ctx, tx, token.ID); err != nil {
			return err
		}
		return s.users.MarkVerified(ctx, tx, email)
	})
}

// SendCredentials emails login details on behalf of an admin or agency. It
// reports false without error when SMTP is not configured.
func (s *AuthService) SendCredentials(ctx context.Context, actorID, email, login, password, phone string) (bool, error) {
	if !s.mailer.Configured() {
		return false, nil
	}
	email = NormalizeEmail(email)
	if err := s.mailer.Send(mailer.Credentials(email, login, password, phone)); err != nil {
		return false, err
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.audit.Log(ctx, tx, actorID, "credentials.sent", "email", email, map[string]string{"login": login})
	})
	if err != nil {
		s.logger.Error("audit credentials letter", zap.String("actor_id", actorID), zap.Error(err))
	}
	return true, nil
}

// UnlockUser clears the failed-login counter.
func (s *AuthService) UnlockUser(ctx context.Context, actorID, userID string) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.users.ResetFailedLogins(ctx, tx, userID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrUserNotFound
		}
		return s.audit.Log(ctx, tx, actorID, "user.unlock", "user", userID, nil)
	})
}

// TelegramLogin signs in with a Login Widget payload.
func (s *AuthService) TelegramLogin(ctx context.Context, fields map[string]string) (AuthResult, error) {
	if s.cfg.BotToken == "" {
		return AuthResult{}, ErrTelegramNotConfigured
	}
	if err := auth.VerifyTelegramLogin(fields, s.cfg.BotToken, s.cfg.TelegramMaxAge, s.now()); err != nil {
		return AuthResult{}, fmt.Errorf("%w: %v", ErrTelegramAuth, err)
	}
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil || id == 0 {
		return AuthResult{}, ErrTelegramAuth
	}
	return s.loginTelegram(ctx, TelegramProfile{
		ID:        id,
		FirstName: fields["first_name"],
		LastName:  fields["last_name"],
		Username:  fields["username"],
		PhotoURL:  fields["photo_url"],
	})
}

// MiniAppLogin signs in with the init data of a Telegram Mini App launch.
func (s *AuthService) MiniAppLogin(ctx context.Context, rawInitData string) (AuthResult, error) {
	if s.cfg.BotToken == "" {
		return AuthResult{}, ErrTelegramNotConfigured
	}
	if err := initdata.Validate(rawInitData, s.cfg.BotToken, s.cfg.TelegramMaxAge); err != nil {
		return AuthResult{}, fmt.Errorf("%w: %v", ErrTelegramAuth, err)
	}
	parsed, err := initdata.Parse(rawInitData)
	if err != nil || parsed.User.ID == 0 {
		return AuthResult{}, ErrTelegramAuth
	}
	return s.loginTelegram(ctx, TelegramProfile{
		ID:        parsed.User.ID,
		FirstName: parsed.User.FirstName,
		LastName:  parsed.User.LastName,
		Username:  parsed.User.Username,
		PhotoURL:  parsed.User.PhotoURL,
	})
}

func (s *AuthService) loginTelegram(ctx context.Context, profile TelegramProfile) (AuthResult, error) {
	user, err := s.users.GetByTelegramID(ctx, profile.ID)
	if err == nil {
		if err := s.users.RefreshTelegram(ctx, user.ID, optional(profile.Username), optional(profile.PhotoURL)); err != nil {
			return AuthResult{}, err
		}
		return s.signIn(ctx, user.ID, false)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return AuthResult{}, err
	}

	userID, err := s.ImplicitRegister(ctx, profile)
	if db.UniqueViolationOn(err, store.UsersTelegramIDKey, store.UsersEmailKey) {
		// A concurrent first sign-in created the account.
		existing, lookupErr := s.users.GetByTelegramID(ctx, profile.ID)
		if lookupErr != nil {
			return AuthResult{}, lookupErr
		}
		return s.signIn(ctx, existing.ID, false)
	}
	if err != nil {
		return AuthResult{}, err
	}
	s.logger.Info("telegram user registered", zap.String("user_id", userID), zap.Int64("telegram_id", profile.ID))
	return s.signIn(ctx, userID, true)
}

func (s *AuthService) signIn(ctx context.Context, userID string, newUser bool) (AuthResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.users.RecordLogin(ctx, user.ID); err != nil {
		return AuthResult{}, err
	}
	session, err := s.tokens.IssueSession(subjectOf(user))
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Session: session, User: user, NewUser: newUser}, nil
}

func subjectOf(user models.User) auth.Subject {
	return auth.Subject{UserID: user.ID, Email: user.Email, Role: user.Role}
}

func displayName(profile TelegramProfile) string {
	name := strings.TrimSpace(profile.FirstName + " " + profile.LastName)
	if name != "" {
		return name
	}
	if profile.Username != "" {
		return profile.Username
	}
	return "user" + strconv.FormatInt(profile.ID, 10)
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
