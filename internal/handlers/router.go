package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"marketplace/internal/auth"
	"marketplace/internal/config"
	"marketplace/internal/db"
	"marketplace/internal/middleware"
	"marketplace/internal/models"
	"marketplace/internal/telegram"
	"marketplace/internal/websocket"
)

type Handler struct {
	cfg       config.Config
	tokens    *auth.TokenService
	txRunner  db.TxRunner
	auth      AuthService
	deposits  DepositService
	users     UserStore
	wallets   WalletStore
	catalog   CatalogStore
	services  BusinessServiceStore
	payments  TelegramPaymentStore
	audit     AuditStore
	telegram  TelegramClient
	bot       *telegram.Bot
	moderator Moderator
	hub       *websocket.Hub
	rateLimit func(http.Handler) http.Handler
	logger    *zap.Logger
}

type Deps struct {
	Tokens    *auth.TokenService
	TxRunner  db.TxRunner
	Auth      AuthService
	Deposits  DepositService
	Users     UserStore
	Wallets   WalletStore
	Catalog   CatalogStore
	Services  BusinessServiceStore
	Payments  TelegramPaymentStore
	Audit     AuditStore
	Telegram  TelegramClient
	Moderator Moderator
	Hub       *websocket.Hub
	// RateLimit guards the credential endpoints; nil disables it.
	RateLimit func(http.Handler) http.Handler
}

func New(cfg config.Config, deps Deps, logger *zap.Logger) *Handler {
	rateLimit := deps.RateLimit
	if rateLimit == nil {
		rateLimit = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{
		cfg:       cfg,
		tokens:    deps.Tokens,
		txRunner:  deps.TxRunner,
		auth:      deps.Auth,
		deposits:  deps.Deposits,
		users:     deps.Users,
		wallets:   deps.Wallets,
		catalog:   deps.Catalog,
		services:  deps.Services,
		payments:  deps.Payments,
		audit:     deps.Audit,
		telegram:  deps.Telegram,
		bot:       telegram.NewBot(cfg.App.WebAppURL),
		moderator: deps.Moderator,
		hub:       deps.Hub,
		rateLimit: rateLimit,
		logger:    logger.With(zap.String("component", "http")),
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Recover(h.logger))
	router.Use(middleware.Logger(h.logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type", "X-Authorization", "Authorization",
			"X-Webhook-Signature", "X-Telegram-Bot-Api-Secret-Token",
		},
		MaxAge: 86400,
	}))
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	requireAuth := middleware.Auth(h.tokens)

	router.Route("/auth", func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/verify-token", h.VerifyToken)
		r.Post("/refresh", h.Refresh)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)
	})
	router.Route("/password-reset", func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Post("/request", h.RequestResetCode)
		r.Post("/verify", h.VerifyResetCode)
	})
	router.Route("/email-verification", func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Post("/send", h.SendVerificationCode)
		r.Post("/verify", h.VerifyEmailCode)
	})
	router.With(requireAuth, middleware.RequireRole(models.RoleAdmin, models.RoleAgency)).
		Post("/credentials/send", h.SendCredentials)

	router.Route("/admin", func(r chi.Router) {
		r.Use(requireAuth, middleware.RequireRole(models.RoleAdmin))
		r.Post("/users/{id}/unlock", h.UnlockUser)
		r.Get("/audit-logs", h.ListAuditLogs)
	})

	router.Route("/telegram", func(r chi.Router) {
		r.With(h.rateLimit).Post("/auth", h.TelegramAuth)
		r.With(h.rateLimit).Post("/miniapp-auth", h.MiniAppAuth)
		r.Post("/webhook", h.TelegramWebhook)
		r.With(requireAuth).Post("/notify", h.TelegramNotify)
		r.With(requireAuth).Post("/invoice", h.TelegramInvoice)
	})

	router.With(requireAuth).Get("/profile", h.GetProfile)
	router.With(requireAuth).Put("/profile", h.UpdateProfile)

	router.Get("/catalog", h.ListCatalog)
	router.With(requireAuth).Post("/catalog", h.CreateCatalogItem)
	router.With(requireAuth).Put("/catalog", h.UpdateCatalogItem)

	router.Get("/business-services", h.ListBusinessServices)
	router.With(requireAuth).Post("/business-services", h.CreateBusinessService)
	router.With(requireAuth).Put("/business-services", h.UpdateBusinessService)

	router.Route("/crypto", func(r chi.Router) {
		r.With(requireAuth).Get("/deposit", h.GetDepositAddress)
		r.With(requireAuth).Post("/deposit", h.DepositAction)
		r.With(requireAuth).Get("/deposit/addresses", h.GetAllDepositAddresses)
		r.Post("/webhook", h.CryptoWebhook)
	})

	router.With(requireAuth).Get("/wallet/balances", h.ListBalances)
	router.Get("/ws/balances", h.WSBalances)

	router.Route("/moderation", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/audio", h.ModerateAudio)
		r.Post("/photo", h.ModeratePhoto)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
