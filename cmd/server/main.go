package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"marketplace/internal/auth"
	"marketplace/internal/config"
	"marketplace/internal/cryptocloud"
	"marketplace/internal/db"
	"marketplace/internal/events"
	"marketplace/internal/handlers"
	"marketplace/internal/logger"
	"marketplace/internal/mailer"
	"marketplace/internal/middleware"
	"marketplace/internal/moderation"
	"marketplace/internal/services"
	"marketplace/internal/store"
	"marketplace/internal/telegram"
	"marketplace/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	appLogger, err := logger.New(cfg.App.LogPath, cfg.App.Debug)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	database, err := db.Connect(cfg.Database.URL, cfg.Database.Schema)
	if err != nil {
		appLogger.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		appLogger.Warn("redis unavailable, rate limiting disabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		defer func() { _ = rdb.Close() }()
	}

	txRunner := db.NewTxRunner(database)
	users := store.NewUserStore(database)
	wallets := store.NewWalletStore(database)
	resets := store.NewResetStore(database)
	emailTokens := store.NewEmailTokenStore(database)
	audit := store.NewAuditStore(database)
	addresses := store.NewDepositAddressStore(database)
	cryptoTransactions := store.NewCryptoTransactionStore(database)
	catalog := store.NewCatalogStore(database)
	businessServices := store.NewBusinessServiceStore(database)
	payments := store.NewTelegramPaymentStore(database)

	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL, cfg.JWT.ResetTTL)
	hub := websocket.NewHub()

	authService := services.NewAuthService(services.AuthDeps{
		TxRunner:    txRunner,
		Users:       users,
		Wallets:     wallets,
		Resets:      resets,
		EmailTokens: emailTokens,
		Audit:       audit,
		Tokens:      tokens,
		Mailer:      mailer.New(cfg.SMTP),
	}, services.AuthConfig{
		Currencies:            cfg.Wallet.Currencies,
		ReferralBonusAmount:   cfg.Wallet.ReferralBonusAmount,
		ReferralBonusCurrency: cfg.Wallet.ReferralBonusCurrency,
		WebAppURL:             cfg.App.WebAppURL,
		BotToken:              cfg.Telegram.BotToken,
		TelegramMaxAge:        cfg.Telegram.AuthMaxAge,
	}, appLogger)

	depositService := services.NewDepositService(services.DepositDeps{
		TxRunner:     txRunner,
		Addresses:    addresses,
		Transactions: cryptoTransactions,
		Wallets:      wallets,
		Processor:    cryptocloud.NewClient(cfg.CryptoCloud.APIURL, cfg.CryptoCloud.APIKey),
		Hub:          hub,
		Publisher:    events.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, appLogger),
	}, appLogger)

	handler := handlers.New(cfg, handlers.Deps{
		Tokens:    tokens,
		TxRunner:  txRunner,
		Auth:      authService,
		Deposits:  depositService,
		Users:     users,
		Wallets:   wallets,
		Catalog:   catalog,
		Services:  businessServices,
		Payments:  payments,
		Audit:     audit,
		Telegram:  telegram.NewClient(cfg.Telegram.APIURL, cfg.Telegram.BotToken),
		Moderator: moderation.NewModerator(moderation.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL), appLogger),
		Hub:       hub,
		RateLimit: middleware.RateLimit(cfg.RateLimit, rdb, appLogger),
	}, appLogger)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("marketplace API listening", zap.String("addr", server.Addr), zap.String("env", cfg.App.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("server error", zap.Error(err))
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("shutdown error", zap.Error(err))
	}
}
