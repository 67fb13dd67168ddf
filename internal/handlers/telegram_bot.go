package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketplace/internal/models"
	"marketplace/internal/telegram"
)

const (
	botSecretHeader        = "X-Telegram-Bot-Api-Secret-Token"
	defaultInvoiceCurrency = "RUB"
	defaultNotifyType      = "info"
)

type invoiceRequest struct {
	ChatID      int64           `json:"chatId" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Payload     json.RawMessage `json:"payload"`
}

type notifyRequest struct {
	ChatID    int64  `json:"chatId" validate:"required"`
	Message   string `json:"message" validate:"required"`
	Type      string `json:"type"`
	ActionURL string `json:"actionUrl"`
}

// TelegramWebhook answers Bot API updates. Replies are webhook-reply
// instructions the Bot API executes itself.
func (h *Handler) TelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if secret := h.cfg.Telegram.WebhookSecret; secret != "" {
		got := r.Header.Get(botSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
	}
	if !h.telegram.Configured() {
		respondError(w, http.StatusInternalServerError, "Telegram bot token not configured")
		return
	}
	var update telegram.Update
	if !decodeJSON(w, r, &update) {
		return
	}

	switch {
	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		h.recordTelegramPayment(w, r, *update.Message)
	case update.Message != nil && update.Message.Text != "":
		respondJSON(w, http.StatusOK, h.bot.CommandReply(*update.Message))
	case update.PreCheckoutQuery != nil:
		respondJSON(w, http.StatusOK, h.bot.PreCheckoutReply(*update.PreCheckoutQuery))
	case update.CallbackQuery != nil:
		respondJSON(w, http.StatusOK, h.bot.CallbackReply(*update.CallbackQuery))
	default:
		respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (h *Handler) recordTelegramPayment(w http.ResponseWriter, r *http.Request, msg telegram.Message) {
	paid := msg.SuccessfulPayment
	payment := models.TelegramPayment{
		TelegramPaymentChargeID: paid.TelegramPaymentChargeID,
		ProviderPaymentChargeID: paid.ProviderPaymentChargeID,
		Amount:                  decimal.New(paid.TotalAmount, -2),
		Currency:                paid.Currency,
		Payload:                 paid.PayloadJSON(),
	}
	if msg.From != nil {
		payment.TelegramUserID = msg.From.ID
	} else {
		payment.TelegramUserID = msg.Chat.ID
	}
	inserted, err := h.payments.Save(r.Context(), payment)
	if err != nil {
		h.internalError(w, r, "unable to record payment", err)
		return
	}
	if !inserted {
		h.logger.Info("telegram payment already recorded", zap.String("charge_id", payment.TelegramPaymentChargeID))
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "payment": payment})
}

func (h *Handler) TelegramInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Amount.IsPositive() {
		respondError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if !h.telegram.Configured() {
		respondError(w, http.StatusInternalServerError, "Telegram bot token not configured")
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultInvoiceCurrency
	}
	payload := "{}"
	if len(req.Payload) > 0 && string(req.Payload) != "null" {
		payload = string(req.Payload)
	}
	msg, err := h.telegram.SendInvoice(r.Context(), telegram.SendInvoiceRequest{
		ChatID:        req.ChatID,
		Title:         req.Title,
		Description:   req.Description,
		Payload:       payload,
		ProviderToken: h.cfg.Telegram.PaymentProviderToken,
		Currency:      currency,
		Prices: []telegram.LabeledPrice{{
			Label:  req.Title,
			Amount: req.Amount.Shift(2).Round(0).IntPart(),
		}},
	})
	if err != nil {
		h.respondBotError(w, r, "failed to create invoice", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message_id": msg.MessageID})
}

func (h *Handler) TelegramNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !h.telegram.Configured() {
		respondError(w, http.StatusInternalServerError, "Telegram bot token not configured")
		return
	}
	kind := req.Type
	if kind == "" {
		kind = defaultNotifyType
	}
	msg, err := h.telegram.SendMessage(r.Context(), telegram.Notification(req.ChatID, req.Message, kind, req.ActionURL, h.cfg.App.WebAppURL))
	if err != nil {
		h.respondBotError(w, r, "failed to send notification", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message_id": msg.MessageID})
}

func (h *Handler) respondBotError(w http.ResponseWriter, r *http.Request, message string, err error) {
	var apiErr *telegram.APIError
	switch {
	case errors.Is(err, telegram.ErrNotConfigured):
		respondError(w, http.StatusInternalServerError, "Telegram bot token not configured")
	case errors.As(err, &apiErr):
		h.logger.Warn(message, zap.String("method", apiErr.Method), zap.Error(err))
		respondJSON(w, http.StatusBadGateway, map[string]string{"error": message, "details": apiErr.Description})
	default:
		h.internalError(w, r, message, err)
	}
}
