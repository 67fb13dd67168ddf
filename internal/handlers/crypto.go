package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketplace/internal/auth"
	"marketplace/internal/cryptocloud"
	"marketplace/internal/middleware"
	"marketplace/internal/services"
)

const signatureHeader = "X-Webhook-Signature"

type depositActionRequest struct {
	Action   string `json:"action" validate:"required"`
	Currency string `json:"currency"`
}

type webhookRequest struct {
	UUID         string           `json:"uuid" validate:"required"`
	AmountCrypto *decimal.Decimal `json:"amount_crypto" validate:"required"`
	Currency     string           `json:"currency" validate:"required"`
	Status       string           `json:"status" validate:"required"`
}

func (h *Handler) GetDepositAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.respondAddress(w, r, userID, r.URL.Query().Get("currency"))
}

func (h *Handler) GetAllDepositAddresses(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.respondAllAddresses(w, r, userID)
}

// DepositAction serves clients that post {action} instead of using the GET
// routes.
func (h *Handler) DepositAction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req depositActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	switch req.Action {
	case "get_all_addresses":
		h.respondAllAddresses(w, r, userID)
	case "get_address":
		h.respondAddress(w, r, userID, req.Currency)
	default:
		respondError(w, http.StatusBadRequest, "Unknown action")
	}
}

func (h *Handler) respondAddress(w http.ResponseWriter, r *http.Request, userID, currency string) {
	if strings.TrimSpace(currency) == "" {
		respondError(w, http.StatusBadRequest, "currency is required")
		return
	}
	address, err := h.deposits.GetOrCreateAddress(r.Context(), userID, currency)
	if err != nil {
		h.respondDepositError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"address":    address.Address,
		"tag":        address.Tag,
		"currency":   address.Currency,
		"invoice_id": address.InvoiceID,
		"created_at": address.CreatedAt,
	})
}

func (h *Handler) respondAllAddresses(w http.ResponseWriter, r *http.Request, userID string) {
	results := h.deposits.GetAllAddresses(r.Context(), userID)
	addresses := make(map[string]any, len(results))
	for currency, result := range results {
		if result.Err != nil {
			addresses[currency] = map[string]string{"error": depositErrorMessage(result.Err)}
			continue
		}
		addresses[currency] = result.Address
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "addresses": addresses})
}

func (h *Handler) respondDepositError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *cryptocloud.APIError
	switch {
	case errors.Is(err, services.ErrUnsupportedCurrency):
		respondError(w, http.StatusBadRequest, "unsupported currency, use one of: "+strings.Join(services.DepositCurrencies, ", "))
	case errors.Is(err, cryptocloud.ErrNotConfigured):
		respondError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &apiErr):
		h.logger.Warn("processor rejected invoice", zap.Error(err))
		respondError(w, http.StatusBadGateway, apiErr.Message)
	default:
		h.internalError(w, r, "unable to issue deposit address", err)
	}
}

func depositErrorMessage(err error) string {
	var apiErr *cryptocloud.APIError
	switch {
	case errors.Is(err, cryptocloud.ErrNotConfigured), errors.Is(err, services.ErrUnsupportedCurrency):
		return err.Error()
	case errors.As(err, &apiErr):
		return apiErr.Message
	default:
		return "unable to issue deposit address"
	}
}

// CryptoWebhook applies a CryptoCloud payment notification. The signature is
// checked over the raw body before anything is parsed.
func (h *Handler) CryptoWebhook(w http.ResponseWriter, r *http.Request) {
	secret := h.cfg.CryptoCloud.WebhookSecret
	if secret == "" {
		respondError(w, http.StatusInternalServerError, "webhook secret not configured")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !auth.VerifyWebhookSignature(body, r.Header.Get(signatureHeader), secret) {
		h.logger.Warn("webhook signature mismatch", zap.String("ip", r.RemoteAddr))
		respondError(w, http.StatusForbidden, "invalid signature")
		return
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	var req webhookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.AmountCrypto.IsPositive() {
		respondError(w, http.StatusBadRequest, services.ErrInvalidAmount.Error())
		return
	}
	result, err := h.deposits.ProcessPayment(r.Context(), services.PaymentNotification{
		InvoiceID: req.UUID,
		Amount:    *req.AmountCrypto,
		Currency:  req.Currency,
		Status:    req.Status,
	})
	switch {
	case errors.Is(err, services.ErrUnknownInvoice):
		respondError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, services.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.internalError(w, r, "unable to process payment", err)
		return
	}

	resp := map[string]any{"success": result.Success, "status": result.Status}
	if result.Duplicate {
		resp["duplicate"] = true
	}
	if result.Message != "" {
		resp["message"] = result.Message
	}
	if result.Success && result.Status != services.PaymentStatusPending && !result.Duplicate {
		resp["balance"] = result.Balance.String()
	}
	respondJSON(w, http.StatusOK, resp)
}
