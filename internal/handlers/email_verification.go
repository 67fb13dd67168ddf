package handlers

import (
	"errors"
	"net/http"

	"marketplace/internal/mailer"
	"marketplace/internal/middleware"
	"marketplace/internal/services"
)

type sendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

func (h *Handler) SendVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.auth.SendVerificationCode(r.Context(), req.Email)
	if errors.Is(err, mailer.ErrNotConfigured) {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err != nil {
		h.internalError(w, r, "unable to send verification code", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "verification code sent"})
}

func (h *Handler) VerifyEmailCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.auth.VerifyEmail(r.Context(), req.Email, req.Code)
	switch {
	case errors.Is(err, services.ErrCodeExpired):
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	case errors.Is(err, services.ErrInvalidCode):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.internalError(w, r, "unable to verify email", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "verified": true})
}

type sendCredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
	Phone    string `json:"phone"`
}

// SendCredentials emails login details to a user an admin or agency created.
func (h *Handler) SendCredentials(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req sendCredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sent, err := h.auth.SendCredentials(r.Context(), actorID, req.Email, req.Login, req.Password, req.Phone)
	if err != nil {
		h.internalError(w, r, "unable to send credentials", err)
		return
	}
	if !sent {
		respondJSON(w, http.StatusOK, map[string]any{"success": true, "sent": false, "message": "SMTP not configured"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "sent": true})
}
