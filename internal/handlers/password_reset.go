package handlers

import (
	"errors"
	"net/http"

	"marketplace/internal/mailer"
	"marketplace/internal/services"
)

type resetCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetWithCodeRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

func (h *Handler) RequestResetCode(w http.ResponseWriter, r *http.Request) {
	var req resetCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.auth.RequestResetCode(r.Context(), req.Email)
	if errors.Is(err, mailer.ErrNotConfigured) {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err != nil {
		h.internalError(w, r, "unable to send reset code", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": resetSentMessage})
}

func (h *Handler) VerifyResetCode(w http.ResponseWriter, r *http.Request) {
	var req resetWithCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.auth.ResetWithCode(r.Context(), req.Email, req.Code, req.NewPassword)
	if errors.Is(err, services.ErrInvalidResetCode) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.internalError(w, r, "unable to reset password", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "password updated"})
}
