package handlers

import (
	"errors"
	"net/http"

	"marketplace/internal/auth"
	"marketplace/internal/mailer"
	"marketplace/internal/models"
	"marketplace/internal/services"
)

type registerRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	Username     string `json:"username" validate:"required"`
	Role         string `json:"role"`
	ReferralCode string `json:"referralCode"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	Token        string      `json:"token"`
	User         models.User `json:"user"`
	NewUser      *bool       `json:"new_user,omitempty"`
}

func newSessionResponse(result services.AuthResult) sessionResponse {
	return sessionResponse{
		AccessToken:  result.Session.AccessToken,
		RefreshToken: result.Session.RefreshToken,
		Token:        result.Session.AccessToken,
		User:         result.User,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.auth.Register(r.Context(), services.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		Username:     req.Username,
		Role:         req.Role,
		ReferralCode: req.ReferralCode,
	})
	switch {
	case errors.Is(err, services.ErrInvalidRole):
		respondError(w, http.StatusBadRequest, "role must be one of: buyer, business, agency")
		return
	case errors.Is(err, services.ErrEmailTaken):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.internalError(w, r, "unable to register user", err)
		return
	}
	respondJSON(w, http.StatusCreated, newSessionResponse(result))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	case errors.Is(err, services.ErrAccountLocked):
		respondError(w, http.StatusTooManyRequests, err.Error())
		return
	case err != nil:
		h.internalError(w, r, "unable to login", err)
		return
	}
	respondJSON(w, http.StatusOK, newSessionResponse(result))
}

type tokenRequest struct {
	Token string `json:"token" validate:"required"`
}

func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	claims, err := h.auth.VerifyToken(req.Token)
	if errors.Is(err, auth.ErrTokenExpired) {
		respondJSON(w, http.StatusUnauthorized, map[string]any{"error": "token expired", "valid": false})
		return
	}
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid token", "valid": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"valid":   true,
		"user_id": claims.UserID,
		"email":   claims.Email,
		"role":    claims.Role,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if tokenStatus, message, ok := tokenError(err); ok {
			respondError(w, tokenStatus, message)
			return
		}
		h.internalError(w, r, "unable to refresh session", err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

const resetSentMessage = "If this email is registered, you will receive reset instructions"

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.auth.ForgotPassword(r.Context(), req.Email)
	if errors.Is(err, mailer.ErrNotConfigured) {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err != nil {
		h.internalError(w, r, "unable to send reset link", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": resetSentMessage})
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.auth.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if errors.Is(err, services.ErrInvalidResetToken) {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		if status, message, ok := tokenError(err); ok {
			respondError(w, status, message)
			return
		}
		h.internalError(w, r, "unable to reset password", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// tokenError maps token verification failures to a response.
func tokenError(err error) (int, string, bool) {
	switch {
	case errors.Is(err, auth.ErrWrongTokenKind):
		return http.StatusBadRequest, "invalid token type", true
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, "token expired", true
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid token", true
	}
	return 0, "", false
}
