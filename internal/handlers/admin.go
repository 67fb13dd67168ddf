package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"marketplace/internal/auth"
	"marketplace/internal/middleware"
	"marketplace/internal/services"
	"marketplace/internal/websocket"
)

func (h *Handler) UnlockUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(userID); err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	err := h.auth.UnlockUser(r.Context(), actorID, userID)
	if errors.Is(err, services.ErrUserNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.internalError(w, r, "unable to unlock user", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "user_id": userID})
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), 50)
	page := parseInt(query.Get("page"), 1)
	offset := (page - 1) * limit
	rows, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		h.internalError(w, r, "unable to load audit logs", err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// WSBalances streams balance updates. Browsers cannot set headers on a
// websocket upgrade, so the token may come in the query string.
func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = middleware.BearerToken(r)
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := h.tokens.Verify(token, auth.AccessToken)
	if errors.Is(err, auth.ErrTokenExpired) {
		respondError(w, http.StatusUnauthorized, "token expired")
		return
	}
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.UserID)
}
