package handlers

import (
	"net/http"

	"marketplace/internal/middleware"
)

func (h *Handler) ListBalances(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	balances, err := h.wallets.ListByUser(r.Context(), userID)
	if err != nil {
		h.internalError(w, r, "unable to load balances", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"balances": balances})
}
