package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"marketplace/internal/middleware"
	"marketplace/internal/store"
)

// profileFields maps request keys to user columns.
var profileFields = map[string]string{
	"nickname": "nickname",
	"name":     "name",
	"bio":      "bio",
	"avatar":   "avatar_url",
	"phone":    "phone",
	"telegram": "telegram_username",
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.users.GetByID(r.Context(), userID)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.internalError(w, r, "unable to load profile", err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var body map[string]any
	if !decodeJSON(w, r, &body) {
		return
	}
	fields := make(map[string]any)
	for key, value := range body {
		column, ok := profileFields[key]
		if !ok {
			continue
		}
		switch value.(type) {
		case string, nil:
		default:
			respondError(w, http.StatusBadRequest, key+" must be a string or null")
			return
		}
		fields[column] = value
	}
	if len(fields) == 0 {
		respondError(w, http.StatusBadRequest, "no fields to update")
		return
	}
	rows, err := h.users.UpdateProfile(r.Context(), userID, fields)
	if errors.Is(err, store.ErrNoProfileFields) {
		respondError(w, http.StatusBadRequest, "no fields to update")
		return
	}
	if err != nil {
		h.internalError(w, r, "unable to update profile", err)
		return
	}
	if rows == 0 {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
