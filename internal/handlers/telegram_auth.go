package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"marketplace/internal/services"
)

type miniAppAuthRequest struct {
	InitData string `json:"initData" validate:"required"`
}

// TelegramAuth signs in with a Login Widget payload. The widget sends id and
// auth_date as numbers, so fields are read loosely and stringified for the
// signature check.
func (h *Handler) TelegramAuth(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if !decodeJSON(w, r, &raw) {
		return
	}
	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			fields[key] = v
		case float64:
			fields[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			fields[key] = v.String()
		case bool:
			fields[key] = strconv.FormatBool(v)
		}
	}
	if fields["id"] == "" || fields["hash"] == "" || fields["auth_date"] == "" {
		respondError(w, http.StatusBadRequest, "id, auth_date and hash are required")
		return
	}
	result, err := h.auth.TelegramLogin(r.Context(), fields)
	h.respondTelegramLogin(w, r, result, err)
}

func (h *Handler) MiniAppAuth(w http.ResponseWriter, r *http.Request) {
	var req miniAppAuthRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.auth.MiniAppLogin(r.Context(), req.InitData)
	h.respondTelegramLogin(w, r, result, err)
}

func (h *Handler) respondTelegramLogin(w http.ResponseWriter, r *http.Request, result services.AuthResult, err error) {
	switch {
	case errors.Is(err, services.ErrTelegramNotConfigured):
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	case errors.Is(err, services.ErrTelegramAuth):
		respondError(w, http.StatusUnauthorized, services.ErrTelegramAuth.Error())
		return
	case err != nil:
		h.internalError(w, r, "unable to sign in with Telegram", err)
		return
	}
	resp := newSessionResponse(result)
	resp.NewUser = &result.NewUser
	respondJSON(w, http.StatusOK, resp)
}
