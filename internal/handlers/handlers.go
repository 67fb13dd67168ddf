package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"marketplace/internal/validator"
)

const maxBodyBytes = 20 << 20

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads the body into dst and runs its validate tags. It writes
// the 400 itself and reports false on any failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "empty request body")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	if errs := validator.ValidateStruct(dst); errs != nil {
		respondError(w, http.StatusBadRequest, validator.FormatValidationErrors(errs))
		return false
	}
	return true
}

// internalError logs err and answers 500 with a generic message.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.logger.Error(message, zap.String("path", r.URL.Path), zap.Error(err))
	respondError(w, http.StatusInternalServerError, message)
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
