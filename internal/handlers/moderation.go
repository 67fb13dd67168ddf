package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"marketplace/internal/moderation"
)

type audioModerationRequest struct {
	AudioBase64   string `json:"audioBase64" validate:"required"`
	AdTitle       string `json:"adTitle"`
	AdDescription string `json:"adDescription"`
}

type photoModerationRequest struct {
	ImageBase64 string `json:"imageBase64" validate:"required"`
	UserName    string `json:"userName"`
	PhotoType   string `json:"photoType"`
}

func (h *Handler) ModerateAudio(w http.ResponseWriter, r *http.Request) {
	var req audioModerationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	verdict, err := h.moderator.ModerateAudio(r.Context(), moderation.AudioRequest{
		AudioBase64:   req.AudioBase64,
		AdTitle:       req.AdTitle,
		AdDescription: req.AdDescription,
	})
	if err != nil {
		h.respondModerationError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"approved":   verdict.Approved,
		"reason":     verdict.Reason,
		"transcript": verdict.Transcript,
		"confidence": verdict.Confidence,
	})
}

func (h *Handler) ModeratePhoto(w http.ResponseWriter, r *http.Request) {
	var req photoModerationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	verdict, err := h.moderator.ModeratePhoto(r.Context(), moderation.PhotoRequest{
		ImageBase64: req.ImageBase64,
		UserName:    req.UserName,
		PhotoType:   req.PhotoType,
	})
	if err != nil {
		h.respondModerationError(w, r, err)
		return
	}
	detected := verdict.DetectedContent
	if detected == nil {
		detected = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"approved":        verdict.Approved,
		"reason":          verdict.Reason,
		"confidence":      verdict.Confidence,
		"detectedContent": detected,
	})
}

func (h *Handler) respondModerationError(w http.ResponseWriter, r *http.Request, err error) {
	var upstream *moderation.UpstreamError
	switch {
	case errors.Is(err, moderation.ErrInvalidMedia):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, moderation.ErrNotConfigured):
		respondError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &upstream):
		h.logger.Warn("moderation model call failed", zap.String("op", upstream.Op), zap.Error(err))
		respondJSON(w, http.StatusBadGateway, map[string]string{"error": "moderation service unavailable", "details": upstream.Err.Error()})
	default:
		h.internalError(w, r, "moderation failed", err)
	}
}
