package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace/internal/middleware"
	"marketplace/internal/store"
)

type createCatalogItemRequest struct {
	Title        string           `json:"title" validate:"required"`
	Description  *string          `json:"description"`
	Price        *decimal.Decimal `json:"price"`
	Category     *string          `json:"category"`
	Age          *int             `json:"age"`
	Height       *int             `json:"height"`
	BodyType     *string          `json:"bodyType"`
	Country      *string          `json:"country"`
	Location     *string          `json:"location"`
	ImageURL     *string          `json:"imageUrl"`
	AvatarURL    *string          `json:"avatarUrl"`
	Images       []string         `json:"images"`
	WorkSchedule json.RawMessage  `json:"workSchedule"`
	AgencyID     *string          `json:"agencyId"`
	AgencyName   *string          `json:"agencyName"`
}

type updateCatalogItemRequest struct {
	ItemID   string           `json:"itemId" validate:"required,uuid"`
	IsActive *bool            `json:"isActive"`
	Title    *string          `json:"title"`
	Price    *decimal.Decimal `json:"price"`
}

func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.CatalogFilter{
		Location: strings.TrimSpace(query.Get("location")),
		Category: strings.TrimSpace(query.Get("category")),
		Active:   true,
	}
	if raw := query.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "active must be true or false")
			return
		}
		filter.Active = active
	}
	items, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		h.internalError(w, r, "unable to load catalog", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) CreateCatalogItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createCatalogItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Price != nil && req.Price.IsNegative() {
		respondError(w, http.StatusBadRequest, "price must not be negative")
		return
	}
	itemID := uuid.NewString()
	err := h.catalog.Create(r.Context(), store.NewCatalogItem{
		ID:           itemID,
		UserID:       userID,
		AgencyID:     req.AgencyID,
		AgencyName:   req.AgencyName,
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Price:        req.Price,
		Category:     req.Category,
		Age:          req.Age,
		Height:       req.Height,
		BodyType:     req.BodyType,
		Country:      req.Country,
		Location:     req.Location,
		ImageURL:     req.ImageURL,
		AvatarURL:    req.AvatarURL,
		Images:       req.Images,
		WorkSchedule: req.WorkSchedule,
	})
	if err != nil {
		h.internalError(w, r, "unable to create catalog item", err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"success": true, "itemId": itemID})
}

// UpdateCatalogItem lets the owner change an item. Unknown items answer 403
// like foreign ones so ids cannot be probed.
func (h *Handler) UpdateCatalogItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req updateCatalogItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	owner, err := h.catalog.GetOwner(r.Context(), req.ItemID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != userID) {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	if err != nil {
		h.internalError(w, r, "unable to update catalog item", err)
		return
	}
	patch := store.CatalogPatch{IsActive: req.IsActive, Title: req.Title, Price: req.Price}
	if err := h.catalog.Update(r.Context(), req.ItemID, patch); err != nil {
		h.internalError(w, r, "unable to update catalog item", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
