package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"marketplace/internal/middleware"
	"marketplace/internal/store"
)

const (
	defaultServiceStatus   = "active"
	defaultProgramCurrency = "RUB"
)

type programRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description *string         `json:"description"`
	Unit        *string         `json:"unit"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
}

type createBusinessServiceRequest struct {
	Title       string           `json:"title" validate:"required"`
	Description *string          `json:"description"`
	CategoryID  *string          `json:"categoryId"`
	Images      []string         `json:"images"`
	Programs    []programRequest `json:"programs" validate:"dive"`
}

type updateBusinessServiceRequest struct {
	ServiceID string `json:"serviceId" validate:"required,uuid"`
	Status    string `json:"status" validate:"required"`
}

func (h *Handler) ListBusinessServices(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status == "" {
		status = defaultServiceStatus
	}
	services, err := h.services.List(r.Context(), status)
	if err != nil {
		h.internalError(w, r, "unable to load services", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"services": services})
}

// CreateBusinessService stores the service and its programs together.
func (h *Handler) CreateBusinessService(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createBusinessServiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	serviceID := uuid.NewString()
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		return h.createServiceTx(r.Context(), tx, userID, serviceID, req)
	})
	if err != nil {
		h.internalError(w, r, "unable to create service", err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"success": true, "serviceId": serviceID})
}

func (h *Handler) createServiceTx(ctx context.Context, tx store.Execer, userID, serviceID string, req createBusinessServiceRequest) error {
	err := h.services.Create(ctx, tx, store.NewBusinessService{
		ID:          serviceID,
		UserID:      userID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Images:      req.Images,
	})
	if err != nil {
		return err
	}
	for _, program := range req.Programs {
		currency := strings.ToUpper(strings.TrimSpace(program.Currency))
		if currency == "" {
			currency = defaultProgramCurrency
		}
		err := h.services.CreateProgram(ctx, tx, store.NewServiceProgram{
			ID:          uuid.NewString(),
			ServiceID:   serviceID,
			Name:        program.Name,
			Description: program.Description,
			Unit:        program.Unit,
			Price:       program.Price,
			Currency:    currency,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) UpdateBusinessService(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req updateBusinessServiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	owner, err := h.services.GetOwner(r.Context(), req.ServiceID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != userID) {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	if err != nil {
		h.internalError(w, r, "unable to update service", err)
		return
	}
	if err := h.services.UpdateStatus(r.Context(), req.ServiceID, req.Status); err != nil {
		h.internalError(w, r, "unable to update service", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
