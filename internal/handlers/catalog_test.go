package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/jmoiron/sqlx"

	"marketplace/internal/models"
	"marketplace/internal/store"
)

func TestListCatalogFilters(t *testing.T) {
	var got store.CatalogFilter
	h := newTestHandler(Deps{Catalog: stubCatalogStore{
		listFn: func(_ context.Context, filter store.CatalogFilter) ([]models.CatalogItem, error) {
			got = filter
			return []models.CatalogItem{{ID: "item-1", Title: "Evening"}}, nil
		},
	}})
	rr := serve(t, h, http.MethodGet, "/catalog?location=Mos&category=vip", nil, "", "")
	expectStatus(t, rr, http.StatusOK)
	if got.Location != "Mos" || got.Category != "vip" || !got.Active {
		t.Fatalf("unexpected filter: %+v", got)
	}
	items, _ := decodeBody(t, rr)["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("unexpected items: %s", rr.Body.String())
	}

	serve(t, h, http.MethodGet, "/catalog?active=false", nil, "", "")
	if got.Active {
		t.Fatalf("active=false must be honoured")
	}
}

func TestCreateCatalogItemOwnedByCaller(t *testing.T) {
	var created store.NewCatalogItem
	h := newTestHandler(Deps{Catalog: stubCatalogStore{
		createFn: func(_ context.Context, item store.NewCatalogItem) error {
			created = item
			return nil
		},
	}})
	rr := serve(t, h, http.MethodPost, "/catalog", map[string]any{
		"title": "Evening", "price": "150.50", "userId": "someone-else", "images": []string{"a.png"},
	}, "user-1", models.RoleBusiness)
	expectStatus(t, rr, http.StatusCreated)
	if created.UserID != "user-1" || created.Title != "Evening" || created.Price.String() != "150.5" {
		t.Fatalf("unexpected item: %+v", created)
	}
	if decodeBody(t, rr)["itemId"] != created.ID {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestCreateCatalogItemRequiresTitle(t *testing.T) {
	h := newTestHandler(Deps{})
	rr := serve(t, h, http.MethodPost, "/catalog", map[string]any{"title": "  "}, "user-1", models.RoleBusiness)
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestUpdateCatalogItemNonOwnerForbidden(t *testing.T) {
	updates := 0
	h := newTestHandler(Deps{Catalog: stubCatalogStore{
		getOwnerFn: func(_ context.Context, itemID string) (string, error) {
			if itemID == "9b0e5d44-7a3c-4f12-8c6e-2e5f1a7d9b02" {
				return "", sql.ErrNoRows
			}
			return "owner-1", nil
		},
		updateFn: func(context.Context, string, store.CatalogPatch) error {
			updates++
			return nil
		},
	}})
	rr := serve(t, h, http.MethodPut, "/catalog", map[string]any{"itemId": "3f1c2a9e-0b7d-4c55-9e21-6d8a4b1f0c01", "title": "mine now"}, "intruder", models.RoleBusiness)
	expectStatus(t, rr, http.StatusForbidden)
	rr = serve(t, h, http.MethodPut, "/catalog", map[string]any{"itemId": "9b0e5d44-7a3c-4f12-8c6e-2e5f1a7d9b02", "title": "x"}, "intruder", models.RoleBusiness)
	expectStatus(t, rr, http.StatusForbidden)
	if updates != 0 {
		t.Fatalf("forbidden update must not write, got %d", updates)
	}

	rr = serve(t, h, http.MethodPut, "/catalog", map[string]any{"itemId": "3f1c2a9e-0b7d-4c55-9e21-6d8a4b1f0c01", "isActive": false}, "owner-1", models.RoleBusiness)
	expectStatus(t, rr, http.StatusOK)
	if updates != 1 {
		t.Fatalf("owner update must write once, got %d", updates)
	}
}

func TestUpdateCatalogItemMissingID(t *testing.T) {
	h := newTestHandler(Deps{})
	rr := serve(t, h, http.MethodPut, "/catalog", map[string]any{"title": "x"}, "user-1", models.RoleBusiness)
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestUpdateRejectsMalformedIDs(t *testing.T) {
	lookups := 0
	h := newTestHandler(Deps{
		Catalog: stubCatalogStore{getOwnerFn: func(context.Context, string) (string, error) {
			lookups++
			return "user-1", nil
		}},
		Services: stubBusinessServiceStore{getOwnerFn: func(context.Context, string) (string, error) {
			lookups++
			return "user-1", nil
		}},
	})
	rr := serve(t, h, http.MethodPut, "/catalog", map[string]any{"itemId": "abc", "title": "x"}, "user-1", models.RoleBusiness)
	expectStatus(t, rr, http.StatusBadRequest)
	rr = serve(t, h, http.MethodPut, "/business-services", map[string]string{"serviceId": "abc", "status": "inactive"}, "user-1", models.RoleBusiness)
	expectStatus(t, rr, http.StatusBadRequest)
	if lookups != 0 {
		t.Fatalf("malformed ids must not reach the store, got %d lookups", lookups)
	}
}

func TestCreateBusinessServiceWithPrograms(t *testing.T) {
	var programs []store.NewServiceProgram
	var service store.NewBusinessService
	txCalls := 0
	h := newTestHandler(Deps{
		TxRunner: fakeTxRunner{withTxFn: func(_ context.Context, fn func(*sqlx.Tx) error) error {
			txCalls++
			return fn(nil)
		}},
		Services: stubBusinessServiceStore{
			createFn: func(_ context.Context, _ store.Execer, s store.NewBusinessService) error {
				service = s
				return nil
			},
			createProgramFn: func(_ context.Context, _ store.Execer, p store.NewServiceProgram) error {
				programs = append(programs, p)
				return nil
			},
		},
	})
	rr := serve(t, h, http.MethodPost, "/business-services", map[string]any{
		"title": "Massage",
		"programs": []map[string]any{
			{"name": "Classic", "price": 3000},
			{"name": "Deep", "price": "45.5", "currency": "usd"},
		},
	}, "biz-1", models.RoleBusiness)
	expectStatus(t, rr, http.StatusCreated)
	if txCalls != 1 || service.UserID != "biz-1" || len(programs) != 2 {
		t.Fatalf("unexpected writes: tx=%d service=%+v programs=%d", txCalls, service, len(programs))
	}
	if programs[0].Currency != "RUB" || programs[1].Currency != "USD" || programs[0].ServiceID != service.ID {
		t.Fatalf("unexpected programs: %+v", programs)
	}
}

func TestCreateBusinessServiceProgramFailure(t *testing.T) {
	h := newTestHandler(Deps{Services: stubBusinessServiceStore{
		createProgramFn: func(context.Context, store.Execer, store.NewServiceProgram) error {
			return errors.New("boom")
		},
	}})
	rr := serve(t, h, http.MethodPost, "/business-services", map[string]any{
		"title": "Massage", "programs": []map[string]any{{"name": "Classic", "price": 1}},
	}, "biz-1", models.RoleBusiness)
	expectStatus(t, rr, http.StatusInternalServerError)
}

func TestUpdateBusinessServiceOwnership(t *testing.T) {
	updated := ""
	h := newTestHandler(Deps{Services: stubBusinessServiceStore{
		getOwnerFn: func(context.Context, string) (string, error) { return "biz-1", nil },
		updateStatusFn: func(_ context.Context, _ string, status string) error {
			updated = status
			return nil
		},
	}})
	rr := serve(t, h, http.MethodPut, "/business-services", map[string]string{"serviceId": "5a7d3e10-2c4b-4d8f-a1e6-0f9b8c7d6e03", "status": "inactive"}, "biz-2", models.RoleBusiness)
	expectStatus(t, rr, http.StatusForbidden)
	if updated != "" {
		t.Fatalf("non-owner must not update")
	}
	rr = serve(t, h, http.MethodPut, "/business-services", map[string]string{"serviceId": "5a7d3e10-2c4b-4d8f-a1e6-0f9b8c7d6e03", "status": "inactive"}, "biz-1", models.RoleBusiness)
	expectStatus(t, rr, http.StatusOK)
	if updated != "inactive" {
		t.Fatalf("unexpected status: %q", updated)
	}
}

func TestListBusinessServicesDefaultsToActive(t *testing.T) {
	var got string
	h := newTestHandler(Deps{Services: stubBusinessServiceStore{
		listFn: func(_ context.Context, status string) ([]models.BusinessService, error) {
			got = status
			return []models.BusinessService{}, nil
		},
	}})
	expectStatus(t, serve(t, h, http.MethodGet, "/business-services", nil, "", ""), http.StatusOK)
	if got != "active" {
		t.Fatalf("unexpected status filter: %q", got)
	}
}
