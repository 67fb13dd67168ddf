package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"marketplace/internal/models"
)

const catalogListLimit = 100

type CatalogStore struct {
	db DB
}

type CatalogFilter struct {
	Location string
	Category string
	Active   bool
}

type NewCatalogItem struct {
	ID           string
	UserID       string
	AgencyID     *string
	AgencyName   *string
	Title        string
	Description  *string
	Price        *decimal.Decimal
	Category     *string
	Age          *int
	Height       *int
	BodyType     *string
	Country      *string
	Location     *string
	ImageURL     *string
	AvatarURL    *string
	Images       []string
	WorkSchedule json.RawMessage
}

// CatalogPatch holds the fields an owner may change; nil means unchanged.
type CatalogPatch struct {
	IsActive *bool
	Title    *string
	Price    *decimal.Decimal
}

func NewCatalogStore(db DB) *CatalogStore {
	return &CatalogStore{db: db}
}

func (s *CatalogStore) List(ctx context.Context, filter CatalogFilter) ([]models.CatalogItem, error) {
	query := `
		SELECT id, user_id, agency_id, agency_name, title, description, COALESCE(price, 0) AS price,
		       category, age, height, body_type, country, location, image_url, avatar_url,
		       COALESCE(images, '{}') AS images, is_active, is_verified, work_schedule,
		       views_count, bookings_count, COALESCE(rating, 0) AS rating, created_at, updated_at
		FROM catalog_items
		WHERE is_active = $1`
	args := []any{filter.Active}
	if filter.Location != "" {
		args = append(args, "%"+filter.Location+"%")
		query += fmt.Sprintf(" AND location ILIKE $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", catalogListLimit)

	items := []models.CatalogItem{}
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *CatalogStore) Create(ctx context.Context, item NewCatalogItem) error {
	var schedule any
	if len(item.WorkSchedule) > 0 {
		schedule = []byte(item.WorkSchedule)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO catalog_items (
			id, user_id, agency_id, agency_name, title, description, price, category, age, height,
			body_type, country, location, image_url, avatar_url, images, work_schedule, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, TRUE)
	`, item.ID, item.UserID, item.AgencyID, item.AgencyName, item.Title, item.Description, item.Price,
		item.Category, item.Age, item.Height, item.BodyType, item.Country, item.Location, item.ImageURL,
		item.AvatarURL, pq.StringArray(item.Images), schedule)
	return err
}

func (s *CatalogStore) GetOwner(ctx context.Context, itemID string) (string, error) {
	var owner string
	err := s.db.GetContext(ctx, &owner, `SELECT user_id FROM catalog_items WHERE id = $1`, itemID)
	return owner, err
}

func (s *CatalogStore) Update(ctx context.Context, itemID string, patch CatalogPatch) error {
	sets := []string{}
	args := []any{}
	if patch.IsActive != nil {
		args = append(args, *patch.IsActive)
		sets = append(sets, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if patch.Title != nil {
		args = append(args, *patch.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if patch.Price != nil {
		args = append(args, *patch.Price)
		sets = append(sets, fmt.Sprintf("price = $%d", len(args)))
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, itemID)
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE catalog_items SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args)),
		args...)
	return err
}
