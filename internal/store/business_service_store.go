package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"marketplace/internal/models"
)

const serviceListLimit = 100

type BusinessServiceStore struct {
	db DB
}

type serviceRow struct {
	models.BusinessService
	ProgramsJSON []byte `db:"programs"`
}

type NewBusinessService struct {
	ID          string
	UserID      string
	Title       string
	Description *string
	CategoryID  *string
	Images      []string
}

type NewServiceProgram struct {
	ID          string
	ServiceID   string
	Name        string
	Description *string
	Unit        *string
	Price       decimal.Decimal
	Currency    string
}

func NewBusinessServiceStore(db DB) *BusinessServiceStore {
	return &BusinessServiceStore{db: db}
}

// List returns services with the given status, newest first, each with its
// programs folded in.
func (s *BusinessServiceStore) List(ctx context.Context, status string) ([]models.BusinessService, error) {
	var rows []serviceRow
	err := s.db.SelectContext(ctx, &rows, fmt.Sprintf(`
		SELECT s.id, s.user_id, s.title, s.description, s.category_id,
		       COALESCE(s.images, '{}') AS images, s.status, s.created_at,
		       COALESCE(
		           json_agg(json_build_object(
		               'id', p.id, 'name', p.name, 'description', p.description,
		               'unit', p.unit, 'price', p.price, 'currency', p.currency
		           )) FILTER (WHERE p.id IS NOT NULL),
		           '[]'
		       ) AS programs
		FROM business_services s
		LEFT JOIN service_programs p ON p.service_id = s.id
		WHERE s.status = $1
		GROUP BY s.id
		ORDER BY s.created_at DESC
		LIMIT %d
	`, serviceListLimit), status)
	if err != nil {
		return nil, err
	}

	services := make([]models.BusinessService, 0, len(rows))
	for _, row := range rows {
		service := row.BusinessService
		service.Programs = []models.ServiceProgram{}
		if len(row.ProgramsJSON) > 0 {
			if err := json.Unmarshal(row.ProgramsJSON, &service.Programs); err != nil {
				return nil, fmt.Errorf("decode programs of service %s: %w", service.ID, err)
			}
		}
		services = append(services, service)
	}
	return services, nil
}

func (s *BusinessServiceStore) Create(ctx context.Context, tx Execer, service NewBusinessService) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO business_services (id, user_id, title, description, category_id, images, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'active')
	`, service.ID, service.UserID, service.Title, service.Description, service.CategoryID, pq.StringArray(service.Images))
	return err
}

func (s *BusinessServiceStore) CreateProgram(ctx context.Context, tx Execer, program NewServiceProgram) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO service_programs (id, service_id, name, description, unit, price, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, program.ID, program.ServiceID, program.Name, program.Description, program.Unit, program.Price, program.Currency)
	return err
}

func (s *BusinessServiceStore) GetOwner(ctx context.Context, serviceID string) (string, error) {
	var owner string
	err := s.db.GetContext(ctx, &owner, `SELECT user_id FROM business_services WHERE id = $1`, serviceID)
	return owner, err
}

func (s *BusinessServiceStore) UpdateStatus(ctx context.Context, serviceID, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE business_services
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, serviceID)
	return err
}
