package store

import (
	"context"
	"encoding/json"
	"time"
)

type AuditEntry struct {
	ID          string          `db:"id" json:"id"`
	ActorUserID *string         `db:"actor_user_id" json:"actor_user_id"`
	Action      string          `db:"action" json:"action"`
	EntityType  string          `db:"entity_type" json:"entity_type"`
	EntityID    string          `db:"entity_id" json:"entity_id"`
	Data        json.RawMessage `db:"data" json:"data"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// AuditStore records privileged actions: account unlocks, password resets
// and credential letters.
type AuditStore struct {
	db DB
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

// Log writes through tx so the entry commits with the action it describes.
// actorID is empty for self-service actions.
func (s *AuditStore) Log(ctx context.Context, tx Execer, actorID, action, entityType, entityID string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var actor *string
	if actorID != "" {
		actor = &actorID
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_user_id, action, entity_type, entity_id, data)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
	`, actor, action, entityType, entityID, payload)
	return err
}

func (s *AuditStore) List(ctx context.Context, limit, offset int) ([]AuditEntry, error) {
	entries := []AuditEntry{}
	err := s.db.SelectContext(ctx, &entries, `
		SELECT id, actor_user_id, action, entity_type, entity_id, COALESCE(data, '{}'::jsonb) AS data, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
