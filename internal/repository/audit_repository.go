package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/models"
)

// AuditRepository appends audit events. Rows are never updated or deleted.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends one event.
func (r *AuditRepository) Insert(ctx context.Context, event *models.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_events
	(id, org_id, event_type, entity_type, entity_id, actor_id, metadata, ip_address, created_at)
	VALUES (:id, :org_id, :event_type, :entity_type, :entity_id, :actor_id, :metadata, :ip_address, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByEntity returns the trail of one entity in chronological order.
func (r *AuditRepository) ListByEntity(ctx context.Context, orgID, entityType, entityID string) ([]models.AuditEvent, error) {
	const query = `SELECT id, org_id, event_type, entity_type, entity_id, actor_id, metadata, ip_address, created_at
	FROM audit_events WHERE org_id = $1 AND entity_type = $2 AND entity_id = $3 ORDER BY created_at ASC`
	var events []models.AuditEvent
	if err := r.db.SelectContext(ctx, &events, query, orgID, entityType, entityID); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
