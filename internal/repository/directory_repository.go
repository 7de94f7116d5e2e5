package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// DirectoryRepository answers existence questions about work orders and vendors
// owned by the procurement service.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository constructs the repository.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// WorkOrderExists reports whether the work order belongs to the organisation.
func (r *DirectoryRepository) WorkOrderExists(ctx context.Context, orgID, workOrderID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM work_orders WHERE id = $1 AND org_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, workOrderID, orgID); err != nil {
		return false, fmt.Errorf("check work order: %w", err)
	}
	return exists, nil
}

// VendorExists reports whether the vendor belongs to the organisation.
func (r *DirectoryRepository) VendorExists(ctx context.Context, orgID, vendorID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM vendors WHERE id = $1 AND org_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, vendorID, orgID); err != nil {
		return false, fmt.Errorf("check vendor: %w", err)
	}
	return exists, nil
}

// Ping verifies the database is reachable.
func (r *DirectoryRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
