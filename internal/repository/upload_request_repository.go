package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/models"
)

const uploadRequestColumns = `id, org_id, work_order_id, vendor_id, request_email, allowed_doc_types, token_hash,
       expires_at, status, max_files, max_total_bytes, message, created_by, created_at, updated_at,
       completed_at, revoked_at, revoked_by`

// UploadRequestRepository persists vendor upload requests.
type UploadRequestRepository struct {
	db *sqlx.DB
}

// NewUploadRequestRepository constructs the repository.
func NewUploadRequestRepository(db *sqlx.DB) *UploadRequestRepository {
	return &UploadRequestRepository{db: db}
}

// Create inserts a new request. Only the token hash is ever written.
func (r *UploadRequestRepository) Create(ctx context.Context, req *models.UploadRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}
	if req.Status == "" {
		req.Status = models.UploadRequestPending
	}
	const query = `INSERT INTO upload_requests
	(id, org_id, work_order_id, vendor_id, request_email, allowed_doc_types, token_hash, expires_at, status,
	 max_files, max_total_bytes, message, created_by, created_at, updated_at)
	VALUES (:id, :org_id, :work_order_id, :vendor_id, :request_email, :allowed_doc_types, :token_hash, :expires_at, :status,
	 :max_files, :max_total_bytes, :message, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	return nil
}

// GetByID loads a request regardless of organisation. Used by token validation.
func (r *UploadRequestRepository) GetByID(ctx context.Context, id string) (*models.UploadRequest, error) {
	query := `SELECT ` + uploadRequestColumns + ` FROM upload_requests WHERE id = $1`
	var req models.UploadRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// GetByOrg loads a request scoped to an organisation.
func (r *UploadRequestRepository) GetByOrg(ctx context.Context, orgID, id string) (*models.UploadRequest, error) {
	query := `SELECT ` + uploadRequestColumns + ` FROM upload_requests WHERE id = $1 AND org_id = $2`
	var req models.UploadRequest
	if err := r.db.GetContext(ctx, &req, query, id, orgID); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests of one organisation, newest first, with the total match count.
func (r *UploadRequestRepository) List(ctx context.Context, filter models.UploadRequestFilter) ([]models.UploadRequest, int, error) {
	args := []interface{}{filter.OrgID}
	conditions := []string{"org_id = $1"}
	if filter.WorkOrderID != "" {
		args = append(args, filter.WorkOrderID)
		conditions = append(conditions, fmt.Sprintf("work_order_id = $%d", len(args)))
	}
	if filter.VendorID != "" {
		args = append(args, filter.VendorID)
		conditions = append(conditions, fmt.Sprintf("vendor_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM upload_requests`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count upload requests: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + uploadRequestColumns + ` FROM upload_requests` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d OFFSET %d", limit, offset)

	var records []models.UploadRequest
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list upload requests: %w", err)
	}
	return records, total, nil
}

// MarkExpired flips an open, overdue request to expired. It reports whether the row changed.
func (r *UploadRequestRepository) MarkExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	const query = `UPDATE upload_requests SET status = 'expired', updated_at = $2
	WHERE id = $1 AND status IN ('pending', 'partially_uploaded') AND expires_at <= $2`
	res, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("expire upload request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check expired upload request rows: %w", err)
	}
	return affected > 0, nil
}

// MarkCompleted closes an open, unexpired request. It reports whether the row changed.
func (r *UploadRequestRepository) MarkCompleted(ctx context.Context, id string, now time.Time) (bool, error) {
	const query = `UPDATE upload_requests SET status = 'completed', completed_at = $2, updated_at = $2
	WHERE id = $1 AND status IN ('pending', 'partially_uploaded') AND expires_at > $2`
	res, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("complete upload request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check completed upload request rows: %w", err)
	}
	return affected > 0, nil
}

// RevokeResult describes the outcome of a revoke call.
type RevokeResult struct {
	Request        *models.UploadRequest
	PreviousStatus models.UploadRequestStatus
	Changed        bool
}

// Revoke locks the request, and if it is still open moves it to revoked stamping actor and time.
// Requests already in a terminal state are returned unchanged.
func (r *UploadRequestRepository) Revoke(ctx context.Context, orgID, id, actorID string, now time.Time) (result *RevokeResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin revoke transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var req models.UploadRequest
	lockQuery := `SELECT ` + uploadRequestColumns + ` FROM upload_requests WHERE id = $1 AND org_id = $2 FOR UPDATE`
	if err = tx.GetContext(ctx, &req, lockQuery, id, orgID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock upload request: %w", err)
	}

	result = &RevokeResult{Request: &req, PreviousStatus: req.Status}
	if req.Status.Open() {
		const updateQuery = `UPDATE upload_requests SET status = 'revoked', revoked_at = $2, revoked_by = $3, updated_at = $2 WHERE id = $1`
		if _, err = tx.ExecContext(ctx, updateQuery, id, now, actorID); err != nil {
			return nil, fmt.Errorf("revoke upload request: %w", err)
		}
		req.Status = models.UploadRequestRevoked
		req.RevokedAt = &now
		req.RevokedBy = &actorID
		req.UpdatedAt = now
		result.Changed = true
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit revoke: %w", err)
	}
	return result, nil
}

// ListOverdue returns open requests whose expiry has passed, oldest first.
func (r *UploadRequestRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]models.UploadRequest, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + uploadRequestColumns + ` FROM upload_requests
	WHERE status IN ('pending', 'partially_uploaded') AND expires_at <= $1
	ORDER BY expires_at ASC LIMIT $2`
	var records []models.UploadRequest
	if err := r.db.SelectContext(ctx, &records, query, now, limit); err != nil {
		return nil, fmt.Errorf("list overdue upload requests: %w", err)
	}
	return records, nil
}

// GetContext resolves the vendor name and work order title shown on the portal.
func (r *UploadRequestRepository) GetContext(ctx context.Context, req *models.UploadRequest) (*models.UploadRequestContext, error) {
	const query = `SELECT v.name AS vendor_name, w.title AS work_order_title
	FROM vendors v, work_orders w
	WHERE v.id = $1 AND w.id = $2 AND v.org_id = $3 AND w.org_id = $3`
	var info models.UploadRequestContext
	if err := r.db.GetContext(ctx, &info, query, req.VendorID, req.WorkOrderID, req.OrgID); err != nil {
		return nil, fmt.Errorf("load upload request context: %w", err)
	}
	return &info, nil
}
