package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/models"
)

const uploadFileColumns = `id, upload_request_id, org_id, work_order_id, vendor_id, doc_type, file_name, mime_type,
       size_bytes, storage_bucket, storage_path, status, sha256, document_id, uploader_ip, error_message,
       created_at, updated_at`

// QuotaCheck decides, under the request row lock, whether a new file may be reserved.
// existing is the request's current file set read inside the same transaction.
type QuotaCheck func(req *models.UploadRequest, existing []models.UploadFile) error

// UploadFileRepository persists file slots reserved against upload requests.
type UploadFileRepository struct {
	db *sqlx.DB
}

// NewUploadFileRepository constructs the repository.
func NewUploadFileRepository(db *sqlx.DB) *UploadFileRepository {
	return &UploadFileRepository{db: db}
}

// InsertWithinQuota locks the parent request, re-reads its files, runs check and inserts file
// in one transaction so concurrent reservations cannot overrun the quota. Errors returned by
// check are passed through unchanged.
func (r *UploadFileRepository) InsertWithinQuota(ctx context.Context, file *models.UploadFile, check QuotaCheck) (err error) {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if file.CreatedAt.IsZero() {
		file.CreatedAt = now
	}
	file.UpdatedAt = file.CreatedAt
	if file.Status == "" {
		file.Status = models.UploadFileQueued
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upload file transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var req models.UploadRequest
	lockQuery := `SELECT ` + uploadRequestColumns + ` FROM upload_requests WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &req, lockQuery, file.UploadRequestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("lock upload request: %w", err)
	}

	var existing []models.UploadFile
	listQuery := `SELECT ` + uploadFileColumns + ` FROM upload_files WHERE upload_request_id = $1`
	if err = tx.SelectContext(ctx, &existing, listQuery, file.UploadRequestID); err != nil {
		return fmt.Errorf("list upload files under lock: %w", err)
	}

	if err = check(&req, existing); err != nil {
		return err
	}

	const insertQuery = `INSERT INTO upload_files
	(id, upload_request_id, org_id, work_order_id, vendor_id, doc_type, file_name, mime_type, size_bytes,
	 storage_bucket, storage_path, status, uploader_ip, created_at, updated_at)
	VALUES (:id, :upload_request_id, :org_id, :work_order_id, :vendor_id, :doc_type, :file_name, :mime_type, :size_bytes,
	 :storage_bucket, :storage_path, :status, :uploader_ip, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, file); err != nil {
		return fmt.Errorf("insert upload file: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit upload file: %w", err)
	}
	return nil
}

// ListByRequest returns every file of a request, oldest first.
func (r *UploadFileRepository) ListByRequest(ctx context.Context, requestID string) ([]models.UploadFile, error) {
	query := `SELECT ` + uploadFileColumns + ` FROM upload_files WHERE upload_request_id = $1 ORDER BY created_at ASC`
	var files []models.UploadFile
	if err := r.db.SelectContext(ctx, &files, query, requestID); err != nil {
		return nil, fmt.Errorf("list upload files: %w", err)
	}
	return files, nil
}

// GetByID loads a file only when it belongs to requestID.
func (r *UploadFileRepository) GetByID(ctx context.Context, requestID, fileID string) (*models.UploadFile, error) {
	query := `SELECT ` + uploadFileColumns + ` FROM upload_files WHERE id = $1 AND upload_request_id = $2`
	var file models.UploadFile
	if err := r.db.GetContext(ctx, &file, query, fileID, requestID); err != nil {
		return nil, err
	}
	return &file, nil
}

// MarkFailed retires a file that will never be uploaded so it stops counting toward quota.
func (r *UploadFileRepository) MarkFailed(ctx context.Context, fileID, reason string, now time.Time) error {
	const query = `UPDATE upload_files SET status = 'failed', error_message = $2, updated_at = $3
	WHERE id = $1 AND status IN ('queued', 'uploading')`
	res, err := r.db.ExecContext(ctx, query, fileID, reason, now)
	if err != nil {
		return fmt.Errorf("mark upload file failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check failed upload file rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountStored returns how many files of the request reached storage.
func (r *UploadFileRepository) CountStored(ctx context.Context, requestID string) (int, error) {
	const query = `SELECT COUNT(*) FROM upload_files WHERE upload_request_id = $1 AND status = 'stored'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, requestID); err != nil {
		return 0, fmt.Errorf("count stored upload files: %w", err)
	}
	return count, nil
}
