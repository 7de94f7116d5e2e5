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

// Finalize outcomes that are not plain not-found.
var (
	ErrRequestNotOpen  = errors.New("upload request is not open")
	ErrUploadFileState = errors.New("upload file cannot be finalized")
)

const documentColumns = `id, org_id, file_name, mime_type, size_bytes, storage_bucket, storage_path, sha256,
       source_upload_file_id, created_at`

// FinalizeParams identifies the file to promote and the content metadata to record.
type FinalizeParams struct {
	RequestID    string
	UploadFileID string
	SHA256       *string
	Now          time.Time
}

// FinalizeResult is the document backing the file and whether this call created it.
type FinalizeResult struct {
	Document *models.Document
	File     *models.UploadFile
	Created  bool
}

// DocumentRepository persists finalized documents and their links.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Finalize promotes a queued file into a document linked to its work order and vendor, marks
// the file stored and moves a pending request to partially_uploaded, all in one transaction.
// A file that is already stored yields its existing document with Created=false.
func (r *DocumentRepository) Finalize(ctx context.Context, params FinalizeParams) (result *FinalizeResult, err error) {
	now := params.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin finalize transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var status models.UploadRequestStatus
	if err = tx.GetContext(ctx, &status, `SELECT status FROM upload_requests WHERE id = $1 FOR UPDATE`, params.RequestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock upload request: %w", err)
	}

	var file models.UploadFile
	fileQuery := `SELECT ` + uploadFileColumns + ` FROM upload_files WHERE id = $1 AND upload_request_id = $2 FOR UPDATE`
	if err = tx.GetContext(ctx, &file, fileQuery, params.UploadFileID, params.RequestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock upload file: %w", err)
	}

	if file.Status == models.UploadFileStored && file.DocumentID != nil {
		var doc models.Document
		if err = tx.GetContext(ctx, &doc, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, *file.DocumentID); err != nil {
			return nil, fmt.Errorf("load finalized document: %w", err)
		}
		if err = tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit finalize: %w", err)
		}
		return &FinalizeResult{Document: &doc, File: &file}, nil
	}
	if file.Status == models.UploadFileFailed {
		err = ErrUploadFileState
		return nil, err
	}
	if !status.Open() {
		err = ErrRequestNotOpen
		return nil, err
	}

	sha := file.SHA256
	if params.SHA256 != nil {
		sha = params.SHA256
	}
	doc := models.Document{
		ID:                 uuid.NewString(),
		OrgID:              file.OrgID,
		FileName:           file.FileName,
		MimeType:           file.MimeType,
		SizeBytes:          file.SizeBytes,
		StorageBucket:      file.StorageBucket,
		StoragePath:        file.StoragePath,
		SHA256:             sha,
		SourceUploadFileID: file.ID,
		CreatedAt:          now,
	}
	const insertDocument = `INSERT INTO documents
	(id, org_id, file_name, mime_type, size_bytes, storage_bucket, storage_path, sha256, source_upload_file_id, created_at)
	VALUES (:id, :org_id, :file_name, :mime_type, :size_bytes, :storage_bucket, :storage_path, :sha256, :source_upload_file_id, :created_at)
	ON CONFLICT (source_upload_file_id) DO NOTHING`
	res, err := tx.NamedExecContext(ctx, insertDocument, &doc)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check document rows: %w", err)
	}
	created := affected > 0
	if !created {
		if err = tx.GetContext(ctx, &doc, `SELECT `+documentColumns+` FROM documents WHERE source_upload_file_id = $1`, file.ID); err != nil {
			return nil, fmt.Errorf("load conflicting document: %w", err)
		}
	}

	const linkWorkOrder = `INSERT INTO work_order_documents (id, org_id, work_order_id, document_id, doc_type, created_at)
	VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (work_order_id, document_id) DO NOTHING`
	if _, err = tx.ExecContext(ctx, linkWorkOrder, uuid.NewString(), file.OrgID, file.WorkOrderID, doc.ID, file.DocType, now); err != nil {
		return nil, fmt.Errorf("link work order document: %w", err)
	}
	const linkVendor = `INSERT INTO vendor_documents (id, org_id, vendor_id, document_id, doc_type, created_at)
	VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (vendor_id, document_id) DO NOTHING`
	if _, err = tx.ExecContext(ctx, linkVendor, uuid.NewString(), file.OrgID, file.VendorID, doc.ID, file.DocType, now); err != nil {
		return nil, fmt.Errorf("link vendor document: %w", err)
	}

	const markStored = `UPDATE upload_files SET status = 'stored', document_id = $2, sha256 = $3, error_message = NULL, updated_at = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, markStored, file.ID, doc.ID, sha, now); err != nil {
		return nil, fmt.Errorf("mark upload file stored: %w", err)
	}
	const advanceRequest = `UPDATE upload_requests SET status = 'partially_uploaded', updated_at = $2 WHERE id = $1 AND status = 'pending'`
	if _, err = tx.ExecContext(ctx, advanceRequest, params.RequestID, now); err != nil {
		return nil, fmt.Errorf("advance upload request: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit finalize: %w", err)
	}

	file.Status = models.UploadFileStored
	file.DocumentID = &doc.ID
	file.SHA256 = sha
	file.UpdatedAt = now
	return &FinalizeResult{Document: &doc, File: &file, Created: created}, nil
}

// GetByID loads a document.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &doc, nil
}
