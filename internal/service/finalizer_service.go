package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/dto"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/models"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/repository"
	appErrors "github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/errors"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/objectstore"
)

type documentFinalizer interface {
	Finalize(ctx context.Context, params repository.FinalizeParams) (*repository.FinalizeResult, error)
}

// FinalizerService promotes uploaded objects into documents.
type FinalizerService struct {
	requests  requestAuthorizer
	files     uploadFileStore
	documents documentFinalizer
	store     objectstore.Store
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewFinalizerService wires the finalizer.
func NewFinalizerService(requests requestAuthorizer, files uploadFileStore, documents documentFinalizer, store objectstore.Store, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *FinalizerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinalizerService{
		requests:  requests,
		files:     files,
		documents: documents,
		store:     store,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// FinalizeUpload turns a queued file whose object exists into a linked document. Replays for a
// stored file return the same document.
func (s *FinalizerService) FinalizeUpload(ctx context.Context, requestID, rawSecret, uploadFileID string, body dto.FinalizeUploadRequest, ip string) (*dto.FinalizeUploadResponse, error) {
	req, err := s.requests.Validate(ctx, requestID, rawSecret)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(body); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if body.SHA256 != nil {
		normalized := strings.ToLower(*body.SHA256)
		body.SHA256 = &normalized
	}

	file, err := s.files.GetByID(ctx, req.ID, uploadFileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrFileNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load upload")
	}
	if file.Status == models.UploadFileFailed {
		return nil, appErrors.ErrFileNotFound
	}

	if file.Status != models.UploadFileStored {
		if err := s.verifyObject(ctx, req, file, body, ip); err != nil {
			return nil, err
		}
	}

	result, err := s.documents.Finalize(ctx, repository.FinalizeParams{
		RequestID:    req.ID,
		UploadFileID: file.ID,
		SHA256:       body.SHA256,
		Now:          s.now().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows), errors.Is(err, repository.ErrUploadFileState):
			return nil, appErrors.ErrFileNotFound
		case errors.Is(err, repository.ErrRequestNotOpen):
			return nil, appErrors.ErrRequestClosed
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize upload")
		}
	}

	if !result.Created && conflictingDigest(body.SHA256, result.Document.SHA256) {
		return nil, appErrors.Clone(appErrors.ErrFileNotFound, "file was already finalized with different content")
	}

	s.metrics.FileFinalized(result.Created, result.Document.SizeBytes)
	if result.Created {
		s.audit.Record(ctx, newAuditEvent(req.OrgID, models.AuditFileUploaded, models.AuditEntityUploadFile, file.ID,
			nil, optionalString(ip), map[string]string{
				"upload_request_id": req.ID,
				"document_id":       result.Document.ID,
				"doc_type":          file.DocType,
				"size_bytes":        strconv.FormatInt(result.Document.SizeBytes, 10),
			}))
	}

	return &dto.FinalizeUploadResponse{
		UploadFileID: file.ID,
		DocumentID:   result.Document.ID,
		Status:       models.UploadFileStored,
		Duplicate:    !result.Created,
	}, nil
}

// verifyObject checks that the object the vendor was told to write exists with the declared size.
func (s *FinalizerService) verifyObject(ctx context.Context, req *models.UploadRequest, file *models.UploadFile, body dto.FinalizeUploadRequest, ip string) error {
	if body.SizeBytes != nil && *body.SizeBytes != file.SizeBytes {
		return appErrors.ErrSizeMismatch
	}
	if s.store == nil {
		return nil
	}

	start := time.Now()
	info, err := s.store.Stat(ctx, file.StoragePath)
	s.metrics.ObserveObjectStore("stat", err, time.Since(start))
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) {
			return appErrors.Infrastructure(err, appErrors.ErrUploadNotInStorage)
		}
		s.logger.Error("failed to stat uploaded object",
			zap.String("upload_request_id", req.ID),
			zap.String("upload_file_id", file.ID),
			zap.Error(err),
		)
		return appErrors.Infrastructure(err, appErrors.ErrStorageUnavailable)
	}
	if info.Size != file.SizeBytes {
		s.logger.Warn("uploaded object size differs from reservation",
			zap.String("upload_file_id", file.ID),
			zap.Int64("declared", file.SizeBytes),
			zap.Int64("stored", info.Size),
		)
		if markErr := s.files.MarkFailed(ctx, file.ID, "size mismatch: stored "+strconv.FormatInt(info.Size, 10), s.now().UTC()); markErr != nil && !errors.Is(markErr, sql.ErrNoRows) {
			s.logger.Warn("failed to mark upload failed", zap.String("upload_file_id", file.ID), zap.Error(markErr))
		}
		s.audit.Record(ctx, newAuditEvent(req.OrgID, models.AuditFileFailed, models.AuditEntityUploadFile, file.ID,
			nil, optionalString(ip), map[string]string{
				"upload_request_id": req.ID,
				"reason":            "size_mismatch",
			}))
		return appErrors.ErrSizeMismatch
	}
	return nil
}

func conflictingDigest(claimed, stored *string) bool {
	if claimed == nil || stored == nil {
		return false
	}
	return !strings.EqualFold(*claimed, *stored)
}
