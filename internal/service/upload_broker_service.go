package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/dto"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/models"
	appErrors "github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/errors"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/objectstore"
)

const maxStoredNameLength = 128

type requestAuthorizer interface {
	Validate(ctx context.Context, requestID, rawSecret string) (*models.UploadRequest, error)
}

// UploadBrokerService reserves file slots and hands out scoped write URLs.
type UploadBrokerService struct {
	requests  requestAuthorizer
	files     uploadFileStore
	store     objectstore.Store
	quota     *QuotaEnforcer
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	urlTTL    time.Duration
	now       func() time.Time
}

// NewUploadBrokerService wires the broker.
func NewUploadBrokerService(requests requestAuthorizer, files uploadFileStore, store objectstore.Store, quota *QuotaEnforcer, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, urlTTL time.Duration, logger *zap.Logger) *UploadBrokerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if quota == nil {
		quota = NewQuotaEnforcer(0, nil)
	}
	if urlTTL <= 0 {
		urlTTL = 10 * time.Minute
	}
	return &UploadBrokerService{
		requests:  requests,
		files:     files,
		store:     store,
		quota:     quota,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		urlTTL:    urlTTL,
		now:       time.Now,
	}
}

// CreateSignedUploadURL checks the proposal against the request quota under lock, records a
// queued file and returns a write URL for exactly that object.
func (s *UploadBrokerService) CreateSignedUploadURL(ctx context.Context, requestID, rawSecret string, meta dto.FileMeta, ip string) (*dto.SignedUploadResponse, error) {
	req, err := s.requests.Validate(ctx, requestID, rawSecret)
	if err != nil {
		return nil, err
	}
	meta.DocType = strings.ToLower(strings.TrimSpace(meta.DocType))
	meta.FileName = strings.TrimSpace(meta.FileName)
	meta.MimeType = normalizeMIME(meta.MimeType)
	if err := s.validator.Struct(meta); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	now := s.now().UTC()
	fileID := uuid.NewString()
	file := &models.UploadFile{
		ID:              fileID,
		UploadRequestID: req.ID,
		OrgID:           req.OrgID,
		WorkOrderID:     req.WorkOrderID,
		VendorID:        req.VendorID,
		DocType:         meta.DocType,
		FileName:        meta.FileName,
		MimeType:        meta.MimeType,
		SizeBytes:       meta.SizeBytes,
		StorageBucket:   s.store.Bucket(),
		StoragePath:     storagePath(req, fileID, meta.FileName),
		Status:          models.UploadFileQueued,
		UploaderIP:      ip,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.files.InsertWithinQuota(ctx, file, func(locked *models.UploadRequest, existing []models.UploadFile) error {
		if !locked.Status.Open() {
			return appErrors.ErrRequestClosed
		}
		return s.quota.Check(locked, existing, meta)
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			if appErr.Code != appErrors.ErrRequestClosed.Code && appErr.Code != appErrors.ErrValidation.Code {
				s.metrics.QuotaRejected(appErr.Code)
			}
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve upload")
	}

	start := time.Now()
	presigned, err := s.store.PresignPut(ctx, file.StoragePath, file.MimeType, file.SizeBytes, s.urlTTL)
	s.metrics.ObserveObjectStore("presign_put", err, time.Since(start))
	if err != nil {
		s.metrics.UploadURLIssued(false)
		s.logger.Error("failed to presign upload",
			zap.String("upload_request_id", req.ID),
			zap.String("upload_file_id", file.ID),
			zap.Error(err),
		)
		reason := "presign failed: " + err.Error()
		if markErr := s.files.MarkFailed(ctx, file.ID, reason, s.now().UTC()); markErr != nil {
			s.logger.Warn("failed to mark upload failed", zap.String("upload_file_id", file.ID), zap.Error(markErr))
		}
		s.audit.Record(ctx, newAuditEvent(req.OrgID, models.AuditFileFailed, models.AuditEntityUploadFile, file.ID,
			nil, optionalString(ip), map[string]string{
				"upload_request_id": req.ID,
				"reason":            "presign_failed",
			}))
		return nil, appErrors.Infrastructure(err, appErrors.ErrUploadPreparationFailed)
	}

	s.metrics.UploadURLIssued(true)
	s.audit.Record(ctx, newAuditEvent(req.OrgID, models.AuditFileURLIssued, models.AuditEntityUploadFile, file.ID,
		nil, optionalString(ip), map[string]string{
			"upload_request_id": req.ID,
			"doc_type":          file.DocType,
			"size_bytes":        strconv.FormatInt(file.SizeBytes, 10),
			"mime_type":         file.MimeType,
		}))

	return &dto.SignedUploadResponse{
		SignedURL:    presigned.URL,
		Method:       presigned.Method,
		Headers:      presigned.Headers,
		UploadFileID: file.ID,
		StoragePath:  file.StoragePath,
		ExpiresAt:    presigned.ExpiresAt,
	}, nil
}

func storagePath(req *models.UploadRequest, fileID, fileName string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s/%s", req.OrgID, req.WorkOrderID, req.VendorID, req.ID, fileID, sanitizeFileName(fileName))
}

// sanitizeFileName keeps a single path segment of letters, digits, dot, dash and underscore.
func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	cleaned := strings.TrimLeft(b.String(), ".")
	if len(cleaned) > maxStoredNameLength {
		cleaned = cleaned[len(cleaned)-maxStoredNameLength:]
	}
	if cleaned == "" || strings.Trim(cleaned, "_") == "" {
		return "file"
	}
	return cleaned
}
