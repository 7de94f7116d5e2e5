package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/dto"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/models"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/repository"
	appErrors "github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/errors"
)

// dummyTokenHash is compared against when the request id is unknown so that
// unknown ids and wrong secrets cost the same.
var dummyTokenHash = strings.Repeat("0", 64)

const sweepBatchSize = 100

type uploadRequestStore interface {
	Create(ctx context.Context, req *models.UploadRequest) error
	GetByID(ctx context.Context, id string) (*models.UploadRequest, error)
	GetByOrg(ctx context.Context, orgID, id string) (*models.UploadRequest, error)
	List(ctx context.Context, filter models.UploadRequestFilter) ([]models.UploadRequest, int, error)
	MarkExpired(ctx context.Context, id string, now time.Time) (bool, error)
	MarkCompleted(ctx context.Context, id string, now time.Time) (bool, error)
	Revoke(ctx context.Context, orgID, id, actorID string, now time.Time) (*repository.RevokeResult, error)
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]models.UploadRequest, error)
	GetContext(ctx context.Context, req *models.UploadRequest) (*models.UploadRequestContext, error)
}

type uploadFileStore interface {
	InsertWithinQuota(ctx context.Context, file *models.UploadFile, check repository.QuotaCheck) error
	ListByRequest(ctx context.Context, requestID string) ([]models.UploadFile, error)
	GetByID(ctx context.Context, requestID, fileID string) (*models.UploadFile, error)
	MarkFailed(ctx context.Context, fileID, reason string, now time.Time) error
	CountStored(ctx context.Context, requestID string) (int, error)
}

type directoryLookup interface {
	WorkOrderExists(ctx context.Context, orgID, workOrderID string) (bool, error)
	VendorExists(ctx context.Context, orgID, vendorID string) (bool, error)
}

type auditTrailReader interface {
	ListByEntity(ctx context.Context, orgID, entityType, entityID string) ([]models.AuditEvent, error)
}

type tokenCodec interface {
	Generate() (string, error)
	Hash(secret string) (string, error)
	Verify(secret, storedHash string) bool
}

type portalNotifier interface {
	NotifyPortalLink(ctx context.Context, link PortalLink) error
}

// UploadRequestServiceConfig holds request defaults.
type UploadRequestServiceConfig struct {
	DefaultTTL           time.Duration
	MaxTTL               time.Duration
	DefaultMaxFiles      int
	DefaultMaxTotalBytes int64
	DefaultDocTypes      []string
	PortalBaseURL        string
}

// UploadRequestService owns the upload request lifecycle and token validation.
type UploadRequestService struct {
	requests  uploadRequestStore
	files     uploadFileStore
	directory directoryLookup
	trail     auditTrailReader
	codec     tokenCodec
	quota     *QuotaEnforcer
	audit     auditRecorder
	notifier  portalNotifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       UploadRequestServiceConfig
	now       func() time.Time
}

// UploadRequestDeps groups the collaborators of UploadRequestService.
type UploadRequestDeps struct {
	Requests  uploadRequestStore
	Files     uploadFileStore
	Directory directoryLookup
	Trail     auditTrailReader
	Codec     tokenCodec
	Quota     *QuotaEnforcer
	Audit     auditRecorder
	Notifier  portalNotifier
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewUploadRequestService constructs the lifecycle manager with defaults.
func NewUploadRequestService(deps UploadRequestDeps, cfg UploadRequestServiceConfig) *UploadRequestService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Quota == nil {
		deps.Quota = NewQuotaEnforcer(0, nil)
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 72 * time.Hour
	}
	if cfg.MaxTTL < cfg.DefaultTTL {
		cfg.MaxTTL = 30 * 24 * time.Hour
	}
	if cfg.DefaultMaxFiles <= 0 {
		cfg.DefaultMaxFiles = 10
	}
	if cfg.DefaultMaxTotalBytes <= 0 {
		cfg.DefaultMaxTotalBytes = 50 * 1024 * 1024
	}
	if len(cfg.DefaultDocTypes) == 0 {
		cfg.DefaultDocTypes = []string{"invoice", "quote", "receipt", "certificate", "other"}
	}
	return &UploadRequestService{
		requests:  deps.Requests,
		files:     deps.Files,
		directory: deps.Directory,
		trail:     deps.Trail,
		codec:     deps.Codec,
		quota:     deps.Quota,
		audit:     deps.Audit,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		validator: deps.Validator,
		logger:    deps.Logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Create issues a new upload request. The raw secret is only ever present in the returned value.
func (s *UploadRequestService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateUploadRequest, ip string) (*dto.CreateUploadRequestResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	ttl := s.cfg.DefaultTTL
	if req.TTLHours != nil {
		ttl = time.Duration(*req.TTLHours) * time.Hour
	}
	if ttl > s.cfg.MaxTTL {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("ttlHours may not exceed %d", int(s.cfg.MaxTTL.Hours())))
	}
	maxFiles := s.cfg.DefaultMaxFiles
	if req.MaxFiles != nil {
		maxFiles = *req.MaxFiles
	}
	maxTotal := s.cfg.DefaultMaxTotalBytes
	if req.MaxTotalBytes != nil {
		maxTotal = *req.MaxTotalBytes
	}
	docTypes := normalizeDocTypes(req.AllowedDocTypes)
	if len(docTypes) == 0 {
		docTypes = normalizeDocTypes(s.cfg.DefaultDocTypes)
	}

	if err := s.ensureDirectory(ctx, actor.OrgID, req.WorkOrderID, req.VendorID); err != nil {
		return nil, err
	}

	secret, err := s.codec.Generate()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate upload token")
	}
	hash, err := s.codec.Hash(secret)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash upload token")
	}

	now := s.now().UTC()
	record := &models.UploadRequest{
		OrgID:           actor.OrgID,
		WorkOrderID:     req.WorkOrderID,
		VendorID:        req.VendorID,
		RequestEmail:    strings.TrimSpace(req.Email),
		AllowedDocTypes: docTypes,
		TokenHash:       hash,
		ExpiresAt:       now.Add(ttl),
		Status:          models.UploadRequestPending,
		MaxFiles:        maxFiles,
		MaxTotalBytes:   maxTotal,
		Message:         normalizeMessage(req.Message),
		CreatedBy:       actor.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.requests.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create upload request")
	}

	s.metrics.RequestCreated()
	s.audit.Record(ctx, newAuditEvent(record.OrgID, models.AuditRequestCreated, models.AuditEntityUploadRequest, record.ID,
		optionalString(actor.UserID), optionalString(ip), map[string]string{
			"work_order_id":   record.WorkOrderID,
			"vendor_id":       record.VendorID,
			"expires_at":      record.ExpiresAt.Format(time.RFC3339),
			"max_files":       strconv.Itoa(record.MaxFiles),
			"max_total_bytes": strconv.FormatInt(record.MaxTotalBytes, 10),
		}))

	portalURL := s.portalURL(record.ID, secret)
	if req.Notify && s.notifier != nil {
		link := PortalLink{
			RequestID: record.ID,
			OrgID:     record.OrgID,
			Email:     record.RequestEmail,
			PortalURL: portalURL,
			ExpiresAt: record.ExpiresAt,
			Message:   record.Message,
		}
		if err := s.notifier.NotifyPortalLink(ctx, link); err != nil {
			s.logger.Warn("failed to queue portal link notification", zap.String("upload_request_id", record.ID), zap.Error(err))
		}
	}

	return &dto.CreateUploadRequestResponse{
		RequestID: record.ID,
		RawSecret: secret,
		ExpiresAt: record.ExpiresAt,
		PortalURL: portalURL,
	}, nil
}

// Validate authorizes (requestID, rawSecret) for a mutating vendor operation.
func (s *UploadRequestService) Validate(ctx context.Context, requestID, rawSecret string) (*models.UploadRequest, error) {
	return s.authorize(ctx, requestID, rawSecret, false)
}

// Status returns the sanitized portal view. Completed requests remain readable.
func (s *UploadRequestService) Status(ctx context.Context, requestID, rawSecret string) (*dto.VendorUploadStatus, error) {
	req, err := s.authorize(ctx, requestID, rawSecret, true)
	if err != nil {
		return nil, err
	}
	files, err := s.files.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load uploads")
	}
	info, err := s.requests.GetContext(ctx, req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request context")
	}

	uploads := make([]dto.VendorUploadedFile, 0, len(files))
	for _, f := range files {
		if f.Status == models.UploadFileFailed {
			continue
		}
		uploads = append(uploads, dto.VendorUploadedFile{
			ID:        f.ID,
			DocType:   f.DocType,
			FileName:  f.FileName,
			MimeType:  f.MimeType,
			SizeBytes: f.SizeBytes,
			Status:    f.Status,
			CreatedAt: f.CreatedAt,
		})
	}

	return &dto.VendorUploadStatus{
		RequestID:       req.ID,
		VendorName:      info.VendorName,
		WorkOrderTitle:  info.WorkOrderTitle,
		Status:          req.Status,
		AllowedDocTypes: []string(req.AllowedDocTypes),
		AllowedMIMEs:    s.quota.AllowedMIMEs(),
		MaxFiles:        req.MaxFiles,
		MaxTotalBytes:   req.MaxTotalBytes,
		MaxFileBytes:    s.quota.MaxFileBytes(),
		Usage:           models.UsageOf(files),
		Message:         req.Message,
		ExpiresAt:       req.ExpiresAt,
		Uploads:         uploads,
	}, nil
}

// MarkCompleted closes the request once at least one file is stored.
func (s *UploadRequestService) MarkCompleted(ctx context.Context, requestID, rawSecret, ip string) (*dto.CompleteUploadResponse, error) {
	req, err := s.Validate(ctx, requestID, rawSecret)
	if err != nil {
		return nil, err
	}
	stored, err := s.files.CountStored(ctx, req.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count uploads")
	}
	if stored == 0 {
		return nil, appErrors.ErrNoFilesUploaded
	}

	now := s.now().UTC()
	changed, err := s.requests.MarkCompleted(ctx, req.ID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete upload request")
	}
	if !changed {
		return nil, appErrors.ErrRequestClosed
	}

	s.metrics.RequestCompleted()
	s.audit.Record(ctx, newAuditEvent(req.OrgID, models.AuditRequestCompleted, models.AuditEntityUploadRequest, req.ID,
		nil, optionalString(ip), map[string]string{"stored_files": strconv.Itoa(stored)}))

	return &dto.CompleteUploadResponse{
		RequestID:   req.ID,
		Status:      models.UploadRequestCompleted,
		StoredFiles: stored,
		CompletedAt: now,
	}, nil
}

// Revoke terminates an open request. Repeated calls and calls on closed requests succeed without change.
func (s *UploadRequestService) Revoke(ctx context.Context, actor *models.JWTClaims, requestID, ip string) (*models.UploadRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	result, err := s.requests.Revoke(ctx, actor.OrgID, requestID, actor.UserID, s.now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "upload request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke upload request")
	}
	if result.Changed {
		s.metrics.RequestRevoked()
		s.audit.Record(ctx, newAuditEvent(actor.OrgID, models.AuditRequestRevoked, models.AuditEntityUploadRequest, requestID,
			optionalString(actor.UserID), optionalString(ip), map[string]string{"previous_status": string(result.PreviousStatus)}))
	}
	return result.Request, nil
}

// Get returns the staff view of one request including its files and audit trail.
func (s *UploadRequestService) Get(ctx context.Context, actor *models.JWTClaims, requestID string) (*dto.UploadRequestDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req, err := s.requests.GetByOrg(ctx, actor.OrgID, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "upload request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load upload request")
	}
	files, err := s.files.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load uploads")
	}
	events := make([]models.AuditEvent, 0)
	if s.trail != nil {
		trail, err := s.trail.ListByEntity(ctx, req.OrgID, models.AuditEntityUploadRequest, req.ID)
		if err != nil {
			s.logger.Warn("failed to load upload request audit trail", zap.String("upload_request_id", req.ID), zap.Error(err))
		} else {
			events = append(events, trail...)
		}
	}
	return &dto.UploadRequestDetail{UploadRequest: *req, Files: files, Usage: models.UsageOf(files), Events: events}, nil
}

// List returns the organisation's requests.
func (s *UploadRequestService) List(ctx context.Context, actor *models.JWTClaims, filter dto.UploadRequestListFilter) ([]models.UploadRequest, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	items, total, err := s.requests.List(ctx, models.UploadRequestFilter{
		OrgID:       actor.OrgID,
		WorkOrderID: filter.WorkOrderID,
		VendorID:    filter.VendorID,
		Status:      filter.Status,
		Limit:       size,
		Offset:      (page - 1) * size,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list upload requests")
	}
	if items == nil {
		items = []models.UploadRequest{}
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// StartExpirySweep boots a goroutine that expires overdue requests periodically.
func (s *UploadRequestService) StartExpirySweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.SweepExpired(ctx); err != nil {
					s.logger.Warn("expiry sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// SweepExpired moves every overdue open request to expired and returns how many changed.
func (s *UploadRequestService) SweepExpired(ctx context.Context) (int, error) {
	expired := 0
	for {
		now := s.now().UTC()
		batch, err := s.requests.ListOverdue(ctx, now, sweepBatchSize)
		if err != nil {
			return expired, err
		}
		changedInBatch := 0
		for i := range batch {
			changed, err := s.expire(ctx, &batch[i], now, "sweep")
			if err != nil {
				return expired, err
			}
			if changed {
				changedInBatch++
			}
		}
		expired += changedInBatch
		if len(batch) < sweepBatchSize || changedInBatch == 0 {
			return expired, nil
		}
	}
}

func (s *UploadRequestService) authorize(ctx context.Context, requestID, rawSecret string, allowCompleted bool) (*models.UploadRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = s.codec.Verify(rawSecret, dummyTokenHash)
			return nil, s.reject(appErrors.ErrInvalidToken)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load upload request")
	}
	if rawSecret == "" || !s.codec.Verify(rawSecret, req.TokenHash) {
		return nil, s.reject(appErrors.ErrInvalidToken)
	}

	switch req.Status {
	case models.UploadRequestRevoked:
		return nil, s.reject(appErrors.ErrTokenRevoked)
	case models.UploadRequestExpired:
		return nil, s.reject(appErrors.ErrTokenExpired)
	case models.UploadRequestCompleted:
		if allowCompleted {
			s.metrics.TokenValidated("ok")
			return req, nil
		}
		return nil, s.reject(appErrors.ErrRequestClosed)
	}

	now := s.now().UTC()
	if !now.Before(req.ExpiresAt) {
		if _, err := s.expire(ctx, req, now, "validate"); err != nil {
			s.logger.Warn("failed to persist expiry", zap.String("upload_request_id", req.ID), zap.Error(err))
		}
		return nil, s.reject(appErrors.ErrTokenExpired)
	}

	s.metrics.TokenValidated("ok")
	return req, nil
}

func (s *UploadRequestService) expire(ctx context.Context, req *models.UploadRequest, now time.Time, trigger string) (bool, error) {
	changed, err := s.requests.MarkExpired(ctx, req.ID, now)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}
	s.metrics.RequestExpired(trigger)
	s.audit.Record(ctx, newAuditEvent(req.OrgID, models.AuditRequestExpired, models.AuditEntityUploadRequest, req.ID,
		nil, nil, map[string]string{
			"expires_at": req.ExpiresAt.UTC().Format(time.RFC3339),
			"trigger":    trigger,
		}))
	return true, nil
}

func (s *UploadRequestService) reject(err *appErrors.Error) error {
	s.metrics.TokenValidated(err.Code)
	return err
}

func (s *UploadRequestService) ensureDirectory(ctx context.Context, orgID, workOrderID, vendorID string) error {
	if s.directory == nil {
		return nil
	}
	ok, err := s.directory.WorkOrderExists(ctx, orgID, workOrderID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify work order")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "work order not found")
	}
	ok, err = s.directory.VendorExists(ctx, orgID, vendorID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify vendor")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "vendor not found")
	}
	return nil
}

func (s *UploadRequestService) portalURL(requestID, secret string) string {
	base := strings.TrimRight(s.cfg.PortalBaseURL, "/")
	return fmt.Sprintf("%s/%s?t=%s", base, url.PathEscape(requestID), url.QueryEscape(secret))
}

func normalizeDocTypes(types []string) []string {
	seen := make(map[string]struct{}, len(types))
	result := make([]string, 0, len(types))
	for _, t := range types {
		key := strings.ToLower(strings.TrimSpace(t))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, key)
	}
	return result
}

func normalizeMessage(msg *string) *string {
	if msg == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*msg)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
