package service

import (
	"fmt"
	"strings"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/dto"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/models"
	appErrors "github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/errors"
)

// QuotaEnforcer gates proposed files against request limits and global policy.
type QuotaEnforcer struct {
	maxFileBytes int64
	mimeSet      map[string]struct{}
	mimes        []string
}

// NewQuotaEnforcer builds an enforcer. Empty allow-lists fall back to documents and images.
func NewQuotaEnforcer(maxFileBytes int64, allowedMIMEs []string) *QuotaEnforcer {
	if maxFileBytes <= 0 {
		maxFileBytes = 10 * 1024 * 1024
	}
	if len(allowedMIMEs) == 0 {
		allowedMIMEs = []string{
			"application/pdf",
			"image/jpeg",
			"image/png",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		}
	}
	mimeSet := make(map[string]struct{}, len(allowedMIMEs))
	mimes := make([]string, 0, len(allowedMIMEs))
	for _, mt := range allowedMIMEs {
		key := normalizeMIME(mt)
		if _, dup := mimeSet[key]; dup || key == "" {
			continue
		}
		mimeSet[key] = struct{}{}
		mimes = append(mimes, key)
	}
	return &QuotaEnforcer{maxFileBytes: maxFileBytes, mimeSet: mimeSet, mimes: mimes}
}

// MaxFileBytes is the per-file ceiling.
func (q *QuotaEnforcer) MaxFileBytes() int64 {
	return q.maxFileBytes
}

// AllowedMIMEs lists accepted content types.
func (q *QuotaEnforcer) AllowedMIMEs() []string {
	return append([]string(nil), q.mimes...)
}

// Check rejects meta when it violates the request's allowed types or limits given the files
// already reserved. Only queued, uploading and stored files consume quota.
func (q *QuotaEnforcer) Check(req *models.UploadRequest, existing []models.UploadFile, meta dto.FileMeta) error {
	if strings.TrimSpace(meta.FileName) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "fileName is required")
	}
	if meta.SizeBytes <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "sizeBytes must be positive")
	}
	if !req.AllowsDocType(meta.DocType) {
		return appErrors.ErrDocTypeNotAllowed
	}
	if _, ok := q.mimeSet[normalizeMIME(meta.MimeType)]; !ok {
		return appErrors.ErrMimeNotAllowed
	}
	if meta.SizeBytes > q.maxFileBytes {
		return appErrors.Clone(appErrors.ErrFileTooLarge, fmt.Sprintf("file exceeds the %d byte limit", q.maxFileBytes))
	}
	usage := models.UsageOf(existing)
	if usage.Files+1 > req.MaxFiles {
		return appErrors.ErrTooManyFiles
	}
	if usage.Bytes+meta.SizeBytes > req.MaxTotalBytes {
		return appErrors.ErrTotalSizeExceeded
	}
	return nil
}

func normalizeMIME(mt string) string {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}
