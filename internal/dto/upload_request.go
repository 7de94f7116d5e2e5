package dto

import (
	"time"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/models"
)

// CreateUploadRequest captures POST /upload-requests payload.
type CreateUploadRequest struct {
	WorkOrderID     string   `json:"workOrderId" validate:"required"`
	VendorID        string   `json:"vendorId" validate:"required"`
	Email           string   `json:"email" validate:"required,email"`
	AllowedDocTypes []string `json:"allowedDocTypes" validate:"omitempty,dive,required,max=64"`
	TTLHours        *int     `json:"ttlHours,omitempty" validate:"omitempty,min=1"`
	MaxFiles        *int     `json:"maxFiles,omitempty" validate:"omitempty,min=1,max=100"`
	MaxTotalBytes   *int64   `json:"maxTotalBytes,omitempty" validate:"omitempty,min=1"`
	Message         *string  `json:"message,omitempty" validate:"omitempty,max=2000"`
	Notify          bool     `json:"notify"`
}

// CreateUploadRequestResponse is returned exactly once; RawSecret is never retrievable again.
type CreateUploadRequestResponse struct {
	RequestID string    `json:"requestId"`
	RawSecret string    `json:"rawSecret"`
	ExpiresAt time.Time `json:"expiresAt"`
	PortalURL string    `json:"portalUrl"`
}

// UploadRequestListFilter captures query parameters for staff listings.
type UploadRequestListFilter struct {
	WorkOrderID string
	VendorID    string
	Status      models.UploadRequestStatus
	Page        int
	PageSize    int
}

// UploadRequestDetail is the staff view of a request and its files.
type UploadRequestDetail struct {
	models.UploadRequest
	Files  []models.UploadFile `json:"files"`
	Usage  models.QuotaUsage   `json:"usage"`
	Events []models.AuditEvent `json:"events"`
}

// VendorUploadStatus is the sanitized view shown on the vendor portal.
type VendorUploadStatus struct {
	RequestID       string                     `json:"requestId"`
	VendorName      string                     `json:"vendorName"`
	WorkOrderTitle  string                     `json:"workOrderTitle"`
	Status          models.UploadRequestStatus `json:"status"`
	AllowedDocTypes []string                   `json:"allowedDocTypes"`
	AllowedMIMEs    []string                   `json:"allowedMimeTypes"`
	MaxFiles        int                        `json:"maxFiles"`
	MaxTotalBytes   int64                      `json:"maxTotalBytes"`
	MaxFileBytes    int64                      `json:"maxFileBytes"`
	Usage           models.QuotaUsage          `json:"usage"`
	Message         *string                    `json:"message,omitempty"`
	ExpiresAt       time.Time                  `json:"expiresAt"`
	Uploads         []VendorUploadedFile       `json:"uploads"`
}

// VendorUploadedFile lists a prior upload without storage internals.
type VendorUploadedFile struct {
	ID        string                  `json:"id"`
	DocType   string                  `json:"docType"`
	FileName  string                  `json:"fileName"`
	MimeType  string                  `json:"mimeType"`
	SizeBytes int64                   `json:"sizeBytes"`
	Status    models.UploadFileStatus `json:"status"`
	CreatedAt time.Time               `json:"createdAt"`
}

// FileMeta describes a file the vendor intends to upload.
type FileMeta struct {
	DocType   string `json:"docType" validate:"required,max=64"`
	FileName  string `json:"fileName" validate:"required,max=255"`
	MimeType  string `json:"mimeType" validate:"required,max=255"`
	SizeBytes int64  `json:"sizeBytes" validate:"required,min=1"`
}

// SignedUploadResponse returns a scoped write URL for one object.
type SignedUploadResponse struct {
	SignedURL    string            `json:"signedUrl"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers,omitempty"`
	UploadFileID string            `json:"uploadFileId"`
	StoragePath  string            `json:"storagePath"`
	ExpiresAt    time.Time         `json:"expiresAt"`
}

// FinalizeUploadRequest carries optional content metadata reported by the client.
type FinalizeUploadRequest struct {
	SHA256    *string `json:"sha256,omitempty" validate:"omitempty,len=64,hexadecimal"`
	SizeBytes *int64  `json:"sizeBytes,omitempty" validate:"omitempty,min=1"`
}

// FinalizeUploadResponse reports the durable document created for the file.
type FinalizeUploadResponse struct {
	UploadFileID string                  `json:"uploadFileId"`
	DocumentID   string                  `json:"documentId"`
	Status       models.UploadFileStatus `json:"status"`
	Duplicate    bool                    `json:"duplicate"`
}

// CompleteUploadResponse reports the closed request.
type CompleteUploadResponse struct {
	RequestID   string                     `json:"requestId"`
	Status      models.UploadRequestStatus `json:"status"`
	StoredFiles int                        `json:"storedFiles"`
	CompletedAt time.Time                  `json:"completedAt"`
}
