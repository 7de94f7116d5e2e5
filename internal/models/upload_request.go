package models

import (
	"time"

	"github.com/lib/pq"
)

// UploadRequestStatus captures the lifecycle of a vendor upload request.
type UploadRequestStatus string

const (
	UploadRequestPending           UploadRequestStatus = "pending"
	UploadRequestPartiallyUploaded UploadRequestStatus = "partially_uploaded"
	UploadRequestCompleted         UploadRequestStatus = "completed"
	UploadRequestExpired           UploadRequestStatus = "expired"
	UploadRequestRevoked           UploadRequestStatus = "revoked"
)

// Open reports whether the request still accepts files.
func (s UploadRequestStatus) Open() bool {
	return s == UploadRequestPending || s == UploadRequestPartiallyUploaded
}

// UploadRequest is a capability-scoped invitation for one vendor to upload against one work order.
type UploadRequest struct {
	ID              string              `db:"id" json:"id"`
	OrgID           string              `db:"org_id" json:"orgId"`
	WorkOrderID     string              `db:"work_order_id" json:"workOrderId"`
	VendorID        string              `db:"vendor_id" json:"vendorId"`
	RequestEmail    string              `db:"request_email" json:"requestEmail"`
	AllowedDocTypes pq.StringArray      `db:"allowed_doc_types" json:"allowedDocTypes"`
	TokenHash       string              `db:"token_hash" json:"-"`
	ExpiresAt       time.Time           `db:"expires_at" json:"expiresAt"`
	Status          UploadRequestStatus `db:"status" json:"status"`
	MaxFiles        int                 `db:"max_files" json:"maxFiles"`
	MaxTotalBytes   int64               `db:"max_total_bytes" json:"maxTotalBytes"`
	Message         *string             `db:"message" json:"message,omitempty"`
	CreatedBy       string              `db:"created_by" json:"createdBy"`
	CreatedAt       time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updatedAt"`
	CompletedAt     *time.Time          `db:"completed_at" json:"completedAt,omitempty"`
	RevokedAt       *time.Time          `db:"revoked_at" json:"revokedAt,omitempty"`
	RevokedBy       *string             `db:"revoked_by" json:"revokedBy,omitempty"`
}

// AllowsDocType reports membership of docType in the allowed set.
func (r *UploadRequest) AllowsDocType(docType string) bool {
	for _, allowed := range r.AllowedDocTypes {
		if allowed == docType {
			return true
		}
	}
	return false
}

// UploadRequestContext carries the display names of the entities a request points at.
type UploadRequestContext struct {
	VendorName     string `db:"vendor_name" json:"vendorName"`
	WorkOrderTitle string `db:"work_order_title" json:"workOrderTitle"`
}

// UploadRequestFilter narrows staff listings.
type UploadRequestFilter struct {
	OrgID       string
	WorkOrderID string
	VendorID    string
	Status      UploadRequestStatus
	Limit       int
	Offset      int
}
