package models

import "time"

// UploadFileStatus tracks one proposed file from URL issuance to storage.
type UploadFileStatus string

const (
	UploadFileQueued    UploadFileStatus = "queued"
	UploadFileUploading UploadFileStatus = "uploading"
	UploadFileStored    UploadFileStatus = "stored"
	UploadFileFailed    UploadFileStatus = "failed"
)

// CountsTowardQuota reports whether the file occupies a slot of the request quota.
func (s UploadFileStatus) CountsTowardQuota() bool {
	return s == UploadFileQueued || s == UploadFileUploading || s == UploadFileStored
}

// UploadFile is a file slot reserved against an upload request.
type UploadFile struct {
	ID              string           `db:"id" json:"id"`
	UploadRequestID string           `db:"upload_request_id" json:"uploadRequestId"`
	OrgID           string           `db:"org_id" json:"orgId"`
	WorkOrderID     string           `db:"work_order_id" json:"workOrderId"`
	VendorID        string           `db:"vendor_id" json:"vendorId"`
	DocType         string           `db:"doc_type" json:"docType"`
	FileName        string           `db:"file_name" json:"fileName"`
	MimeType        string           `db:"mime_type" json:"mimeType"`
	SizeBytes       int64            `db:"size_bytes" json:"sizeBytes"`
	StorageBucket   string           `db:"storage_bucket" json:"storageBucket"`
	StoragePath     string           `db:"storage_path" json:"storagePath"`
	Status          UploadFileStatus `db:"status" json:"status"`
	SHA256          *string          `db:"sha256" json:"sha256,omitempty"`
	DocumentID      *string          `db:"document_id" json:"documentId,omitempty"`
	UploaderIP      string           `db:"uploader_ip" json:"-"`
	ErrorMessage    *string          `db:"error_message" json:"-"`
	CreatedAt       time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updatedAt"`
}

// QuotaUsage summarises the files currently counted against a request.
type QuotaUsage struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

// UsageOf sums size and count over files that occupy quota.
func UsageOf(files []UploadFile) QuotaUsage {
	var usage QuotaUsage
	for _, f := range files {
		if !f.Status.CountsTowardQuota() {
			continue
		}
		usage.Files++
		usage.Bytes += f.SizeBytes
	}
	return usage
}
