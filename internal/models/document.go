package models

import "time"

// Document is the durable record created once per finalized upload.
type Document struct {
	ID                 string    `db:"id" json:"id"`
	OrgID              string    `db:"org_id" json:"orgId"`
	FileName           string    `db:"file_name" json:"fileName"`
	MimeType           string    `db:"mime_type" json:"mimeType"`
	SizeBytes          int64     `db:"size_bytes" json:"sizeBytes"`
	StorageBucket      string    `db:"storage_bucket" json:"storageBucket"`
	StoragePath        string    `db:"storage_path" json:"storagePath"`
	SHA256             *string   `db:"sha256" json:"sha256,omitempty"`
	SourceUploadFileID string    `db:"source_upload_file_id" json:"sourceUploadFileId"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
}
