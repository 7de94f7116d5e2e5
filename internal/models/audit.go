package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Audit event types emitted by the upload gateway.
const (
	AuditRequestCreated   = "request.created"
	AuditRequestExpired   = "request.expired"
	AuditRequestCompleted = "request.completed"
	AuditRequestRevoked   = "request.revoked"
	AuditFileURLIssued    = "file.upload_url_issued"
	AuditFileFailed       = "file.failed"
	AuditFileUploaded     = "file.uploaded"
)

// Audited entity types.
const (
	AuditEntityUploadRequest = "upload_request"
	AuditEntityUploadFile    = "upload_file"
)

// AuditMetadataVersion is bumped whenever an event schema changes incompatibly.
const AuditMetadataVersion = 1

// AuditSchemas lists the metadata keys every event type must carry.
//
//	request.created         work_order_id, vendor_id, expires_at, max_files, max_total_bytes
//	request.expired         expires_at, trigger
//	request.completed       stored_files
//	request.revoked         previous_status
//	file.upload_url_issued  upload_request_id, doc_type, size_bytes, mime_type
//	file.failed             upload_request_id, reason
//	file.uploaded           upload_request_id, document_id, doc_type, size_bytes
var AuditSchemas = map[string][]string{
	AuditRequestCreated:   {"work_order_id", "vendor_id", "expires_at", "max_files", "max_total_bytes"},
	AuditRequestExpired:   {"expires_at", "trigger"},
	AuditRequestCompleted: {"stored_files"},
	AuditRequestRevoked:   {"previous_status"},
	AuditFileURLIssued:    {"upload_request_id", "doc_type", "size_bytes", "mime_type"},
	AuditFileFailed:       {"upload_request_id", "reason"},
	AuditFileUploaded:     {"upload_request_id", "document_id", "doc_type", "size_bytes"},
}

// AuditMetadata is a versioned string key/value bag persisted as JSONB.
type AuditMetadata struct {
	Version int               `json:"v"`
	Fields  map[string]string `json:"fields"`
}

// NewAuditMetadata builds metadata at the current schema version.
func NewAuditMetadata(fields map[string]string) AuditMetadata {
	if fields == nil {
		fields = map[string]string{}
	}
	return AuditMetadata{Version: AuditMetadataVersion, Fields: fields}
}

// MissingKeys returns the schema keys of eventType absent from the metadata, sorted.
func (m AuditMetadata) MissingKeys(eventType string) []string {
	required := AuditSchemas[eventType]
	missing := make([]string, 0)
	for _, key := range required {
		if _, ok := m.Fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

// Value marshals metadata to JSON for persistence.
func (m AuditMetadata) Value() (driver.Value, error) {
	if m.Fields == nil {
		m.Fields = map[string]string{}
	}
	if m.Version == 0 {
		m.Version = AuditMetadataVersion
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal audit metadata: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the metadata struct.
func (m *AuditMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = NewAuditMetadata(nil)
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for AuditMetadata", value)
	}
	if len(data) == 0 {
		*m = NewAuditMetadata(nil)
		return nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("unmarshal audit metadata: %w", err)
	}
	if m.Fields == nil {
		m.Fields = map[string]string{}
	}
	return nil
}

// AuditEvent is one append-only audit row.
type AuditEvent struct {
	ID         string        `db:"id" json:"id"`
	OrgID      string        `db:"org_id" json:"orgId"`
	EventType  string        `db:"event_type" json:"eventType"`
	EntityType string        `db:"entity_type" json:"entityType"`
	EntityID   string        `db:"entity_id" json:"entityId"`
	ActorID    *string       `db:"actor_id" json:"actorId,omitempty"`
	Metadata   AuditMetadata `db:"metadata" json:"metadata"`
	IPAddress  *string       `db:"ip_address" json:"ipAddress,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"createdAt"`
}
