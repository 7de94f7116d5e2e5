package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/models"
)

type auditStore interface {
	Insert(ctx context.Context, event *models.AuditEvent) error
}

// auditRecorder is what the upload services depend on. Record never fails the caller.
type auditRecorder interface {
	Record(ctx context.Context, event *models.AuditEvent)
}

// AuditService appends audit events, logging and counting failures instead of returning them.
type AuditService struct {
	repo    auditStore
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewAuditService constructs the recorder.
func NewAuditService(repo auditStore, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, metrics: metrics, logger: logger, now: time.Now}
}

// Record persists event. Missing schema keys are logged as warnings and the event is still written.
func (s *AuditService) Record(ctx context.Context, event *models.AuditEvent) {
	if s == nil || event == nil {
		return
	}
	if event.Metadata.Fields == nil {
		event.Metadata = models.NewAuditMetadata(nil)
	}
	if event.Metadata.Version == 0 {
		event.Metadata.Version = models.AuditMetadataVersion
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}
	if missing := event.Metadata.MissingKeys(event.EventType); len(missing) > 0 {
		s.logger.Warn("audit event missing metadata keys",
			zap.String("event_type", event.EventType),
			zap.String("entity_id", event.EntityID),
			zap.Strings("missing", missing),
		)
	}
	if s.repo == nil {
		return
	}
	// Audit writes must not be cancelled by the client hanging up mid-request.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.repo.Insert(writeCtx, event); err != nil {
		s.metrics.AuditWriteFailed()
		s.logger.Error("failed to write audit event",
			zap.String("event_type", event.EventType),
			zap.String("entity_type", event.EntityType),
			zap.String("entity_id", event.EntityID),
			zap.Error(err),
		)
	}
}

func newAuditEvent(orgID, eventType, entityType, entityID string, actorID, ip *string, fields map[string]string) *models.AuditEvent {
	return &models.AuditEvent{
		OrgID:      orgID,
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		IPAddress:  ip,
		Metadata:   models.NewAuditMetadata(fields),
	}
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
