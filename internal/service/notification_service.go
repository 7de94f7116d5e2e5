package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/jobs"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/mailer"
)

// JobTypePortalLink identifies portal link email jobs.
const JobTypePortalLink = "upload.portal_link"

// PortalLink is everything needed to tell a vendor where to upload.
type PortalLink struct {
	RequestID string
	OrgID     string
	Email     string
	PortalURL string
	ExpiresAt time.Time
	Message   *string
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type mailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// NotificationService queues portal link emails.
type NotificationService struct {
	queue  jobDispatcher
	logger *zap.Logger
}

// NewNotificationService constructs the service around a running queue.
func NewNotificationService(queue jobDispatcher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{queue: queue, logger: logger}
}

// NotifyPortalLink schedules delivery. The portal URL carries the secret and is never logged.
func (s *NotificationService) NotifyPortalLink(ctx context.Context, link PortalLink) error {
	if s == nil || s.queue == nil {
		return errors.New("notifications disabled")
	}
	if strings.TrimSpace(link.Email) == "" {
		return errors.New("recipient email is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: JobTypePortalLink, Payload: link}); err != nil {
		return fmt.Errorf("enqueue portal link: %w", err)
	}
	s.logger.Debug("portal link queued", zap.String("upload_request_id", link.RequestID))
	return nil
}

// PortalLinkWorker bridges queue jobs to the mailer.
type PortalLinkWorker struct {
	mailer  mailSender
	metrics *MetricsService
	logger  *zap.Logger
}

// NewPortalLinkWorker constructs a worker.
func NewPortalLinkWorker(sender mailSender, metrics *MetricsService, logger *zap.Logger) *PortalLinkWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortalLinkWorker{mailer: sender, metrics: metrics, logger: logger}
}

// Handle processes a queue job.
func (w *PortalLinkWorker) Handle(ctx context.Context, job jobs.Job) error {
	link, ok := job.Payload.(PortalLink)
	if !ok {
		w.logger.Error("unexpected portal link payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		w.metrics.NotificationSent(false)
		return nil
	}
	if err := w.mailer.Send(ctx, portalLinkMessage(link)); err != nil {
		return err
	}
	w.metrics.NotificationSent(true)
	w.logger.Info("portal link sent", zap.String("upload_request_id", link.RequestID))
	return nil
}

// DeadLetter records a delivery that exhausted its retries.
func (w *PortalLinkWorker) DeadLetter(job jobs.Job, err error) {
	w.metrics.NotificationSent(false)
	requestID := ""
	if link, ok := job.Payload.(PortalLink); ok {
		requestID = link.RequestID
	}
	w.logger.Error("portal link delivery abandoned",
		zap.String("job_id", job.ID),
		zap.String("upload_request_id", requestID),
		zap.Int("attempts", job.Attempt),
		zap.Error(err),
	)
}

func portalLinkMessage(link PortalLink) mailer.Message {
	expires := link.ExpiresAt.UTC().Format("2 Jan 2006 15:04 MST")
	var text strings.Builder
	text.WriteString("You have been asked to upload documents.\n\n")
	if link.Message != nil && *link.Message != "" {
		text.WriteString(*link.Message)
		text.WriteString("\n\n")
	}
	fmt.Fprintf(&text, "Upload here: %s\n\nThis link expires on %s.\n", link.PortalURL, expires)

	var body strings.Builder
	body.WriteString("<p>You have been asked to upload documents.</p>")
	if link.Message != nil && *link.Message != "" {
		fmt.Fprintf(&body, "<p>%s</p>", html.EscapeString(*link.Message))
	}
	fmt.Fprintf(&body, `<p><a href="%s">Open the upload portal</a></p><p>This link expires on %s.</p>`,
		html.EscapeString(link.PortalURL), html.EscapeString(expires))

	return mailer.Message{
		To:       link.Email,
		Subject:  "Documents requested",
		TextBody: text.String(),
		HTMLBody: body.String(),
	}
}
