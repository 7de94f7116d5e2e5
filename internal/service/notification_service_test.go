package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/jobs"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/mailer"
)

type dispatcherStub struct {
	jobs []jobs.Job
	err  error
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type mailerStub struct {
	sent []mailer.Message
	err  error
}

func (m *mailerStub) Send(ctx context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func samplePortalLink() PortalLink {
	msg := "Please include <b>both</b> pages"
	return PortalLink{
		RequestID: "req-1",
		OrgID:     testOrgID,
		Email:     "vendor@example.com",
		PortalURL: "https://vendors.example.com/upload/req-1?t=secret",
		ExpiresAt: time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC),
		Message:   &msg,
	}
}

func TestNotificationServiceEnqueuesPortalLink(t *testing.T) {
	queue := &dispatcherStub{}
	svc := NewNotificationService(queue, nil)

	require.NoError(t, svc.NotifyPortalLink(context.Background(), samplePortalLink()))
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypePortalLink, queue.jobs[0].Type)
	assert.NotEmpty(t, queue.jobs[0].ID)
	assert.Equal(t, samplePortalLink().RequestID, queue.jobs[0].Payload.(PortalLink).RequestID)
}

func TestNotificationServiceErrors(t *testing.T) {
	queue := &dispatcherStub{err: errors.New("queue full")}
	svc := NewNotificationService(queue, nil)
	assert.Error(t, svc.NotifyPortalLink(context.Background(), samplePortalLink()))

	link := samplePortalLink()
	link.Email = " "
	assert.Error(t, NewNotificationService(&dispatcherStub{}, nil).NotifyPortalLink(context.Background(), link))

	var disabled *NotificationService
	assert.Error(t, disabled.NotifyPortalLink(context.Background(), samplePortalLink()))
}

func TestPortalLinkWorkerSends(t *testing.T) {
	sender := &mailerStub{}
	metrics := NewMetricsService()
	worker := NewPortalLinkWorker(sender, metrics, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Type: JobTypePortalLink, Payload: samplePortalLink()})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "vendor@example.com", msg.To)
	assert.Contains(t, msg.TextBody, "https://vendors.example.com/upload/req-1?t=secret")
	assert.Contains(t, msg.TextBody, "4 Mar 2026")
	assert.Contains(t, msg.HTMLBody, "&lt;b&gt;both&lt;/b&gt;")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.notifications.WithLabelValues("sent")))
}

func TestPortalLinkWorkerFailures(t *testing.T) {
	sender := &mailerStub{err: errors.New("smtp down")}
	metrics := NewMetricsService()
	worker := NewPortalLinkWorker(sender, metrics, nil)

	job := jobs.Job{ID: "job-1", Type: JobTypePortalLink, Payload: samplePortalLink()}
	err := worker.Handle(context.Background(), job)
	require.Error(t, err)
	assert.Zero(t, testutil.ToFloat64(metrics.notifications.WithLabelValues("failed")))

	worker.DeadLetter(job, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.notifications.WithLabelValues("failed")))

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-2", Payload: "garbage"}))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.notifications.WithLabelValues("failed")))
}

func TestPortalLinkDeliveredThroughQueue(t *testing.T) {
	sender := &mailerStub{}
	worker := NewPortalLinkWorker(sender, nil, nil)
	delivered := make(chan struct{}, 1)
	queue := jobs.NewQueue("notifications", func(ctx context.Context, job jobs.Job) error {
		err := worker.Handle(ctx, job)
		delivered <- struct{}{}
		return err
	}, jobs.QueueConfig{Workers: 1})
	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, NewNotificationService(queue, nil).NotifyPortalLink(context.Background(), samplePortalLink()))
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("portal link was not delivered")
	}
	assert.Len(t, sender.sent, 1)
}
