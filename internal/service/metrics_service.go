package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic and the upload gateway.
// A nil *MetricsService is valid and records nothing.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	requestsCreated    prometheus.Counter
	tokenValidations   *prometheus.CounterVec
	requestsExpired    *prometheus.CounterVec
	requestsCompleted  prometheus.Counter
	requestsRevoked    prometheus.Counter
	urlsIssued         prometheus.Counter
	urlFailures        prometheus.Counter
	quotaRejections    *prometheus.CounterVec
	filesFinalized     *prometheus.CounterVec
	bytesFinalized     prometheus.Counter
	objectStoreLatency *prometheus.HistogramVec
	auditFailures      prometheus.Counter
	notifications      *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upload_requests_created_total",
			Help: "Upload requests created by staff",
		}),
		tokenValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_token_validations_total",
			Help: "Upload token validations by result code",
		}, []string{"result"}),
		requestsExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_requests_expired_total",
			Help: "Upload requests moved to expired, by trigger",
		}, []string{"trigger"}),
		requestsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upload_requests_completed_total",
			Help: "Upload requests completed by vendors",
		}),
		requestsRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upload_requests_revoked_total",
			Help: "Upload requests revoked by staff",
		}),
		urlsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upload_urls_issued_total",
			Help: "Signed upload URLs issued",
		}),
		urlFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upload_url_failures_total",
			Help: "Signed upload URL issuance failures",
		}),
		quotaRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_quota_rejections_total",
			Help: "Proposed files rejected by the quota enforcer, by code",
		}, []string{"code"}),
		filesFinalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_files_finalized_total",
			Help: "Finalize calls by outcome",
		}, []string{"outcome"}),
		bytesFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upload_bytes_finalized_total",
			Help: "Bytes promoted into documents",
		}),
		objectStoreLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "object_store_duration_seconds",
			Help:    "Latency of object store calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "result"}),
		auditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Audit events that could not be persisted",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_notifications_total",
			Help: "Portal link emails by result",
		}, []string{"result"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.requestsCreated, m.tokenValidations, m.requestsExpired, m.requestsCompleted, m.requestsRevoked,
		m.urlsIssued, m.urlFailures, m.quotaRejections, m.filesFinalized, m.bytesFinalized,
		m.objectStoreLatency, m.auditFailures, m.notifications, goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RequestCreated counts a new upload request.
func (m *MetricsService) RequestCreated() {
	if m == nil {
		return
	}
	m.requestsCreated.Inc()
}

// TokenValidated counts a validation outcome; result is "ok" or an error code.
func (m *MetricsService) TokenValidated(result string) {
	if m == nil {
		return
	}
	m.tokenValidations.WithLabelValues(result).Inc()
}

// RequestExpired counts an expiry transition by trigger ("validate" or "sweep").
func (m *MetricsService) RequestExpired(trigger string) {
	if m == nil {
		return
	}
	m.requestsExpired.WithLabelValues(trigger).Inc()
}

// RequestCompleted counts a completed request.
func (m *MetricsService) RequestCompleted() {
	if m == nil {
		return
	}
	m.requestsCompleted.Inc()
}

// RequestRevoked counts a revoked request.
func (m *MetricsService) RequestRevoked() {
	if m == nil {
		return
	}
	m.requestsRevoked.Inc()
}

// UploadURLIssued counts an issued or failed signed URL.
func (m *MetricsService) UploadURLIssued(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.urlsIssued.Inc()
		return
	}
	m.urlFailures.Inc()
}

// QuotaRejected counts a proposal refused by the quota enforcer.
func (m *MetricsService) QuotaRejected(code string) {
	if m == nil {
		return
	}
	m.quotaRejections.WithLabelValues(code).Inc()
}

// FileFinalized counts a finalize call; created distinguishes new documents from replays.
func (m *MetricsService) FileFinalized(created bool, size int64) {
	if m == nil {
		return
	}
	if !created {
		m.filesFinalized.WithLabelValues("duplicate").Inc()
		return
	}
	m.filesFinalized.WithLabelValues("created").Inc()
	m.bytesFinalized.Add(float64(size))
}

// ObserveObjectStore records the latency of one object store call.
func (m *MetricsService) ObserveObjectStore(op string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.objectStoreLatency.WithLabelValues(op, result).Observe(duration.Seconds())
}

// AuditWriteFailed counts an audit event that was dropped.
func (m *MetricsService) AuditWriteFailed() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

// NotificationSent counts a portal link email outcome.
func (m *MetricsService) NotificationSent(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.notifications.WithLabelValues("sent").Inc()
		return
	}
	m.notifications.WithLabelValues("failed").Inc()
}
