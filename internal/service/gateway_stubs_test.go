package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/models"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/repository"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/objectstore"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/token"
)

const (
	testOrgID       = "org-1"
	testWorkOrderID = "wo-1"
	testVendorID    = "vendor-1"
	testStaffID     = "staff-1"
	testIP          = "203.0.113.7"
)

// memoryGateway is an in-memory stand-in for the Postgres tables. One mutex plays the role of
// the row locks taken by the real repositories.
type memoryGateway struct {
	mu         sync.Mutex
	requests   map[string]*models.UploadRequest
	files      map[string]*models.UploadFile
	fileOrder  []string
	documents  map[string]*models.Document
	docsByFile map[string]string
	links      map[string]int
	workOrders map[string]string
	vendors    map[string]string
}

func newMemoryGateway() *memoryGateway {
	return &memoryGateway{
		requests:   map[string]*models.UploadRequest{},
		files:      map[string]*models.UploadFile{},
		documents:  map[string]*models.Document{},
		docsByFile: map[string]string{},
		links:      map[string]int{},
		workOrders: map[string]string{testWorkOrderID: "Roof repair"},
		vendors:    map[string]string{testVendorID: "Acme Roofing"},
	}
}

func (g *memoryGateway) request(id string) models.UploadRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return *g.requests[id]
}

func (g *memoryGateway) file(id string) models.UploadFile {
	g.mu.Lock()
	defer g.mu.Unlock()
	return *g.files[id]
}

func (g *memoryGateway) documentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.documents)
}

func (g *memoryGateway) setStatus(id string, status models.UploadRequestStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests[id].Status = status
}

func (g *memoryGateway) filesOf(requestID string) []models.UploadFile {
	result := make([]models.UploadFile, 0)
	for _, id := range g.fileOrder {
		if f := g.files[id]; f.UploadRequestID == requestID {
			result = append(result, *f)
		}
	}
	return result
}

type memoryRequests struct{ *memoryGateway }

func (m memoryRequests) Create(ctx context.Context, req *models.UploadRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	stored := *req
	m.requests[req.ID] = &stored
	return nil
}

func (m memoryRequests) GetByID(ctx context.Context, id string) (*models.UploadRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *req
	return &copied, nil
}

func (m memoryRequests) GetByOrg(ctx context.Context, orgID, id string) (*models.UploadRequest, error) {
	req, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.OrgID != orgID {
		return nil, sql.ErrNoRows
	}
	return req, nil
}

func (m memoryRequests) List(ctx context.Context, filter models.UploadRequestFilter) ([]models.UploadRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := make([]models.UploadRequest, 0)
	for _, req := range m.requests {
		if req.OrgID != filter.OrgID {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.WorkOrderID != "" && req.WorkOrderID != filter.WorkOrderID {
			continue
		}
		if filter.VendorID != "" && req.VendorID != filter.VendorID {
			continue
		}
		matched = append(matched, *req)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	if filter.Offset >= total {
		return []models.UploadRequest{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (m memoryRequests) MarkExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || !req.Status.Open() || now.Before(req.ExpiresAt) {
		return false, nil
	}
	req.Status = models.UploadRequestExpired
	req.UpdatedAt = now
	return true, nil
}

func (m memoryRequests) MarkCompleted(ctx context.Context, id string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || !req.Status.Open() || !now.Before(req.ExpiresAt) {
		return false, nil
	}
	req.Status = models.UploadRequestCompleted
	req.CompletedAt = &now
	req.UpdatedAt = now
	return true, nil
}

func (m memoryRequests) Revoke(ctx context.Context, orgID, id, actorID string, now time.Time) (*repository.RevokeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || req.OrgID != orgID {
		return nil, sql.ErrNoRows
	}
	result := &repository.RevokeResult{PreviousStatus: req.Status}
	if req.Status.Open() {
		req.Status = models.UploadRequestRevoked
		req.RevokedAt = &now
		req.RevokedBy = &actorID
		req.UpdatedAt = now
		result.Changed = true
	}
	copied := *req
	result.Request = &copied
	return result, nil
}

func (m memoryRequests) ListOverdue(ctx context.Context, now time.Time, limit int) ([]models.UploadRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	overdue := make([]models.UploadRequest, 0)
	for _, req := range m.requests {
		if req.Status.Open() && !now.Before(req.ExpiresAt) {
			overdue = append(overdue, *req)
		}
		if len(overdue) == limit {
			break
		}
	}
	return overdue, nil
}

func (m memoryRequests) GetContext(ctx context.Context, req *models.UploadRequest) (*models.UploadRequestContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &models.UploadRequestContext{VendorName: m.vendors[req.VendorID], WorkOrderTitle: m.workOrders[req.WorkOrderID]}, nil
}

func (m memoryRequests) WorkOrderExists(ctx context.Context, orgID, workOrderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.workOrders[workOrderID]
	return ok && orgID == testOrgID, nil
}

func (m memoryRequests) VendorExists(ctx context.Context, orgID, vendorID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.vendors[vendorID]
	return ok && orgID == testOrgID, nil
}

type memoryFiles struct{ *memoryGateway }

func (m memoryFiles) InsertWithinQuota(ctx context.Context, file *models.UploadFile, check repository.QuotaCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[file.UploadRequestID]
	if !ok {
		return sql.ErrNoRows
	}
	locked := *req
	if err := check(&locked, m.filesOf(req.ID)); err != nil {
		return err
	}
	for _, existing := range m.files {
		if existing.StoragePath == file.StoragePath {
			return errors.New("duplicate storage path")
		}
	}
	stored := *file
	m.files[file.ID] = &stored
	m.fileOrder = append(m.fileOrder, file.ID)
	return nil
}

func (m memoryFiles) ListByRequest(ctx context.Context, requestID string) ([]models.UploadFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filesOf(requestID), nil
}

func (m memoryFiles) GetByID(ctx context.Context, requestID, fileID string) (*models.UploadFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok || f.UploadRequestID != requestID {
		return nil, sql.ErrNoRows
	}
	copied := *f
	return &copied, nil
}

func (m memoryFiles) MarkFailed(ctx context.Context, fileID, reason string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok || (f.Status != models.UploadFileQueued && f.Status != models.UploadFileUploading) {
		return sql.ErrNoRows
	}
	f.Status = models.UploadFileFailed
	f.ErrorMessage = &reason
	f.UpdatedAt = now
	return nil
}

func (m memoryFiles) CountStored(ctx context.Context, requestID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, f := range m.filesOf(requestID) {
		if f.Status == models.UploadFileStored {
			count++
		}
	}
	return count, nil
}

type memoryDocuments struct{ *memoryGateway }

func (m memoryDocuments) Finalize(ctx context.Context, params repository.FinalizeParams) (*repository.FinalizeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[params.RequestID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	f, ok := m.files[params.UploadFileID]
	if !ok || f.UploadRequestID != req.ID {
		return nil, sql.ErrNoRows
	}
	if f.Status == models.UploadFileStored && f.DocumentID != nil {
		doc := *m.documents[*f.DocumentID]
		file := *f
		return &repository.FinalizeResult{Document: &doc, File: &file}, nil
	}
	if f.Status == models.UploadFileFailed {
		return nil, repository.ErrUploadFileState
	}
	if !req.Status.Open() {
		return nil, repository.ErrRequestNotOpen
	}
	sha := f.SHA256
	if params.SHA256 != nil {
		sha = params.SHA256
	}
	doc := &models.Document{
		ID:                 uuid.NewString(),
		OrgID:              f.OrgID,
		FileName:           f.FileName,
		MimeType:           f.MimeType,
		SizeBytes:          f.SizeBytes,
		StorageBucket:      f.StorageBucket,
		StoragePath:        f.StoragePath,
		SHA256:             sha,
		SourceUploadFileID: f.ID,
		CreatedAt:          params.Now,
	}
	m.documents[doc.ID] = doc
	m.docsByFile[f.ID] = doc.ID
	m.links["work_order:"+f.WorkOrderID]++
	m.links["vendor:"+f.VendorID]++
	f.Status = models.UploadFileStored
	f.DocumentID = &doc.ID
	f.SHA256 = sha
	if req.Status == models.UploadRequestPending {
		req.Status = models.UploadRequestPartiallyUploaded
	}
	docCopy := *doc
	fileCopy := *f
	return &repository.FinalizeResult{Document: &docCopy, File: &fileCopy, Created: true}, nil
}

func (m memoryDocuments) ListByEntity(ctx context.Context, orgID, entityType, entityID string) ([]models.AuditEvent, error) {
	return nil, nil
}

// fakeObjectStore records presigned keys and serves Stat from an in-memory object set.
type fakeObjectStore struct {
	mu         sync.Mutex
	objects    map[string]int64
	presigned  []string
	presignErr error
	statErr    error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string]int64{}}
}

func (s *fakeObjectStore) Bucket() string { return "vendor-documents" }

func (s *fakeObjectStore) PresignPut(ctx context.Context, key, contentType string, size int64, ttl time.Duration) (*objectstore.PresignedRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.presignErr != nil {
		return nil, s.presignErr
	}
	s.presigned = append(s.presigned, key)
	return &objectstore.PresignedRequest{
		URL:       "https://storage.test/" + key + "?X-Amz-Signature=sig",
		Method:    "PUT",
		Headers:   map[string]string{"Content-Type": contentType},
		ExpiresAt: time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC),
	}, nil
}

func (s *fakeObjectStore) Stat(ctx context.Context, key string) (*objectstore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statErr != nil {
		return nil, s.statErr
	}
	size, ok := s.objects[key]
	if !ok {
		return nil, objectstore.ErrObjectNotFound
	}
	return &objectstore.ObjectInfo{Key: key, Size: size}, nil
}

func (s *fakeObjectStore) put(key string, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = size
}

type auditSpy struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (a *auditSpy) Record(ctx context.Context, event *models.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, *event)
}

func (a *auditSpy) ofType(eventType string) []models.AuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	matched := make([]models.AuditEvent, 0)
	for _, e := range a.events {
		if e.EventType == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

type notifierSpy struct {
	links []PortalLink
	err   error
}

func (n *notifierSpy) NotifyPortalLink(ctx context.Context, link PortalLink) error {
	if n.err != nil {
		return n.err
	}
	n.links = append(n.links, link)
	return nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type gatewayHarness struct {
	state     *memoryGateway
	store     *fakeObjectStore
	audit     *auditSpy
	notifier  *notifierSpy
	clock     *testClock
	codec     *token.Codec
	requests  *UploadRequestService
	broker    *UploadBrokerService
	finalizer *FinalizerService
}

func newGatewayHarness(t *testing.T) *gatewayHarness {
	t.Helper()
	codec, err := token.NewCodec("test-pepper")
	require.NoError(t, err)

	h := &gatewayHarness{
		state:    newMemoryGateway(),
		store:    newFakeObjectStore(),
		audit:    &auditSpy{},
		notifier: &notifierSpy{},
		clock:    &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		codec:    codec,
	}
	quota := NewQuotaEnforcer(1_000_000, nil)
	h.requests = NewUploadRequestService(UploadRequestDeps{
		Requests:  memoryRequests{h.state},
		Files:     memoryFiles{h.state},
		Directory: memoryRequests{h.state},
		Trail:     memoryDocuments{h.state},
		Codec:     codec,
		Quota:     quota,
		Audit:     h.audit,
		Notifier:  h.notifier,
	}, UploadRequestServiceConfig{
		DefaultTTL:           72 * time.Hour,
		MaxTTL:               30 * 24 * time.Hour,
		DefaultMaxFiles:      5,
		DefaultMaxTotalBytes: 5_000_000,
		DefaultDocTypes:      []string{"invoice", "quote"},
		PortalBaseURL:        "https://vendors.example.com/upload/",
	})
	h.requests.now = h.clock.Now
	h.broker = NewUploadBrokerService(h.requests, memoryFiles{h.state}, h.store, quota, h.audit, nil, nil, 10*time.Minute, nil)
	h.broker.now = h.clock.Now
	h.finalizer = NewFinalizerService(h.requests, memoryFiles{h.state}, memoryDocuments{h.state}, h.store, h.audit, nil, nil, nil)
	h.finalizer.now = h.clock.Now
	return h
}

func staffActor() *models.JWTClaims {
	return &models.JWTClaims{UserID: testStaffID, OrgID: testOrgID, Role: models.RoleStaff, Email: "staff@example.com"}
}
