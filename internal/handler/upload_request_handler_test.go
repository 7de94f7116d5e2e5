package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/dto"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/models"
	appErrors "github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/errors"
)

type fakeUploadRequestAdmin struct {
	createReq   dto.CreateUploadRequest
	createActor *models.JWTClaims
	createIP    string
	createErr   error
	filter      dto.UploadRequestListFilter
	revokeID    string
	getErr      error
}

func (f *fakeUploadRequestAdmin) Create(_ context.Context, actor *models.JWTClaims, req dto.CreateUploadRequest, ip string) (*dto.CreateUploadRequestResponse, error) {
	f.createReq, f.createActor, f.createIP = req, actor, ip
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &dto.CreateUploadRequestResponse{RequestID: "req-1", RawSecret: "secret", ExpiresAt: time.Now(), PortalURL: "https://portal/req-1?t=secret"}, nil
}

func (f *fakeUploadRequestAdmin) List(_ context.Context, _ *models.JWTClaims, filter dto.UploadRequestListFilter) ([]models.UploadRequest, *models.Pagination, error) {
	f.filter = filter
	return []models.UploadRequest{{ID: "req-1", TokenHash: "hash"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (f *fakeUploadRequestAdmin) Get(_ context.Context, _ *models.JWTClaims, id string) (*dto.UploadRequestDetail, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &dto.UploadRequestDetail{UploadRequest: models.UploadRequest{ID: id, TokenHash: "hash"}}, nil
}

func (f *fakeUploadRequestAdmin) Revoke(_ context.Context, _ *models.JWTClaims, id, _ string) (*models.UploadRequest, error) {
	f.revokeID = id
	return &models.UploadRequest{ID: id, Status: models.UploadRequestRevoked}, nil
}

func TestUploadRequestHandlerCreate(t *testing.T) {
	svc := &fakeUploadRequestAdmin{}
	handler := NewUploadRequestHandler(svc)
	c, rec := newTestContext(http.MethodPost, "/upload-requests", map[string]interface{}{
		"workOrderId": "wo-1",
		"vendorId":    "vendor-1",
		"email":       "vendor@example.com",
		"maxFiles":    2,
	})
	c.Request.RemoteAddr = "203.0.113.9:1234"
	claims := withStaff(c)

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assertNoStore(t, rec)
	assert.Equal(t, claims, svc.createActor)
	assert.Equal(t, "203.0.113.9", svc.createIP)
	require.NotNil(t, svc.createReq.MaxFiles)
	assert.Equal(t, 2, *svc.createReq.MaxFiles)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "secret", envelope.Data["rawSecret"])
}

func TestUploadRequestHandlerCreateErrors(t *testing.T) {
	handler := NewUploadRequestHandler(&fakeUploadRequestAdmin{})
	c, rec := newTestContext(http.MethodPost, "/upload-requests", nil)
	c.Request.Body = http.NoBody
	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	handler = NewUploadRequestHandler(&fakeUploadRequestAdmin{createErr: appErrors.Clone(appErrors.ErrNotFound, "vendor not found")})
	c, rec = newTestContext(http.MethodPost, "/upload-requests", map[string]string{"workOrderId": "wo", "vendorId": "v", "email": "a@b.co"})
	handler.Create(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Error["code"])
}

func TestUploadRequestHandlerList(t *testing.T) {
	svc := &fakeUploadRequestAdmin{}
	handler := NewUploadRequestHandler(svc)
	c, rec := newTestContext(http.MethodGet, "/upload-requests?status=pending&page=2&pageSize=10&vendorId=v1", nil)
	withStaff(c)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.UploadRequestListFilter{VendorID: "v1", Status: models.UploadRequestPending, Page: 2, PageSize: 10}, svc.filter)
	assert.NotContains(t, rec.Body.String(), "hash")
	var listed struct {
		Data       []map[string]interface{} `json:"data"`
		Pagination models.Pagination        `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, "req-1", listed.Data[0]["id"])
	assert.Equal(t, 1, listed.Pagination.TotalCount)

	c, rec = newTestContext(http.MethodGet, "/upload-requests?page=abc", nil)
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRequestHandlerDetailsAndRevoke(t *testing.T) {
	svc := &fakeUploadRequestAdmin{}
	handler := NewUploadRequestHandler(svc)

	c, rec := newTestContext(http.MethodGet, "/upload-requests/req-9/details", nil)
	c.Params = gin.Params{{Key: "id", Value: "req-9"}}
	handler.Details(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-9", decodeEnvelope(t, rec).Data["id"])
	assert.NotContains(t, rec.Body.String(), "hash")

	c, rec = newTestContext(http.MethodPost, "/upload-requests/req-9/revoke", nil)
	c.Params = gin.Params{{Key: "id", Value: "req-9"}}
	handler.Revoke(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-9", svc.revokeID)
	assert.Equal(t, "revoked", decodeEnvelope(t, rec).Data["status"])

	handler = NewUploadRequestHandler(&fakeUploadRequestAdmin{getErr: appErrors.ErrNotFound})
	c, rec = newTestContext(http.MethodGet, "/upload-requests/x/details", nil)
	handler.Details(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
