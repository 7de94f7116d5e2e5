package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/dto"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/models"
	appErrors "github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/errors"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/response"
)

type uploadRequestAdmin interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateUploadRequest, ip string) (*dto.CreateUploadRequestResponse, error)
	List(ctx context.Context, actor *models.JWTClaims, filter dto.UploadRequestListFilter) ([]models.UploadRequest, *models.Pagination, error)
	Get(ctx context.Context, actor *models.JWTClaims, requestID string) (*dto.UploadRequestDetail, error)
	Revoke(ctx context.Context, actor *models.JWTClaims, requestID, ip string) (*models.UploadRequest, error)
}

// UploadRequestHandler exposes staff endpoints for upload requests.
type UploadRequestHandler struct {
	service uploadRequestAdmin
}

// NewUploadRequestHandler constructs the handler.
func NewUploadRequestHandler(service uploadRequestAdmin) *UploadRequestHandler {
	return &UploadRequestHandler{service: service}
}

// Create godoc
// @Summary Create vendor upload request
// @Description Returns the raw upload secret exactly once.
// @Tags UploadRequests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateUploadRequest true "Upload request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /upload-requests [post]
func (h *UploadRequestHandler) Create(c *gin.Context) {
	var req dto.CreateUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List upload requests
// @Tags UploadRequests
// @Produce json
// @Security BearerAuth
// @Param workOrderId query string false "Work order ID"
// @Param vendorId query string false "Vendor ID"
// @Param status query string false "Status"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /upload-requests [get]
func (h *UploadRequestHandler) List(c *gin.Context) {
	filter := dto.UploadRequestListFilter{
		WorkOrderID: c.Query("workOrderId"),
		VendorID:    c.Query("vendorId"),
		Status:      models.UploadRequestStatus(c.Query("status")),
	}
	var err error
	if filter.Page, err = optionalInt(c, "page"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.PageSize, err = optionalInt(c, "pageSize"); err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Details godoc
// @Summary Upload request details
// @Tags UploadRequests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Upload request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /upload-requests/{id}/details [get]
func (h *UploadRequestHandler) Details(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// Revoke godoc
// @Summary Revoke upload request
// @Tags UploadRequests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Upload request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /upload-requests/{id}/revoke [post]
func (h *UploadRequestHandler) Revoke(c *gin.Context) {
	result, err := h.service.Revoke(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func optionalInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, key+" must be a positive integer")
	}
	return v, nil
}
