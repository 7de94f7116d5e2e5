package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/dto"
	appErrors "github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/errors"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/response"
)

type vendorPortal interface {
	Status(ctx context.Context, requestID, rawSecret string) (*dto.VendorUploadStatus, error)
	MarkCompleted(ctx context.Context, requestID, rawSecret, ip string) (*dto.CompleteUploadResponse, error)
}

type uploadBroker interface {
	CreateSignedUploadURL(ctx context.Context, requestID, rawSecret string, meta dto.FileMeta, ip string) (*dto.SignedUploadResponse, error)
}

type uploadFinalizer interface {
	FinalizeUpload(ctx context.Context, requestID, rawSecret, uploadFileID string, body dto.FinalizeUploadRequest, ip string) (*dto.FinalizeUploadResponse, error)
}

// VendorUploadHandler serves the public, token-authorized vendor portal API.
type VendorUploadHandler struct {
	portal    vendorPortal
	broker    uploadBroker
	finalizer uploadFinalizer
}

// NewVendorUploadHandler constructs the handler.
func NewVendorUploadHandler(portal vendorPortal, broker uploadBroker, finalizer uploadFinalizer) *VendorUploadHandler {
	return &VendorUploadHandler{portal: portal, broker: broker, finalizer: finalizer}
}

// Status godoc
// @Summary Vendor upload status
// @Tags VendorUploads
// @Produce json
// @Param id path string true "Upload request ID"
// @Param t query string false "Upload token (or X-Upload-Token header)"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /upload-requests/{id}/status [get]
func (h *VendorUploadHandler) Status(c *gin.Context) {
	status, err := h.portal.Status(c.Request.Context(), c.Param("id"), uploadToken(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

// CreateFile godoc
// @Summary Request a signed upload URL
// @Tags VendorUploads
// @Accept json
// @Produce json
// @Param id path string true "Upload request ID"
// @Param t query string false "Upload token (or X-Upload-Token header)"
// @Param payload body dto.FileMeta true "File metadata"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /upload-requests/{id}/files [post]
func (h *VendorUploadHandler) CreateFile(c *gin.Context) {
	var meta dto.FileMeta
	if err := c.ShouldBindJSON(&meta); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	signed, err := h.broker.CreateSignedUploadURL(c.Request.Context(), c.Param("id"), uploadToken(c), meta, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, signed)
}

// Finalize godoc
// @Summary Finalize an uploaded file
// @Tags VendorUploads
// @Accept json
// @Produce json
// @Param id path string true "Upload request ID"
// @Param fileId path string true "Upload file ID"
// @Param t query string false "Upload token (or X-Upload-Token header)"
// @Param payload body dto.FinalizeUploadRequest false "Content metadata"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /upload-requests/{id}/files/{fileId}/finalize [post]
func (h *VendorUploadHandler) Finalize(c *gin.Context) {
	var body dto.FinalizeUploadRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	result, err := h.finalizer.FinalizeUpload(c.Request.Context(), c.Param("id"), uploadToken(c), c.Param("fileId"), body, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Complete godoc
// @Summary Complete an upload request
// @Tags VendorUploads
// @Produce json
// @Param id path string true "Upload request ID"
// @Param t query string false "Upload token (or X-Upload-Token header)"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /upload-requests/{id}/complete [post]
func (h *VendorUploadHandler) Complete(c *gin.Context) {
	result, err := h.portal.MarkCompleted(c.Request.Context(), c.Param("id"), uploadToken(c), c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
