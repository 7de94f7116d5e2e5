package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/errors"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/objectstore"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/response"
)

type localObjectSink interface {
	Verify(key, token string) (int64, error)
	Write(key string, r io.Reader, maxBytes int64) (int64, error)
}

// LocalStorageHandler accepts PUTs signed by the local object store. Development only.
type LocalStorageHandler struct {
	sink   localObjectSink
	logger *zap.Logger
}

// NewLocalStorageHandler constructs the sink handler.
func NewLocalStorageHandler(sink localObjectSink, logger *zap.Logger) *LocalStorageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalStorageHandler{sink: sink, logger: logger}
}

// Put stores the request body under the signed key.
func (h *LocalStorageHandler) Put(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	maxBytes, err := h.sink.Verify(key, c.Query("token"))
	if err != nil {
		if errors.Is(err, objectstore.ErrUploadTokenExpired) {
			response.Error(c, appErrors.ErrTokenExpired)
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "upload signature is invalid"))
		return
	}
	if c.Request.ContentLength > maxBytes {
		response.Error(c, appErrors.ErrFileTooLarge)
		return
	}

	written, err := h.sink.Write(key, c.Request.Body, maxBytes)
	if err != nil {
		switch {
		case errors.Is(err, objectstore.ErrObjectTooLarge):
			response.Error(c, appErrors.ErrFileTooLarge)
		case errors.Is(err, objectstore.ErrInvalidKey):
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid object key"))
		default:
			h.logger.Error("failed to write local object", zap.String("key", key), zap.Error(err))
			response.Error(c, appErrors.Infrastructure(err, appErrors.ErrStorageUnavailable))
		}
		return
	}
	h.logger.Debug("local object stored", zap.String("key", key), zap.Int64("bytes", written))
	c.Status(http.StatusOK)
}
