package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/middleware"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/models"
)

// UploadTokenHeader carries the vendor secret when it is not in the query string.
const UploadTokenHeader = "X-Upload-Token"

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// uploadToken reads the raw secret; the t query parameter wins over the header.
func uploadToken(c *gin.Context) string {
	if t := strings.TrimSpace(c.Query("t")); t != "" {
		return t
	}
	return strings.TrimSpace(c.GetHeader(UploadTokenHeader))
}
