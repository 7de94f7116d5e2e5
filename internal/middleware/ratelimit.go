package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/repository"
	appErrors "github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/errors"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/response"
)

// AttemptCounter tracks failed token attempts per key.
type AttemptCounter interface {
	Count(ctx context.Context, key string) (int, error)
	Increment(ctx context.Context, key string, window time.Duration) (int, error)
	Reset(ctx context.Context, key string) error
}

// FailedAttemptLimiter blocks a client from a request id after too many rejected tokens.
// A successful call clears the client's count.
// Counter errors fail open so a Redis outage never locks vendors out.
func FailedAttemptLimiter(counter AttemptCounter, maxFailures int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	retryAfter := strconv.Itoa(int(window.Seconds()))
	return func(c *gin.Context) {
		if counter == nil || maxFailures <= 0 {
			c.Next()
			return
		}
		key := repository.AttemptKey(c.ClientIP(), c.Param("id"))

		failures, err := counter.Count(c.Request.Context(), key)
		if err != nil {
			logger.Warn("attempt limiter unavailable", zap.Error(err))
		} else if failures >= maxFailures {
			c.Header("Retry-After", retryAfter)
			response.Error(c, appErrors.ErrTooManyAttempts)
			return
		}

		c.Next()

		status := c.Writer.Status()
		switch {
		case status == http.StatusUnauthorized:
			if _, err := counter.Increment(c.Request.Context(), key, window); err != nil {
				logger.Warn("failed to record token attempt", zap.Error(err))
			}
		case status < http.StatusBadRequest && failures > 0:
			if err := counter.Reset(c.Request.Context(), key); err != nil {
				logger.Warn("failed to reset token attempts", zap.Error(err))
			}
		}
	}
}
