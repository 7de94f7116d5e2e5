package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/service"
)

type counterStub struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func newCounterStub() *counterStub {
	return &counterStub{counts: map[string]int{}}
}

func (c *counterStub) Count(ctx context.Context, key string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	return c.counts[key], nil
}

func (c *counterStub) Increment(ctx context.Context, key string, window time.Duration) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	c.counts[key]++
	return c.counts[key], nil
}

func (c *counterStub) Reset(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	delete(c.counts, key)
	return nil
}

func newLimitedRouter(counter AttemptCounter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/upload-requests/:id/status", FailedAttemptLimiter(counter, 2, time.Minute, nil), func(c *gin.Context) {
		if c.Query("t") != "good" {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func call(router *gin.Engine, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "198.51.100.4:5000"
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestFailedAttemptLimiterBlocksAfterFailures(t *testing.T) {
	counter := newCounterStub()
	router := newLimitedRouter(counter)

	assert.Equal(t, http.StatusUnauthorized, call(router, "/upload-requests/r1/status?t=bad").Code)
	assert.Equal(t, http.StatusOK, call(router, "/upload-requests/r1/status?t=good").Code)
	assert.Zero(t, counter.counts["upload:attempts:r1:198.51.100.4"])

	assert.Equal(t, http.StatusUnauthorized, call(router, "/upload-requests/r1/status?t=bad").Code)
	assert.Equal(t, http.StatusUnauthorized, call(router, "/upload-requests/r1/status?t=bad").Code)

	blocked := call(router, "/upload-requests/r1/status?t=good")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "60", blocked.Header().Get("Retry-After"))
	assert.Contains(t, blocked.Body.String(), "TOO_MANY_ATTEMPTS")

	assert.Equal(t, http.StatusOK, call(router, "/upload-requests/r2/status?t=good").Code)
	assert.Equal(t, 2, counter.counts["upload:attempts:r1:198.51.100.4"])
}

func TestFailedAttemptLimiterFailsOpen(t *testing.T) {
	counter := newCounterStub()
	counter.err = errors.New("redis down")
	router := newLimitedRouter(counter)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusUnauthorized, call(router, "/upload-requests/r1/status?t=bad").Code)
	}
	assert.Equal(t, http.StatusOK, call(router, "/upload-requests/r1/status?t=good").Code)
}

func TestMetricsMiddlewareLabelsUnmatchedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	call(router, "/health")
	call(router, "/wp-admin/setup.php")
	call(router, "/.env")

	recorder := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := recorder.Body.String()
	assert.Contains(t, body, `path="/health"`)
	assert.Contains(t, body, `path="unmatched"`)
	assert.NotContains(t, body, "wp-admin")
	require.NotContains(t, body, ".env")
}
