package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(header string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, Value(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(headerKey, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddlewareKeepsClientID(t *testing.T) {
	w := serve("req-123")
	assert.Equal(t, "req-123", w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get(headerKey))
}

func TestMiddlewareReplacesUnsafeID(t *testing.T) {
	w := serve("bad id\twith spaces")
	assert.NotEqual(t, "bad id\twith spaces", w.Body.String())
	assert.Len(t, w.Body.String(), 36)

	w = serve(strings.Repeat("a", maxLength+1))
	assert.Len(t, w.Body.String(), 36)
}
