package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/loops-hq/loops-backend/internal/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDMiddleware_Generates(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())

	var fromCtx string
	r.GET("/x", func(c *gin.Context) {
		fromCtx = logging.RequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	rid := w.Header().Get(HeaderRequestID)
	assert.Len(t, rid, 32)
	assert.Equal(t, rid, fromCtx)
}

func TestRequestIDMiddleware_ReusesHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())

	var fromGin string
	r.GET("/x", func(c *gin.Context) {
		fromGin = c.GetString("request_id")
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
	assert.Equal(t, "abc-123", fromGin)
}

func TestRateLimiter_PerKey(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	fixed = fixed.Add(time.Second)
	assert.True(t, rl.Allow("a"))
}

func TestRateLimiter_PrunesIdle(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	rl.Allow("a")
	fixed = fixed.Add(time.Hour)
	rl.Allow("b")

	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "b")
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	r := gin.New()
	r.POST("/x", rl.Middleware(func(c *gin.Context) string { return c.GetHeader("X-User-Id") }), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set("X-User-Id", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("u1"))
	assert.Equal(t, http.StatusTooManyRequests, do("u1"))
	assert.Equal(t, http.StatusOK, do("u2"))
}
