package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func rateLimitedEcho(rps float64, burst int) *echo.Echo {
	e := echo.New()
	e.Use(RateLimiter(rps, burst, nil))
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})
	return e
}

func TestRateLimiter_WithinLimit(t *testing.T) {
	e := rateLimitedEcho(10, 20)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter_ExceedsLimit(t *testing.T) {
	e := rateLimitedEcho(1, 1)

	req1 := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec1 := httptest.NewRecorder()
	e.ServeHTTP(rec1, req1)
	assert.Equal(t, http.StatusOK, rec1.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec2 := httptest.NewRecorder()
	e.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
	assert.Equal(t, "60", rec2.Header().Get("Retry-After"))
}

func TestRateLimiter_PerIPIsolation(t *testing.T) {
	e := rateLimitedEcho(1, 1)

	req1 := httptest.NewRequest(http.MethodGet, "/test", nil)
	req1.Header.Set("X-Real-IP", "192.168.1.1")
	rec1 := httptest.NewRecorder()
	e.ServeHTTP(rec1, req1)
	assert.Equal(t, http.StatusOK, rec1.Code)

	// Different IP gets its own bucket
	req2 := httptest.NewRequest(http.MethodGet, "/test", nil)
	req2.Header.Set("X-Real-IP", "192.168.1.2")
	rec2 := httptest.NewRecorder()
	e.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)

	req3 := httptest.NewRequest(http.MethodGet, "/test", nil)
	req3.Header.Set("X-Real-IP", "192.168.1.1")
	rec3 := httptest.NewRecorder()
	e.ServeHTTP(rec3, req3)
	assert.Equal(t, http.StatusTooManyRequests, rec3.Code)
}

func TestRateLimiter_BurstAllowed(t *testing.T) {
	e := rateLimitedEcho(1, 5)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestIPRateLimiter_GetLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(10, 20)

	l1 := limiter.GetLimiter("192.168.1.1")
	assert.NotNil(t, l1)

	l2 := limiter.GetLimiter("192.168.1.1")
	assert.Same(t, l1, l2)

	l3 := limiter.GetLimiter("192.168.1.2")
	assert.NotSame(t, l1, l3)
}

func TestIPRateLimiter_Reset(t *testing.T) {
	limiter := NewIPRateLimiter(10, 20)

	l1 := limiter.GetLimiter("192.168.1.1")
	limiter.Reset()

	l2 := limiter.GetLimiter("192.168.1.1")
	assert.NotSame(t, l1, l2)
}
