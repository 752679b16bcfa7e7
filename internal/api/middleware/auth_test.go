package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func invokeAuth(t *testing.T, apiKey, path, header string) (*httptest.ResponseRecorder, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)

	handler := APIKeyAuth(apiKey, nil)(func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})
	return rec, handler(c)
}

func TestAPIKeyAuth_MissingHeader(t *testing.T) {
	_, err := invokeAuth(t, "test-api-key", "/api/test", "")
	assert.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestAPIKeyAuth_InvalidKey(t *testing.T) {
	_, err := invokeAuth(t, "test-api-key", "/api/test", "Bearer wrong-key")
	assert.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestAPIKeyAuth_ValidKey(t *testing.T) {
	rec, err := invokeAuth(t, "test-api-key", "/api/test", "Bearer test-api-key")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuth_HealthEndpointSkipsAuth(t *testing.T) {
	rec, err := invokeAuth(t, "test-api-key", "/health", "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuth_ReadyEndpointSkipsAuth(t *testing.T) {
	rec, err := invokeAuth(t, "test-api-key", "/ready", "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuth_NoKeyConfigured(t *testing.T) {
	rec, err := invokeAuth(t, "", "/api/test", "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}
