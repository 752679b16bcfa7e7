package handlers

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lgwanai/email-mcp/internal/api/response"
	"github.com/lgwanai/email-mcp/internal/services"
)

// StorageHandler handles attachment-store administration requests
type StorageHandler struct {
	attachments services.AttachmentService

	// Default age bound for cleanup runs without an explicit max_age_days
	defaultMaxAge time.Duration
}

// NewStorageHandler creates a new StorageHandler
func NewStorageHandler(attachments services.AttachmentService, defaultMaxAge time.Duration) *StorageHandler {
	return &StorageHandler{attachments: attachments, defaultMaxAge: defaultMaxAge}
}

// Stats handles GET /api/storage/stats
func (h *StorageHandler) Stats(c echo.Context) error {
	stats, err := h.attachments.Stats(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, stats)
}

// cleanupRequest optionally overrides the configured age bound
type cleanupRequest struct {
	MaxAgeDays int `json:"max_age_days"`
}

// Cleanup handles POST /api/storage/cleanup
func (h *StorageHandler) Cleanup(c echo.Context) error {
	var req cleanupRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	maxAge := h.defaultMaxAge
	if req.MaxAgeDays > 0 {
		maxAge = time.Duration(req.MaxAgeDays) * 24 * time.Hour
	}
	if maxAge <= 0 {
		return response.BadRequest(c, "max_age_days must be positive")
	}

	result, err := h.attachments.Cleanup(c.Request().Context(), maxAge)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, result)
}
