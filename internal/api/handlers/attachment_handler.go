package handlers

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lgwanai/email-mcp/internal/api/response"
	"github.com/lgwanai/email-mcp/internal/services"
)

// AttachmentHandler handles stored-attachment HTTP requests
type AttachmentHandler struct {
	attachments services.AttachmentService
}

// NewAttachmentHandler creates a new AttachmentHandler
func NewAttachmentHandler(attachments services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments}
}

// messageUID parses the :uid route parameter
func messageUID(c echo.Context) (uint32, error) {
	uid, err := strconv.ParseUint(c.Param("uid"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(uid), nil
}

// queryInt parses an integer query parameter, zero when absent or malformed
func queryInt(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return v
}

// List handles GET /api/accounts/:address/messages/:uid/attachments
func (h *AttachmentHandler) List(c echo.Context) error {
	uid, err := messageUID(c)
	if err != nil {
		return response.BadRequest(c, "invalid message UID")
	}

	listing, err := h.attachments.List(c.Request().Context(), c.Param("address"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, listing)
}

// extractRequest names the archive to unpack, relative to the message
// directory
type extractRequest struct {
	Path string `json:"path"`
}

// Extract handles POST /api/accounts/:address/messages/:uid/attachments/extract
func (h *AttachmentHandler) Extract(c echo.Context) error {
	uid, err := messageUID(c)
	if err != nil {
		return response.BadRequest(c, "invalid message UID")
	}

	var req extractRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.Path == "" {
		return response.BadRequest(c, "path is required")
	}

	rec, err := h.attachments.Extract(c.Request().Context(), c.Param("address"), uid, req.Path)
	if err != nil {
		// The failed attempt is still recorded; return it with the error code
		return response.Error(c, err)
	}

	return response.Success(c, rec)
}

// Read handles GET /api/accounts/:address/messages/:uid/attachments/content.
// With as_text=true the content is converted to readable text, otherwise the
// raw bytes are returned inline.
func (h *AttachmentHandler) Read(c echo.Context) error {
	uid, err := messageUID(c)
	if err != nil {
		return response.BadRequest(c, "invalid message UID")
	}

	relPath := c.QueryParam("path")
	if relPath == "" {
		return response.BadRequest(c, "path query parameter is required")
	}
	asText, _ := strconv.ParseBool(c.QueryParam("as_text"))

	result, err := h.attachments.Read(c.Request().Context(), c.Param("address"), uid, relPath, asText)
	if err != nil {
		return response.Error(c, err)
	}

	if asText {
		return response.Success(c, result)
	}
	return c.Blob(200, "application/octet-stream", result.Raw)
}

// Download handles GET /api/accounts/:address/messages/:uid/attachments/download
func (h *AttachmentHandler) Download(c echo.Context) error {
	uid, err := messageUID(c)
	if err != nil {
		return response.BadRequest(c, "invalid message UID")
	}

	relPath := c.QueryParam("path")
	if relPath == "" {
		return response.BadRequest(c, "path query parameter is required")
	}

	result, err := h.attachments.Read(c.Request().Context(), c.Param("address"), uid, relPath, false)
	if err != nil {
		return response.Error(c, err)
	}

	c.Response().Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, result.Filename))
	return c.Blob(200, "application/octet-stream", result.Raw)
}
