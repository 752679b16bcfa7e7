package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lgwanai/email-mcp/internal/api/response"
	"github.com/lgwanai/email-mcp/internal/models"
	"github.com/lgwanai/email-mcp/internal/search"
	"github.com/lgwanai/email-mcp/internal/services"
)

// MessageHandler handles message retrieval, sending and search requests
type MessageHandler struct {
	messages services.MessageService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messages services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// Fetch handles POST /api/accounts/:address/messages/fetch
func (h *MessageHandler) Fetch(c echo.Context) error {
	var filter models.FetchFilter
	if err := c.Bind(&filter); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	messages, err := h.messages.Fetch(c.Request().Context(), c.Param("address"), filter)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messages)
}

// Send handles POST /api/accounts/:address/messages/send
func (h *MessageHandler) Send(c echo.Context) error {
	var msg models.OutgoingMessage
	if err := c.Bind(&msg); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if len(msg.To) == 0 {
		return response.BadRequest(c, "at least one recipient is required")
	}

	if err := h.messages.Send(c.Request().Context(), c.Param("address"), &msg); err != nil {
		return response.Error(c, err)
	}

	return response.SuccessWithMessage(c, nil, "message sent")
}

// Search handles GET /api/accounts/:address/search
func (h *MessageHandler) Search(c echo.Context) error {
	req := search.Request{
		Mailbox:  c.Param("address"),
		Folder:   c.QueryParam("folder"),
		Query:    c.QueryParam("q"),
		Cursor:   c.QueryParam("cursor"),
		PageSize: queryInt(c, "page_size"),
	}
	if fields := c.QueryParam("fields"); fields != "" {
		for _, f := range strings.Split(fields, ",") {
			req.Fields = append(req.Fields, search.Field(strings.TrimSpace(f)))
		}
	}

	page, err := h.messages.Search(c.Request().Context(), req)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, page)
}
