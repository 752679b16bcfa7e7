package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/lgwanai/email-mcp/internal/api/response"
	"github.com/lgwanai/email-mcp/internal/models"
	"github.com/lgwanai/email-mcp/internal/services"
)

// AccountHandler handles mail account HTTP requests
type AccountHandler struct {
	accounts services.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts services.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// accountRequest is the registration and update payload. The model never
// serializes the password, so requests bind through this type, which does
// accept it.
type accountRequest struct {
	Address       string `json:"address"`
	DisplayName   string `json:"display_name"`
	Protocol      string `json:"protocol"`
	IMAPHost      string `json:"imap_host"`
	IMAPPort      int    `json:"imap_port"`
	IMAPUseSSL    *bool  `json:"imap_use_ssl"`
	SMTPHost      string `json:"smtp_host"`
	SMTPPort      int    `json:"smtp_port"`
	SMTPUseTLS    *bool  `json:"smtp_use_tls"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	DefaultFolder string `json:"default_folder"`
}

// apply copies the provided fields onto account. Absent strings, zero ports
// and omitted flags leave the existing values alone.
func (r *accountRequest) apply(account *models.Account) {
	if r.Address != "" {
		account.Address = r.Address
	}
	if r.DisplayName != "" {
		account.DisplayName = r.DisplayName
	}
	if r.Protocol != "" {
		account.Protocol = r.Protocol
	}
	if r.IMAPHost != "" {
		account.IMAPHost = r.IMAPHost
	}
	if r.IMAPPort != 0 {
		account.IMAPPort = r.IMAPPort
	}
	if r.IMAPUseSSL != nil {
		account.IMAPUseSSL = *r.IMAPUseSSL
	}
	if r.SMTPHost != "" {
		account.SMTPHost = r.SMTPHost
	}
	if r.SMTPPort != 0 {
		account.SMTPPort = r.SMTPPort
	}
	if r.SMTPUseTLS != nil {
		account.SMTPUseTLS = *r.SMTPUseTLS
	}
	if r.Username != "" {
		account.Username = r.Username
	}
	if r.Password != "" {
		account.Password = r.Password
	}
	if r.DefaultFolder != "" {
		account.DefaultFolder = r.DefaultFolder
	}
}

// Create handles POST /api/accounts
func (h *AccountHandler) Create(c echo.Context) error {
	var req accountRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	var account models.Account
	req.apply(&account)

	created, err := h.accounts.Register(c.Request().Context(), &account)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, created)
}

// List handles GET /api/accounts
func (h *AccountHandler) List(c echo.Context) error {
	accounts, err := h.accounts.List(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, accounts)
}

// Get handles GET /api/accounts/:address
func (h *AccountHandler) Get(c echo.Context) error {
	account, err := h.accounts.Get(c.Request().Context(), c.Param("address"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, account)
}

// Update handles PUT /api/accounts/:address
func (h *AccountHandler) Update(c echo.Context) error {
	account, err := h.accounts.Get(c.Request().Context(), c.Param("address"))
	if err != nil {
		return response.Error(c, err)
	}

	var req accountRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	req.apply(account)

	if err := h.accounts.Update(c.Request().Context(), account); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, account)
}

// Delete handles DELETE /api/accounts/:address
func (h *AccountHandler) Delete(c echo.Context) error {
	if err := h.accounts.Delete(c.Request().Context(), c.Param("address")); err != nil {
		return response.Error(c, err)
	}
	return response.NoContent(c)
}
