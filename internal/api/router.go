package api

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/lgwanai/email-mcp/internal/api/handlers"
	"github.com/lgwanai/email-mcp/internal/api/middleware"
	"github.com/lgwanai/email-mcp/internal/services"
	"github.com/lgwanai/email-mcp/internal/websocket"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	DB          *gorm.DB
	Accounts    services.AccountService
	Messages    services.MessageService
	Attachments services.AttachmentService
	Hub         *websocket.Hub
	Logger      *slog.Logger

	// Default age bound for manual cleanup requests
	CleanupMaxAge time.Duration

	// Security configuration
	APIKey         string   // API key for authentication (empty = disabled)
	AllowedOrigins []string // Allowed CORS origins
	RateLimit      float64  // Requests per second (0 = default)
	RateBurst      int      // Burst size for rate limiter
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.SecureHeaders())
	e.Use(middleware.SecureCORS(cfg.AllowedOrigins))
	e.Use(middleware.RateLimiter(cfg.RateLimit, cfg.RateBurst, cfg.Logger))
	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}

	healthHandler := handlers.NewHealthHandler(cfg.DB)
	accountHandler := handlers.NewAccountHandler(cfg.Accounts)
	messageHandler := handlers.NewMessageHandler(cfg.Messages)
	attachmentHandler := handlers.NewAttachmentHandler(cfg.Attachments)
	storageHandler := handlers.NewStorageHandler(cfg.Attachments, cfg.CleanupMaxAge)

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	// Event subscriptions
	if cfg.Hub != nil {
		wsHandler := handlers.NewWSHandler(cfg.Hub,
			websocket.NewSecureUpgrader(cfg.AllowedOrigins, cfg.Logger), cfg.Logger)
		e.GET("/ws", wsHandler.Connect)
	}

	// API routes
	api := e.Group("/api")
	api.Use(middleware.APIKeyAuth(cfg.APIKey, cfg.Logger))

	// Account routes
	accounts := api.Group("/accounts")
	accounts.POST("", accountHandler.Create)
	accounts.GET("", accountHandler.List)
	accounts.GET("/:address", accountHandler.Get)
	accounts.PUT("/:address", accountHandler.Update)
	accounts.DELETE("/:address", accountHandler.Delete)

	// Message routes (nested under accounts)
	accounts.POST("/:address/messages/fetch", messageHandler.Fetch)
	accounts.POST("/:address/messages/send", messageHandler.Send)
	accounts.GET("/:address/search", messageHandler.Search)

	// Attachment routes (nested under messages)
	messages := accounts.Group("/:address/messages/:uid")
	messages.GET("/attachments", attachmentHandler.List)
	messages.POST("/attachments/extract", attachmentHandler.Extract)
	messages.GET("/attachments/content", attachmentHandler.Read)
	messages.GET("/attachments/download", attachmentHandler.Download)

	// Storage administration
	storage := api.Group("/storage")
	storage.GET("/stats", storageHandler.Stats)
	storage.POST("/cleanup", storageHandler.Cleanup)

	return e
}
