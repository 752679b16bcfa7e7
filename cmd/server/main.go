package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lgwanai/email-mcp/internal/api"
	"github.com/lgwanai/email-mcp/internal/archive"
	"github.com/lgwanai/email-mcp/internal/config"
	"github.com/lgwanai/email-mcp/internal/convert"
	"github.com/lgwanai/email-mcp/internal/cron"
	"github.com/lgwanai/email-mcp/internal/database"
	"github.com/lgwanai/email-mcp/internal/logger"
	"github.com/lgwanai/email-mcp/internal/repository"
	"github.com/lgwanai/email-mcp/internal/search"
	"github.com/lgwanai/email-mcp/internal/services"
	"github.com/lgwanai/email-mcp/internal/storage"
	"github.com/lgwanai/email-mcp/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithValidation()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log := logger.New(cfg.LogLevel)
	cfg.LogConfig(log)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	store, err := storage.NewStore(cfg.AttachmentStoragePath)
	if err != nil {
		return fmt.Errorf("open attachment store: %w", err)
	}
	store.MaxFileSize = cfg.MaxAttachmentSize

	var converter convert.RichConverter
	if cfg.ConverterURL != "" {
		converter = convert.NewHTTPConverter(cfg.ConverterURL, cfg.ConverterTimeout)
	}
	pipeline := convert.NewPipeline(converter)

	hub := websocket.NewHub(log)
	go hub.Run()
	events := websocket.NewEventBridge(hub)

	accountRepo := repository.NewAccountRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	extractionRepo := repository.NewExtractionRepository(db)

	accounts := services.NewAccountService(accountRepo)
	attachments := services.NewAttachmentService(
		store, archive.NewExtractor(), pipeline,
		attachmentRepo, extractionRepo, events)
	messages := services.NewMessageService(
		accounts, store, attachmentRepo,
		search.NewEngine(cfg.SearchScanMultiplier), events)

	scheduler := cron.NewCleanupScheduler(attachments, cfg.CleanupSchedule, cfg.CleanupMaxAge)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("start cleanup scheduler: %w", err)
	}
	defer scheduler.Stop()

	var origins []string
	if cfg.AllowedOrigins != "" {
		origins = strings.Split(cfg.AllowedOrigins, ",")
	}

	e := api.NewRouter(&api.RouterConfig{
		DB:             db,
		Accounts:       accounts,
		Messages:       messages,
		Attachments:    attachments,
		Hub:            hub,
		Logger:         log,
		CleanupMaxAge:  cfg.CleanupMaxAge,
		APIKey:         cfg.APIKey,
		AllowedOrigins: origins,
		RateLimit:      cfg.RateLimitRequests,
		RateBurst:      cfg.RateLimitBurst,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		slog.Info("api server listening", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
