package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lgwanai/email-mcp/internal/archive"
	"github.com/lgwanai/email-mcp/internal/convert"
	apperrors "github.com/lgwanai/email-mcp/internal/errors"
	"github.com/lgwanai/email-mcp/internal/models"
	"github.com/lgwanai/email-mcp/internal/repository"
	"github.com/lgwanai/email-mcp/internal/storage"
)

// StorageStats combines filesystem totals with the metadata index view
type StorageStats struct {
	Filesystem   storage.Stats `json:"filesystem"`
	IndexedFiles int64         `json:"indexed_files"`
	IndexedBytes int64         `json:"indexed_bytes"`
}

// CleanupResult reports one age-based cleanup run
type CleanupResult struct {
	RemovedDirs int      `json:"removed_dirs"`
	Failed      []string `json:"failed,omitempty"`
}

// ReadResult carries one attachment read, raw or converted
type ReadResult struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Text        string `json:"text,omitempty"`
	Raw         []byte `json:"raw,omitempty"`
}

// AttachmentService defines the interface for stored-attachment operations
type AttachmentService interface {
	// List enumerates a message directory: files, extraction trees and the
	// extraction summary.
	List(ctx context.Context, mailboxAddr string, messageUID uint32) (*storage.Listing, error)

	// Extract unpacks one stored archive and records the outcome in the
	// message's extraction log, failed attempts included.
	Extract(ctx context.Context, mailboxAddr string, messageUID uint32, relPath string) (*models.ExtractionRecord, error)

	// Read returns one stored file, converted to text or raw.
	Read(ctx context.Context, mailboxAddr string, messageUID uint32, relPath string, asText bool) (*ReadResult, error)

	// Stats totals the store's disk usage.
	Stats(ctx context.Context) (*StorageStats, error)

	// Cleanup removes message directories older than maxAge.
	Cleanup(ctx context.Context, maxAge time.Duration) (*CleanupResult, error)
}

// attachmentService implements AttachmentService
type attachmentService struct {
	store       *storage.Store
	extractor   *archive.Extractor
	pipeline    *convert.Pipeline
	attachments repository.AttachmentRepository
	extractions repository.ExtractionRepository
	events      Events
}

// NewAttachmentService creates a new AttachmentService instance
func NewAttachmentService(
	store *storage.Store,
	extractor *archive.Extractor,
	pipeline *convert.Pipeline,
	attachments repository.AttachmentRepository,
	extractions repository.ExtractionRepository,
	events Events,
) AttachmentService {
	if events == nil {
		events = NopEvents{}
	}
	return &attachmentService{
		store:       store,
		extractor:   extractor,
		pipeline:    pipeline,
		attachments: attachments,
		extractions: extractions,
		events:      events,
	}
}

// List enumerates a message directory
func (s *attachmentService) List(_ context.Context, mailboxAddr string, messageUID uint32) (*storage.Listing, error) {
	return s.store.List(mailboxAddr, messageUID)
}

// Extract unpacks the archive at relPath into a sibling directory. The
// per-message lock is held for the whole operation so concurrent extractions
// and deletes of the same message serialize. Every attempt, failed ones
// included, lands in the extraction log.
func (s *attachmentService) Extract(ctx context.Context, mailboxAddr string, messageUID uint32, relPath string) (*models.ExtractionRecord, error) {
	release := s.store.LockMessage(mailboxAddr, messageUID)
	defer release()

	absPath, stored, err := s.store.Get(mailboxAddr, messageUID, relPath)
	if err != nil {
		return nil, err
	}

	rec := models.ExtractionRecord{
		ID:            uuid.NewString(),
		SourceArchive: stored.RelPath,
		ExtractedAt:   time.Now(),
	}

	result, extractErr := s.extractor.Extract(absPath)
	if extractErr != nil {
		rec.Failed = true
		rec.FailureReason = extractErr.Error()
	} else {
		if result.Destination != "" {
			rec.Destination = filepath.Base(result.Destination)
		}
		rec.ArchiveCount = result.ArchiveCount
		rec.FileCount = result.FileCount
		rec.Nested = result.Nested
		rec.NestedFailures = result.Failures
	}

	if err := s.store.AppendExtractionRecord(mailboxAddr, messageUID, rec); err != nil {
		slog.Warn("extraction log write failed",
			"mailbox", mailboxAddr, "uid", messageUID, "error", err)
	}
	if err := s.extractions.Record(ctx, &models.ExtractionEntry{
		RecordID:      rec.ID,
		Mailbox:       mailboxAddr,
		MessageUID:    messageUID,
		SourceArchive: rec.SourceArchive,
		Destination:   rec.Destination,
		ArchiveCount:  rec.ArchiveCount,
		FileCount:     rec.FileCount,
		Failed:        rec.Failed,
		ExtractedAt:   rec.ExtractedAt,
	}); err != nil {
		slog.Warn("extraction index update failed",
			"mailbox", mailboxAddr, "uid", messageUID, "error", err)
	}

	if extractErr != nil {
		s.events.ExtractionCompleted(mailboxAddr, messageUID, rec)
		return &rec, extractErr
	}

	slog.Info("archive extracted",
		"mailbox", mailboxAddr,
		"uid", messageUID,
		"archive", rec.SourceArchive,
		"files", rec.FileCount,
		"nested", rec.Nested)

	s.events.ExtractionCompleted(mailboxAddr, messageUID, rec)
	return &rec, nil
}

// Read returns a stored file's content, converted to text when asText is set
func (s *attachmentService) Read(ctx context.Context, mailboxAddr string, messageUID uint32, relPath string, asText bool) (*ReadResult, error) {
	absPath, stored, err := s.store.Get(mailboxAddr, messageUID, relPath)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrStorageFailure,
			"failed to read "+stored.RelPath, apperrors.CodeStorageFailure)
	}

	result := &ReadResult{Filename: stored.RelPath}
	if !asText {
		result.Raw = content
		return result, nil
	}

	text, err := s.pipeline.ToText(ctx, stored.RelPath, content)
	if err != nil {
		return nil, err
	}
	result.Text = text
	return result, nil
}

// Stats totals the store's disk usage and the metadata index
func (s *attachmentService) Stats(ctx context.Context) (*StorageStats, error) {
	fsStats, err := s.store.Stats()
	if err != nil {
		return nil, err
	}

	count, bytes, err := s.attachments.Totals(ctx)
	if err != nil {
		return nil, err
	}

	return &StorageStats{
		Filesystem:   *fsStats,
		IndexedFiles: count,
		IndexedBytes: bytes,
	}, nil
}

// Cleanup removes message directories older than maxAge together with their
// index rows
func (s *attachmentService) Cleanup(ctx context.Context, maxAge time.Duration) (*CleanupResult, error) {
	removed, failed, err := s.store.DeleteOlderThan(maxAge)
	if err != nil {
		return nil, err
	}

	for _, msg := range removed {
		if _, err := s.attachments.DeleteByMessage(ctx, msg.Mailbox, msg.MessageUID); err != nil {
			slog.Warn("attachment index cleanup failed",
				"mailbox", msg.Mailbox, "uid", msg.MessageUID, "error", err)
		}
		if _, err := s.extractions.DeleteByMessage(ctx, msg.Mailbox, msg.MessageUID); err != nil {
			slog.Warn("extraction index cleanup failed",
				"mailbox", msg.Mailbox, "uid", msg.MessageUID, "error", err)
		}
	}

	slog.Info("storage cleanup finished",
		"removed_dirs", len(removed),
		"failed", len(failed))

	s.events.CleanupCompleted(len(removed), len(failed))

	return &CleanupResult{RemovedDirs: len(removed), Failed: failed}, nil
}
