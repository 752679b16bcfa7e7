package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/lgwanai/email-mcp/internal/models"
)

// ExtractionRepository defines the interface for the extraction metadata index
type ExtractionRepository interface {
	Record(ctx context.Context, entry *models.ExtractionEntry) error
	ListByMessage(ctx context.Context, mailbox string, messageUID uint32) ([]models.ExtractionEntry, error)
	DeleteByMessage(ctx context.Context, mailbox string, messageUID uint32) (int64, error)
}

// extractionRepository implements ExtractionRepository using GORM
type extractionRepository struct {
	db *gorm.DB
}

// NewExtractionRepository creates a new ExtractionRepository instance
func NewExtractionRepository(db *gorm.DB) ExtractionRepository {
	return &extractionRepository{db: db}
}

// Record inserts the index row mirroring one extraction-log record
func (r *extractionRepository) Record(ctx context.Context, entry *models.ExtractionEntry) error {
	result := r.db.WithContext(ctx).Create(entry)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("extraction record '%s' already indexed: %w", entry.RecordID, ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to index extraction record: %w", result.Error)
	}
	return nil
}

// ListByMessage returns one message's extraction entries, oldest first
func (r *extractionRepository) ListByMessage(ctx context.Context, mailbox string, messageUID uint32) ([]models.ExtractionEntry, error) {
	var entries []models.ExtractionEntry
	result := r.db.WithContext(ctx).
		Where("mailbox = ? AND message_uid = ?", mailbox, messageUID).
		Order("extracted_at ASC").
		Find(&entries)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list extraction entries: %w", result.Error)
	}
	return entries, nil
}

// DeleteByMessage drops all extraction entries of one message
func (r *extractionRepository) DeleteByMessage(ctx context.Context, mailbox string, messageUID uint32) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("mailbox = ? AND message_uid = ?", mailbox, messageUID).
		Delete(&models.ExtractionEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete extraction entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}
