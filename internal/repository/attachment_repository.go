package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lgwanai/email-mcp/internal/models"
)

// AttachmentRepository defines the interface for the attachment metadata index
type AttachmentRepository interface {
	Upsert(ctx context.Context, attachment *models.Attachment) error
	ListByMessage(ctx context.Context, mailbox string, messageUID uint32) ([]models.Attachment, error)
	DeleteByMessage(ctx context.Context, mailbox string, messageUID uint32) (int64, error)
	Totals(ctx context.Context) (count int64, bytes int64, err error)
}

// attachmentRepository implements AttachmentRepository using GORM
type attachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository creates a new AttachmentRepository instance
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

// Upsert inserts the index row for one stored attachment, replacing the row
// for a re-downloaded file
func (r *attachmentRepository) Upsert(ctx context.Context, attachment *models.Attachment) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "mailbox"}, {Name: "message_uid"}, {Name: "filename"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"content_type", "file_path", "size_bytes", "status",
		}),
	}).Create(attachment)
	if result.Error != nil {
		return fmt.Errorf("failed to index attachment: %w", result.Error)
	}
	return nil
}

// ListByMessage returns the indexed attachments of one message
func (r *attachmentRepository) ListByMessage(ctx context.Context, mailbox string, messageUID uint32) ([]models.Attachment, error) {
	var attachments []models.Attachment
	result := r.db.WithContext(ctx).
		Where("mailbox = ? AND message_uid = ?", mailbox, messageUID).
		Order("filename ASC").
		Find(&attachments)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", result.Error)
	}
	return attachments, nil
}

// DeleteByMessage drops all index rows of one message
func (r *attachmentRepository) DeleteByMessage(ctx context.Context, mailbox string, messageUID uint32) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("mailbox = ? AND message_uid = ?", mailbox, messageUID).
		Delete(&models.Attachment{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete attachment index rows: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Totals returns the indexed attachment count and total byte size
func (r *attachmentRepository) Totals(ctx context.Context) (int64, int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Attachment{}).Count(&count).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count attachments: %w", err)
	}

	var bytes int64
	err := r.db.WithContext(ctx).Model(&models.Attachment{}).
		Select("COALESCE(SUM(size_bytes), 0)").Scan(&bytes).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sum attachment sizes: %w", err)
	}
	return count, bytes, nil
}
