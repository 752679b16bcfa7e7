package services

import (
	"github.com/lgwanai/email-mcp/internal/models"
)

// Events receives notifications about completed work, typically fanned out
// to connected websocket clients. Implementations must not block.
type Events interface {
	MessageReceived(mailbox string, msg *models.Message)
	ExtractionCompleted(mailbox string, messageUID uint32, rec models.ExtractionRecord)
	CleanupCompleted(removed int, failed int)
}

// NopEvents discards all notifications
type NopEvents struct{}

func (NopEvents) MessageReceived(string, *models.Message)                     {}
func (NopEvents) ExtractionCompleted(string, uint32, models.ExtractionRecord) {}
func (NopEvents) CleanupCompleted(int, int)                                   {}
