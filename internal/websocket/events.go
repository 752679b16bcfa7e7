package websocket

import (
	"time"

	"github.com/lgwanai/email-mcp/internal/models"
)

// EventBridge adapts hub broadcasts to the service-layer notification
// interface. Broadcasts are buffered channel sends, so the bridge never
// blocks a service call.
type EventBridge struct {
	hub *Hub
}

// NewEventBridge creates an EventBridge on top of a running hub
func NewEventBridge(hub *Hub) *EventBridge {
	return &EventBridge{hub: hub}
}

// MessageReceived notifies a mailbox's subscribers about a fetched message
func (b *EventBridge) MessageReceived(mailbox string, msg *models.Message) {
	b.hub.Broadcast(MessageTypeNewMessage, mailbox, &NewMessagePayload{
		UID:             msg.UID,
		Folder:          msg.Folder,
		Sender:          msg.Sender,
		Subject:         msg.Subject,
		Date:            msg.Date.Format(time.RFC3339),
		AttachmentCount: len(msg.Attachments),
	})
}

// ExtractionCompleted notifies a mailbox's subscribers about a finished
// extraction, failed attempts included
func (b *EventBridge) ExtractionCompleted(mailbox string, messageUID uint32, rec models.ExtractionRecord) {
	b.hub.Broadcast(MessageTypeExtraction, mailbox, &ExtractionPayload{
		MessageUID:    messageUID,
		SourceArchive: rec.SourceArchive,
		Destination:   rec.Destination,
		FileCount:     rec.FileCount,
		Failed:        rec.Failed,
	})
}

// CleanupCompleted notifies every connected client about a cleanup run
func (b *EventBridge) CleanupCompleted(removed int, failed int) {
	b.hub.Broadcast(MessageTypeCleanup, "", &CleanupPayload{
		RemovedDirs: removed,
		Failed:      failed,
	})
}
