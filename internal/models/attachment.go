package models

import (
	"time"
)

// Download status values for an attachment
const (
	DownloadPending = "pending"
	DownloadSuccess = "success"
	DownloadFailed  = "failed"
)

// AttachmentRef describes one attachment of a message: its declared metadata
// from the mail part and, once persisted, its storage-relative path and
// download outcome.
type AttachmentRef struct {
	Filename       string `json:"filename"`
	ContentType    string `json:"content_type,omitempty"`
	DeclaredSize   int64  `json:"declared_size,omitempty"`
	StoredPath     string `json:"stored_path,omitempty"`
	DownloadStatus string `json:"download_status"`
	FailureReason  string `json:"failure_reason,omitempty"`

	// Payload carries the decoded bytes between fetch and store; never
	// serialized into the metadata document.
	Payload []byte `json:"-"`
}

// AttachmentDoc is the per-message attachment-metadata document persisted as
// attachments.json inside the message directory.
type AttachmentDoc struct {
	Mailbox     string          `json:"mailbox"`
	MessageUID  uint32          `json:"message_uid"`
	SavedAt     time.Time       `json:"saved_at"`
	Total       int             `json:"total"`
	Succeeded   int             `json:"succeeded"`
	Attachments []AttachmentRef `json:"attachments"`
}

// StoredFile is a concrete file under the attachment store's
// {mailbox}/{message_uid}/ directory layout.
type StoredFile struct {
	Mailbox    string    `json:"mailbox"`
	MessageUID uint32    `json:"message_uid"`
	RelPath    string    `json:"rel_path"`
	Size       int64     `json:"size"`
	ModTime    time.Time `json:"mod_time"`
}

// Attachment is the durable metadata-index row mirroring a stored attachment,
// used for storage statistics and cross-message queries.
type Attachment struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Mailbox     string `gorm:"not null;uniqueIndex:idx_attachments_file;size:255" json:"mailbox"`
	MessageUID  uint32 `gorm:"not null;uniqueIndex:idx_attachments_file" json:"message_uid"`
	Filename    string `gorm:"size:255;uniqueIndex:idx_attachments_file" json:"filename"`
	ContentType string `gorm:"size:100" json:"content_type"`
	FilePath    string `gorm:"size:500" json:"file_path"`
	SizeBytes   int64  `json:"size_bytes"`
	Status      string `gorm:"size:20;default:pending" json:"status"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Attachment
func (Attachment) TableName() string {
	return "attachments"
}
