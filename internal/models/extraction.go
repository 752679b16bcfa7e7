package models

import (
	"time"
)

// ExtractionRecord is the audit entry for one archive-extraction call. One
// record is appended to the per-message extraction log per call, including
// failed ones.
type ExtractionRecord struct {
	ID             string    `json:"id"`
	SourceArchive  string    `json:"source_archive"`
	Destination    string    `json:"destination"`
	ArchiveCount   int       `json:"archive_count"`
	FileCount      int       `json:"file_count"`
	Nested         bool      `json:"nested"`
	Failed         bool      `json:"failed,omitempty"`
	FailureReason  string    `json:"failure_reason,omitempty"`
	NestedFailures []string  `json:"nested_failures,omitempty"`
	ExtractedAt    time.Time `json:"extracted_at"`
}

// ExtractionLog is the extraction_log.json document inside a message
// directory. Records persist until age-based cleanup removes the directory.
type ExtractionLog struct {
	Mailbox    string             `json:"mailbox"`
	MessageUID uint32             `json:"message_uid"`
	Records    []ExtractionRecord `json:"records"`
}

// ExtractionEntry is the durable metadata-index row mirroring one extraction
// record, queryable across messages.
type ExtractionEntry struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RecordID      string    `gorm:"uniqueIndex;size:50" json:"record_id"`
	Mailbox       string    `gorm:"not null;index:idx_extractions_message;size:255" json:"mailbox"`
	MessageUID    uint32    `gorm:"not null;index:idx_extractions_message" json:"message_uid"`
	SourceArchive string    `gorm:"size:500" json:"source_archive"`
	Destination   string    `gorm:"size:500" json:"destination"`
	ArchiveCount  int       `json:"archive_count"`
	FileCount     int       `json:"file_count"`
	Failed        bool      `gorm:"default:false" json:"failed"`
	ExtractedAt   time.Time `json:"extracted_at"`
}

// TableName returns the table name for ExtractionEntry
func (ExtractionEntry) TableName() string {
	return "extraction_entries"
}
