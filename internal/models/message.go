package models

import (
	"time"
)

// Message represents a mail message fetched from a mailbox source. Messages
// are transient: they are derived per request and never persisted whole, only
// their attachment payloads become stored files. The UID is unique only
// within one mailbox+folder.
type Message struct {
	UID         uint32          `json:"uid"`
	Mailbox     string          `json:"mailbox"`
	Folder      string          `json:"folder"`
	Sender      string          `json:"sender"`
	Recipients  []string        `json:"recipients"`
	CC          []string        `json:"cc,omitempty"`
	BCC         []string        `json:"bcc,omitempty"`
	Subject     string          `json:"subject"`
	BodyText    string          `json:"body_text,omitempty"`
	BodyHTML    string          `json:"body_html,omitempty"`
	Date        time.Time       `json:"date"`
	Attachments []AttachmentRef `json:"attachments,omitempty"`
}

// AttachmentNames returns the decoded filenames of all attachments, used by
// the attachment-filename search scope.
func (m *Message) AttachmentNames() []string {
	names := make([]string, 0, len(m.Attachments))
	for _, att := range m.Attachments {
		names = append(names, att.Filename)
	}
	return names
}

// FetchFilter narrows a mailbox retrieval request
type FetchFilter struct {
	Folder      string     `json:"folder"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Limit       int        `json:"limit"`
	StartUID    uint32     `json:"start_uid,omitempty"`
	NewestFirst bool       `json:"newest_first"`
}

// OutgoingMessage describes a message to be sent through an account's send
// capability
type OutgoingMessage struct {
	To              []string `json:"to"`
	CC              []string `json:"cc,omitempty"`
	BCC             []string `json:"bcc,omitempty"`
	Subject         string   `json:"subject"`
	Body            string   `json:"body"`
	HTMLBody        string   `json:"html_body,omitempty"`
	AttachmentPaths []string `json:"attachment_paths,omitempty"`
}
