package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/lgwanai/email-mcp/internal/errors"
	"github.com/lgwanai/email-mcp/internal/mailbox"
	"github.com/lgwanai/email-mcp/internal/models"
	"github.com/lgwanai/email-mcp/internal/validator"
)

// Field selects which parts of a message a query is matched against
type Field string

const (
	FieldSubject     Field = "subject"
	FieldSender      Field = "sender"
	FieldRecipients  Field = "recipients"
	FieldBody        Field = "body"
	FieldAttachments Field = "attachments"
)

// defaultFields are searched when the request names none
var defaultFields = []Field{FieldSubject, FieldSender, FieldBody}

// Request is one search page request. The query is matched as a
// case-insensitive substring (a phrase, not split into words) against each
// selected field; a message matches when any selected field contains it.
type Request struct {
	Mailbox  string  `json:"mailbox"`
	Folder   string  `json:"folder,omitempty"`
	Query    string  `json:"query"`
	Fields   []Field `json:"fields,omitempty"`
	PageSize int     `json:"page_size,omitempty"`
	Cursor   string  `json:"cursor,omitempty"`
}

// Match is one search hit
type Match struct {
	UID           uint32    `json:"uid"`
	Subject       string    `json:"subject"`
	Sender        string    `json:"sender"`
	Date          time.Time `json:"date"`
	MatchedFields []string  `json:"matched_fields"`
	Snippet       string    `json:"snippet,omitempty"`
}

// Page is one page of search results. HasMore means the scan stopped before
// the mailbox was exhausted; NextCursor resumes it.
type Page struct {
	Matches    []Match `json:"matches"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor,omitempty"`
	Scanned    int     `json:"scanned"`
}

// Engine scans a mailbox client-side for keyword matches. The mail protocol
// offers no server-side content index, so the engine walks UIDs newest first
// and fetches messages one by one, bounded per page by the scan budget.
type Engine struct {
	scanMultiplier int
}

// NewEngine creates a search engine. Each page call scans at most
// pageSize*scanMultiplier messages before returning a resumable cursor.
func NewEngine(scanMultiplier int) *Engine {
	if scanMultiplier < 1 {
		scanMultiplier = 1
	}
	return &Engine{scanMultiplier: scanMultiplier}
}

// Search produces one result page by scanning conn's folder in strictly
// decreasing UID order, resuming below the request cursor when one is given.
func (e *Engine) Search(ctx context.Context, conn mailbox.Conn, req Request) (*Page, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperrors.NewValidationError("search query is required")
	}
	pageSize := validator.NormalizePageSize(req.PageSize)

	var resumeBelow uint32
	if req.Cursor != "" {
		c, err := decodeCursor(req.Cursor, req.Mailbox, req.Folder)
		if err != nil {
			return nil, err
		}
		resumeBelow = c.LastUID
	}

	uids, err := conn.ListUIDs(ctx, nil, nil)
	if err != nil {
		return nil, err
	}

	fields := req.Fields
	if len(fields) == 0 {
		fields = defaultFields
	}
	loweredQuery := strings.ToLower(query)
	budget := pageSize * e.scanMultiplier

	page := &Page{Matches: []Match{}}
	var lastScanned uint32
	remaining := 0

	for i := len(uids) - 1; i >= 0; i-- {
		uid := uids[i]
		if resumeBelow != 0 && uid >= resumeBelow {
			continue
		}

		if len(page.Matches) >= pageSize || page.Scanned >= budget {
			// uids[0..i] are still unscanned
			remaining = i + 1
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg, err := conn.Fetch(ctx, uid)
		page.Scanned++
		lastScanned = uid
		if err != nil {
			// A single unreadable message must not sink the scan
			slog.Warn("skipping unreadable message during search",
				"mailbox", req.Mailbox, "uid", uid, "error", err)
			continue
		}

		if matched := matchFields(msg, fields, loweredQuery); len(matched) > 0 {
			page.Matches = append(page.Matches, Match{
				UID:           uid,
				Subject:       msg.Subject,
				Sender:        msg.Sender,
				Date:          msg.Date,
				MatchedFields: matched,
				Snippet:       snippet(msg.BodyText, loweredQuery),
			})
		}
	}

	if remaining > 0 {
		page.HasMore = true
		page.NextCursor = encodeCursor(cursor{
			Mailbox: req.Mailbox,
			Folder:  req.Folder,
			LastUID: lastScanned,
		})
	}

	return page, nil
}

// matchFields returns the names of the selected fields containing the query
func matchFields(msg *models.Message, fields []Field, loweredQuery string) []string {
	var matched []string
	for _, field := range fields {
		var value string
		switch field {
		case FieldSubject:
			value = msg.Subject
		case FieldSender:
			value = msg.Sender
		case FieldRecipients:
			value = strings.Join(msg.Recipients, " ") + " " + strings.Join(msg.CC, " ")
		case FieldBody:
			value = msg.BodyText + " " + msg.BodyHTML
		case FieldAttachments:
			value = strings.Join(msg.AttachmentNames(), " ")
		default:
			continue
		}
		if strings.Contains(strings.ToLower(value), loweredQuery) {
			matched = append(matched, string(field))
		}
	}
	return matched
}

// snippet cuts a short context window around the first body occurrence
func snippet(body, loweredQuery string) string {
	const window = 80

	idx := strings.Index(strings.ToLower(body), loweredQuery)
	if idx < 0 {
		if len(body) > 2*window {
			return strings.TrimSpace(body[:2*window]) + "…"
		}
		return strings.TrimSpace(body)
	}

	start := idx - window
	if start < 0 {
		start = 0
	}
	end := idx + len(loweredQuery) + window
	if end > len(body) {
		end = len(body)
	}

	out := strings.TrimSpace(body[start:end])
	if start > 0 {
		out = "…" + out
	}
	if end < len(body) {
		out += "…"
	}
	return out
}
