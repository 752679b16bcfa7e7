package search

import (
	"encoding/base64"
	"encoding/json"

	apperrors "github.com/lgwanai/email-mcp/internal/errors"
)

// cursor marks where a paged scan stopped. The next page resumes strictly
// below LastUID, so a message is never yielded twice even if the mailbox
// grows between pages.
type cursor struct {
	Mailbox string `json:"m"`
	Folder  string `json:"f"`
	LastUID uint32 `json:"u"`
}

// encodeCursor serializes a cursor into an opaque page token
func encodeCursor(c cursor) string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// decodeCursor parses a page token and checks it belongs to the same scan
func decodeCursor(token, mailbox, folder string) (cursor, error) {
	var c cursor

	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return c, apperrors.NewValidationError("malformed page cursor")
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, apperrors.NewValidationError("malformed page cursor")
	}
	if c.Mailbox != mailbox || c.Folder != folder {
		return c, apperrors.NewValidationError("page cursor belongs to a different mailbox")
	}
	if c.LastUID == 0 {
		return c, apperrors.NewValidationError("malformed page cursor")
	}
	return c, nil
}
