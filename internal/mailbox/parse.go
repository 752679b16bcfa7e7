package mailbox

import (
	"bytes"
	"net/mail"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/lgwanai/email-mcp/internal/models"
)

// ParseRaw parses a raw RFC 5322 message into a Message with decoded bodies
// and attachment payloads. Inline parts carrying a filename count as
// attachments too.
func ParseRaw(mailboxAddr string, uid uint32, raw []byte) (*models.Message, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		UID:        uid,
		Mailbox:    mailboxAddr,
		Subject:    env.GetHeader("Subject"),
		Sender:     firstAddress(env.GetHeader("From")),
		Recipients: addressList(env.GetHeader("To")),
		CC:         addressList(env.GetHeader("Cc")),
		BodyText:   env.Text,
		BodyHTML:   env.HTML,
	}

	if date, err := mail.ParseDate(env.GetHeader("Date")); err == nil {
		msg.Date = date
	}

	for _, att := range env.Attachments {
		msg.Attachments = append(msg.Attachments, attachmentRef(att))
	}
	for _, att := range env.Inlines {
		if att.FileName != "" {
			msg.Attachments = append(msg.Attachments, attachmentRef(att))
		}
	}

	return msg, nil
}

func attachmentRef(part *enmime.Part) models.AttachmentRef {
	return models.AttachmentRef{
		Filename:       part.FileName,
		ContentType:    part.ContentType,
		DeclaredSize:   int64(len(part.Content)),
		DownloadStatus: models.DownloadPending,
		Payload:        part.Content,
	}
}

// firstAddress extracts the first address from a header value, falling back
// to the raw value when it does not parse
func firstAddress(header string) string {
	addrs := addressList(header)
	if len(addrs) == 0 {
		return strings.TrimSpace(header)
	}
	return addrs[0]
}

// addressList extracts the bare addresses from a To/Cc style header value
func addressList(header string) []string {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}

	parsed, err := mail.ParseAddressList(header)
	if err != nil {
		// Keep whatever the header carried rather than dropping recipients
		var out []string
		for _, part := range strings.Split(header, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}

	out := make([]string, 0, len(parsed))
	for _, addr := range parsed {
		out = append(out, addr.Address)
	}
	return out
}
