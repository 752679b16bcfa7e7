package mailbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgwanai/email-mcp/internal/models"
)

const rawWithAttachment = "From: Alice Example <alice@example.com>\r\n" +
	"To: bob@example.com, carol@example.com\r\n" +
	"Cc: dave@example.com\r\n" +
	"Subject: Monthly figures\r\n" +
	"Date: Mon, 02 Jun 2025 10:30:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"frontier\"\r\n" +
	"\r\n" +
	"--frontier\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Figures attached.\r\n" +
	"--frontier\r\n" +
	"Content-Type: text/csv\r\n" +
	"Content-Disposition: attachment; filename=\"figures.csv\"\r\n" +
	"\r\n" +
	"month,revenue\r\njan,100\r\n" +
	"--frontier--\r\n"

func TestParseRaw(t *testing.T) {
	msg, err := ParseRaw("me@example.com", 77, []byte(rawWithAttachment))
	require.NoError(t, err)

	assert.Equal(t, uint32(77), msg.UID)
	assert.Equal(t, "me@example.com", msg.Mailbox)
	assert.Equal(t, "Monthly figures", msg.Subject)
	assert.Equal(t, "alice@example.com", msg.Sender)
	assert.Equal(t, []string{"bob@example.com", "carol@example.com"}, msg.Recipients)
	assert.Equal(t, []string{"dave@example.com"}, msg.CC)
	assert.Contains(t, msg.BodyText, "Figures attached.")
	assert.Equal(t, 2025, msg.Date.Year())

	require.Len(t, msg.Attachments, 1)
	att := msg.Attachments[0]
	assert.Equal(t, "figures.csv", att.Filename)
	assert.Equal(t, models.DownloadPending, att.DownloadStatus)
	assert.Contains(t, string(att.Payload), "month,revenue")
	assert.Equal(t, int64(len(att.Payload)), att.DeclaredSize)
}

func TestParseRaw_PlainMessageWithoutAttachments(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: Hello\r\n" +
		"\r\n" +
		"Just a greeting.\r\n"

	msg, err := ParseRaw("me@example.com", 1, []byte(raw))
	require.NoError(t, err)

	assert.Empty(t, msg.Attachments)
	assert.Contains(t, msg.BodyText, "Just a greeting.")
	assert.Empty(t, msg.BodyHTML)
}

func TestParseRaw_InlineWithFilenameCountsAsAttachment(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: Photo\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"b\"\r\n" +
		"\r\n" +
		"--b\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"See inline.\r\n" +
		"--b\r\n" +
		"Content-Type: image/png\r\n" +
		"Content-Disposition: inline; filename=\"pic.png\"\r\n" +
		"\r\n" +
		"PNGDATA\r\n" +
		"--b--\r\n"

	msg, err := ParseRaw("me@example.com", 2, []byte(raw))
	require.NoError(t, err)

	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "pic.png", msg.Attachments[0].Filename)
}

func TestAddressList_FallbackOnUnparsableHeader(t *testing.T) {
	out := addressList("not really an address,, still-not@")
	assert.NotEmpty(t, out)
	assert.NotContains(t, strings.Join(out, ","), ",,")
}
