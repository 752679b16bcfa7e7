package mailbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	apperrors "github.com/lgwanai/email-mcp/internal/errors"
	"github.com/lgwanai/email-mcp/internal/models"
)

// SMTPSender delivers outgoing messages through the account's SMTP server
type SMTPSender struct {
	account *models.Account
}

// NewSMTPSender creates a sender for the given account
func NewSMTPSender(account *models.Account) *SMTPSender {
	return &SMTPSender{account: account}
}

// Send composes and delivers msg. Attachment paths are read from local disk
// at send time.
func (s *SMTPSender) Send(_ context.Context, msg *models.OutgoingMessage) error {
	if !s.account.HasCapability(models.CapabilitySend) {
		return apperrors.NewAppError(apperrors.ErrCapabilityMissing,
			fmt.Sprintf("account %s has no send server configured", s.account.Address),
			apperrors.CodeCapabilityMissing)
	}
	if len(msg.To) == 0 {
		return apperrors.NewValidationError("at least one recipient is required")
	}

	raw, err := composeMessage(s.account, msg)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.account.SMTPHost, s.account.SMTPPort)
	client, err := s.dial(addr)
	if err != nil {
		return apperrors.NewConnectionError(addr, err)
	}
	defer client.Close()

	username := s.account.Username
	if username == "" {
		username = s.account.Address
	}
	if err := client.Auth(sasl.NewPlainClient("", username, s.account.Password)); err != nil {
		return apperrors.NewAppError(apperrors.ErrUnauthorized,
			fmt.Sprintf("authentication failed for %s: %v", username, err),
			apperrors.CodeUnauthorized)
	}

	if err := client.Mail(s.account.Address, nil); err != nil {
		return apperrors.NewConnectionError(addr, err)
	}
	for _, rcpt := range allRecipients(msg) {
		if err := client.Rcpt(rcpt, nil); err != nil {
			return apperrors.NewConnectionError(addr,
				fmt.Errorf("recipient %s rejected: %w", rcpt, err))
		}
	}

	w, err := client.Data()
	if err != nil {
		return apperrors.NewConnectionError(addr, err)
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return apperrors.NewConnectionError(addr, err)
	}
	if err := w.Close(); err != nil {
		return apperrors.NewConnectionError(addr, err)
	}

	slog.Info("message sent",
		"account", s.account.Address,
		"recipients", len(allRecipients(msg)),
		"attachments", len(msg.AttachmentPaths))

	return client.Quit()
}

// dial connects with implicit TLS on port 465, STARTTLS otherwise
func (s *SMTPSender) dial(addr string) (*smtp.Client, error) {
	if s.account.SMTPPort == 465 {
		return smtp.DialTLS(addr, nil)
	}
	if s.account.SMTPUseTLS {
		return smtp.DialStartTLS(addr, nil)
	}
	return smtp.Dial(addr)
}

// composeMessage builds the MIME message: multipart body with the plain and
// HTML alternatives, plus one attachment part per local file
func composeMessage(account *models.Account, msg *models.OutgoingMessage) ([]byte, error) {
	var buf bytes.Buffer

	from := []*mail.Address{{Name: account.DisplayName, Address: account.Address}}

	var header gomail.Header
	header.SetDate(time.Now())
	header.SetAddressList("From", from)
	header.SetAddressList("To", toAddressList(msg.To))
	if len(msg.CC) > 0 {
		header.SetAddressList("Cc", toAddressList(msg.CC))
	}
	header.SetSubject(msg.Subject)
	header.SetMsgIDList("Message-Id", []string{messageID(account.Address)})

	mw, err := gomail.CreateWriter(&buf, header)
	if err != nil {
		return nil, fmt.Errorf("failed to compose message: %w", err)
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to compose message body: %w", err)
	}
	if msg.Body != "" || msg.HTMLBody == "" {
		var th gomail.InlineHeader
		th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
		part, err := iw.CreatePart(th)
		if err != nil {
			return nil, fmt.Errorf("failed to compose message body: %w", err)
		}
		io.WriteString(part, msg.Body)
		part.Close()
	}
	if msg.HTMLBody != "" {
		var hh gomail.InlineHeader
		hh.SetContentType("text/html", map[string]string{"charset": "utf-8"})
		part, err := iw.CreatePart(hh)
		if err != nil {
			return nil, fmt.Errorf("failed to compose message body: %w", err)
		}
		io.WriteString(part, msg.HTMLBody)
		part.Close()
	}
	iw.Close()

	for _, path := range msg.AttachmentPaths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.NewAppError(apperrors.ErrStorageFailure,
				fmt.Sprintf("cannot read attachment %s: %v", path, err),
				apperrors.CodeStorageFailure)
		}

		var ah gomail.AttachmentHeader
		ah.SetFilename(filepath.Base(path))
		ah.Set("Content-Type", mimetype.Detect(content).String())

		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, fmt.Errorf("failed to attach %s: %w", filepath.Base(path), err)
		}
		if _, err := aw.Write(content); err != nil {
			aw.Close()
			return nil, fmt.Errorf("failed to attach %s: %w", filepath.Base(path), err)
		}
		aw.Close()
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compose message: %w", err)
	}
	return buf.Bytes(), nil
}

func toAddressList(addrs []string) []*mail.Address {
	out := make([]*mail.Address, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, &mail.Address{Address: strings.TrimSpace(addr)})
	}
	return out
}

func allRecipients(msg *models.OutgoingMessage) []string {
	out := make([]string, 0, len(msg.To)+len(msg.CC)+len(msg.BCC))
	out = append(out, msg.To...)
	out = append(out, msg.CC...)
	out = append(out, msg.BCC...)
	return out
}

func messageID(address string) string {
	domain := "localhost"
	if at := strings.LastIndex(address, "@"); at >= 0 && at < len(address)-1 {
		domain = address[at+1:]
	}
	return fmt.Sprintf("%s@%s", uuid.NewString(), domain)
}
