package mailbox

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	apperrors "github.com/lgwanai/email-mcp/internal/errors"
	"github.com/lgwanai/email-mcp/internal/models"
)

// IMAPSource opens IMAP sessions for one account
type IMAPSource struct {
	account *models.Account
}

// NewIMAPSource creates a source for the given account
func NewIMAPSource(account *models.Account) *IMAPSource {
	return &IMAPSource{account: account}
}

// Open dials the account's IMAP server, authenticates and selects folder.
// An empty folder selects the account's default folder.
func (s *IMAPSource) Open(_ context.Context, folder string) (Conn, error) {
	if !s.account.HasCapability(models.CapabilityRetrieval) {
		return nil, apperrors.NewAppError(apperrors.ErrCapabilityMissing,
			fmt.Sprintf("account %s has no retrieval server configured", s.account.Address),
			apperrors.CodeCapabilityMissing)
	}

	addr := fmt.Sprintf("%s:%d", s.account.IMAPHost, s.account.IMAPPort)

	var client *imapclient.Client
	var err error
	if s.account.IMAPUseSSL {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, apperrors.NewConnectionError(addr, err)
	}

	username := s.account.Username
	if username == "" {
		username = s.account.Address
	}
	if err := client.Login(username, s.account.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, apperrors.NewAppError(apperrors.ErrUnauthorized,
			fmt.Sprintf("authentication failed for %s: %v", username, err),
			apperrors.CodeUnauthorized)
	}

	if folder == "" {
		folder = s.account.DefaultFolder
	}
	if folder == "" {
		folder = "INBOX"
	}
	if _, err := client.Select(folder, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, apperrors.NewConnectionError(addr,
			fmt.Errorf("selecting folder %s: %w", folder, err))
	}

	slog.Debug("mailbox session opened", "account", s.account.Address, "folder", folder)

	return &imapConn{client: client, mailbox: s.account.Address, folder: folder}, nil
}

// imapConn is one selected-folder IMAP session
type imapConn struct {
	client  *imapclient.Client
	mailbox string
	folder  string
}

func (c *imapConn) ListUIDs(_ context.Context, since, before *time.Time) ([]uint32, error) {
	criteria := &imap.SearchCriteria{}
	if since != nil {
		criteria.Since = *since
	}
	if before != nil {
		criteria.Before = *before
	}

	data, err := c.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, apperrors.NewConnectionError(c.mailbox,
			fmt.Errorf("searching folder %s: %w", c.folder, err))
	}

	raw := data.AllUIDs()
	uids := make([]uint32, 0, len(raw))
	for _, uid := range raw {
		uids = append(uids, uint32(uid))
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	return uids, nil
}

func (c *imapConn) Fetch(_ context.Context, uid uint32) (*models.Message, error) {
	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := c.client.Fetch(imap.UIDSetNum(imap.UID(uid)), &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	msgData := fetchCmd.Next()
	if msgData == nil {
		return nil, apperrors.NewAppError(apperrors.ErrMessageNotFound,
			fmt.Sprintf("message %d not found in %s", uid, c.folder),
			apperrors.CodeNotFound)
	}

	buf, err := msgData.Collect()
	if err != nil {
		return nil, apperrors.NewConnectionError(c.mailbox,
			fmt.Errorf("fetching message %d: %w", uid, err))
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return nil, apperrors.NewAppError(apperrors.ErrMessageNotFound,
			fmt.Sprintf("message %d has no retrievable body", uid),
			apperrors.CodeNotFound)
	}

	msg, err := ParseRaw(c.mailbox, uid, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message %d: %w", uid, err)
	}
	msg.Folder = c.folder

	// Prefer envelope metadata when the parsed headers came up empty
	if buf.Envelope != nil {
		if msg.Subject == "" {
			msg.Subject = buf.Envelope.Subject
		}
		if msg.Sender == "" && len(buf.Envelope.From) > 0 {
			msg.Sender = buf.Envelope.From[0].Addr()
		}
		if msg.Date.IsZero() {
			msg.Date = buf.Envelope.Date
		}
	}

	return msg, nil
}

func (c *imapConn) Close() error {
	return c.client.Logout().Wait()
}
