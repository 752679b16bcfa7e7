package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lgwanai/email-mcp/internal/mailbox"
	"github.com/lgwanai/email-mcp/internal/models"
	"github.com/lgwanai/email-mcp/internal/repository"
	"github.com/lgwanai/email-mcp/internal/search"
	"github.com/lgwanai/email-mcp/internal/storage"
	"github.com/lgwanai/email-mcp/internal/validator"
)

// MessageService defines the interface for message retrieval, sending and
// mailbox search
type MessageService interface {
	// Fetch retrieves messages per filter, persisting their attachments.
	// Attachment failures are reported per item, never failing the batch.
	Fetch(ctx context.Context, address string, filter models.FetchFilter) ([]*models.Message, error)

	// Send composes and delivers an outgoing message.
	Send(ctx context.Context, address string, msg *models.OutgoingMessage) error

	// Search produces one page of keyword matches.
	Search(ctx context.Context, req search.Request) (*search.Page, error)
}

// messageService implements MessageService
type messageService struct {
	accounts    AccountService
	store       *storage.Store
	attachments repository.AttachmentRepository
	engine      *search.Engine
	events      Events

	// Injection points for the protocol clients, swapped out in tests
	sourceFor func(*models.Account) mailbox.Source
	senderFor func(*models.Account) mailbox.Sender
}

// NewMessageService creates a new MessageService instance
func NewMessageService(
	accounts AccountService,
	store *storage.Store,
	attachments repository.AttachmentRepository,
	engine *search.Engine,
	events Events,
) MessageService {
	if events == nil {
		events = NopEvents{}
	}
	return &messageService{
		accounts:    accounts,
		store:       store,
		attachments: attachments,
		engine:      engine,
		events:      events,
		sourceFor:   func(a *models.Account) mailbox.Source { return mailbox.NewIMAPSource(a) },
		senderFor:   func(a *models.Account) mailbox.Sender { return mailbox.NewSMTPSender(a) },
	}
}

// Fetch retrieves messages and stores their attachments under the message
// directory. One failing attachment marks that item failed and the batch
// continues; the overall call still succeeds with per-item detail.
func (s *messageService) Fetch(ctx context.Context, address string, filter models.FetchFilter) ([]*models.Message, error) {
	account, err := s.accounts.Get(ctx, address)
	if err != nil {
		return nil, err
	}

	conn, err := s.sourceFor(account).Open(ctx, filter.Folder)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	uids, err := conn.ListUIDs(ctx, filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, err
	}
	uids = applyWindow(uids, filter)

	messages := make([]*models.Message, 0, len(uids))
	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return messages, err
		}

		msg, err := conn.Fetch(ctx, uid)
		if err != nil {
			slog.Warn("skipping unfetchable message",
				"mailbox", address, "uid", uid, "error", err)
			continue
		}

		if len(msg.Attachments) > 0 {
			s.persistAttachments(ctx, account.Address, msg)
		}

		messages = append(messages, msg)
		s.events.MessageReceived(account.Address, msg)
	}

	slog.Info("messages fetched",
		"mailbox", address,
		"folder", filter.Folder,
		"count", len(messages))

	return messages, nil
}

// applyWindow keeps the requested slice of the UID range. The limit keeps
// the newest messages; NewestFirst additionally reverses the result order.
func applyWindow(uids []uint32, filter models.FetchFilter) []uint32 {
	if filter.StartUID > 0 {
		kept := uids[:0]
		for _, uid := range uids {
			if uid >= filter.StartUID {
				kept = append(kept, uid)
			}
		}
		uids = kept
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = validator.DefaultPageSize
	}
	if len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	if filter.NewestFirst {
		reversed := make([]uint32, len(uids))
		for i, uid := range uids {
			reversed[len(uids)-1-i] = uid
		}
		return reversed
	}
	return uids
}

// persistAttachments writes each attachment payload to the store and records
// the outcome per item in the message's metadata document and the index
func (s *messageService) persistAttachments(ctx context.Context, address string, msg *models.Message) {
	release := s.store.LockMessage(address, msg.UID)
	defer release()

	doc := &models.AttachmentDoc{
		Mailbox:    address,
		MessageUID: msg.UID,
		SavedAt:    time.Now(),
		Total:      len(msg.Attachments),
	}

	for i := range msg.Attachments {
		att := &msg.Attachments[i]

		stored, err := s.store.Put(address, msg.UID, att.Filename, att.Payload)
		if err != nil {
			att.DownloadStatus = models.DownloadFailed
			att.FailureReason = err.Error()
			slog.Warn("attachment download failed",
				"mailbox", address, "uid", msg.UID,
				"filename", att.Filename, "error", err)
		} else {
			att.DownloadStatus = models.DownloadSuccess
			att.StoredPath = stored.RelPath
			doc.Succeeded++

			if err := s.attachments.Upsert(ctx, &models.Attachment{
				Mailbox:     address,
				MessageUID:  msg.UID,
				Filename:    stored.RelPath,
				ContentType: att.ContentType,
				FilePath:    fmt.Sprintf("%s/%d/%s", address, msg.UID, stored.RelPath),
				SizeBytes:   stored.Size,
				Status:      models.DownloadSuccess,
			}); err != nil {
				slog.Warn("attachment index update failed",
					"mailbox", address, "uid", msg.UID, "error", err)
			}
		}

		// Payloads are only needed for the store write
		att.Payload = nil
	}

	doc.Attachments = msg.Attachments
	if err := s.store.SaveAttachmentDoc(doc); err != nil {
		slog.Warn("attachment metadata write failed",
			"mailbox", address, "uid", msg.UID, "error", err)
	}
}

// Send delivers an outgoing message through the account's send server
func (s *messageService) Send(ctx context.Context, address string, msg *models.OutgoingMessage) error {
	account, err := s.accounts.Get(ctx, address)
	if err != nil {
		return err
	}
	return s.senderFor(account).Send(ctx, msg)
}

// Search scans the account's folder for keyword matches, one bounded page
// per call
func (s *messageService) Search(ctx context.Context, req search.Request) (*search.Page, error) {
	account, err := s.accounts.Get(ctx, req.Mailbox)
	if err != nil {
		return nil, err
	}

	conn, err := s.sourceFor(account).Open(ctx, req.Folder)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return s.engine.Search(ctx, conn, req)
}
