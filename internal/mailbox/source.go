package mailbox

import (
	"context"
	"time"

	"github.com/lgwanai/email-mcp/internal/models"
)

// Source opens sessions against one mail account's message store. The wire
// protocol behind it is a collaborator detail; everything above works with
// message records and byte payloads.
type Source interface {
	Open(ctx context.Context, folder string) (Conn, error)
}

// Conn is an open session on one folder. Connections are explicit handles:
// callers open, use and close them per operation, nothing is shared process
// wide. A Conn is not safe for concurrent use.
type Conn interface {
	// ListUIDs enumerates message UIDs in ascending order, optionally
	// bounded by date. The order is usable both chronologically and, read
	// backwards, newest first.
	ListUIDs(ctx context.Context, since, before *time.Time) ([]uint32, error)

	// Fetch retrieves one full message with decoded bodies and attachment
	// payloads.
	Fetch(ctx context.Context, uid uint32) (*models.Message, error)

	Close() error
}

// Sender delivers outgoing messages for one account
type Sender interface {
	Send(ctx context.Context, msg *models.OutgoingMessage) error
}
