package in

import (
	"context"

	"sift_server/core/domain"

	"github.com/google/uuid"
)

// IngestScope identifies whose mailbox a batch of headers belongs to.
type IngestScope struct {
	UserID          uuid.UUID
	MailboxID       string
	EmailIdentityID string
}

// MessageIngest is the in-process entry point the mail-sync collaborator
// drives, once per message, sequentially. A returned error covers that one
// message only; the caller logs it and moves on.
type MessageIngest interface {
	ProcessMessage(ctx context.Context, scope IngestScope, msg *domain.RawMessage) error
}
