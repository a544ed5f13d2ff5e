package out

import (
	"context"
	"time"

	"sift_server/core/domain"

	"github.com/google/uuid"
)

// InventoryListOptions filters the sender inventory listing.
type InventoryListOptions struct {
	MailboxID     string
	HasUnsub      *bool
	LastSeenAfter time.Time
	Limit         int
}

// InventoryRepository persists per-(mailbox, root domain) sender stats.
type InventoryRepository interface {
	// Record merges one observed message into the row keyed by inv.ID:
	// msg_count increments, first_seen keeps the minimum, last_seen keeps the
	// maximum, has_unsub reflects the latest message, status resets to active.
	Record(ctx context.Context, inv *domain.Inventory) error

	// List returns inventory rows for a user ordered by last_seen descending.
	List(ctx context.Context, userID uuid.UUID, opts *InventoryListOptions) ([]*domain.Inventory, error)

	// UpdateStatus marks a row, e.g. ignored. Returns ErrNotFound for an
	// unknown id.
	UpdateStatus(ctx context.Context, id string, status domain.InventoryStatus) error

	// DeleteByUser removes all inventory rows for a user (bulk erasure).
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
