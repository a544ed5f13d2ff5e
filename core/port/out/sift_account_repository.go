package out

import (
	"context"

	"sift_server/core/domain"

	"github.com/google/uuid"
)

// AccountListOptions filters the account listing for API consumers.
// Zero values mean "no filter".
type AccountListOptions struct {
	EmailIdentityID string
	Category        domain.AccountCategory
	Status          domain.AccountStatus
	MinConfidence   float64
	Limit           int
}

// AccountRepository persists inferred accounts.
type AccountRepository interface {
	// GetByID returns ErrNotFound when no account exists under id.
	GetByID(ctx context.Context, id string) (*domain.Account, error)

	// Create inserts a new account, returning ErrDuplicate when an account
	// with the same id already exists (lost create race).
	Create(ctx context.Context, account *domain.Account) error

	// Update writes the account guarded by its Version field: the row is only
	// written when the stored version still equals account.Version, and the
	// stored version is bumped by one. Returns ErrVersionConflict otherwise.
	Update(ctx context.Context, account *domain.Account) error

	// ListByUser returns the user's accounts ordered by last_seen_at
	// descending.
	ListByUser(ctx context.Context, userID uuid.UUID, opts *AccountListOptions) ([]*domain.Account, error)

	// DeleteByUser removes all accounts for a user (bulk erasure).
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
