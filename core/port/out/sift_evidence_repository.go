package out

import (
	"context"

	"sift_server/core/domain"

	"github.com/google/uuid"
)

// EvidenceRepository persists evidence records.
type EvidenceRepository interface {
	// Upsert writes the record keyed by evidence.ID. Re-processing the same
	// (message, intent) pair overwrites in place, never duplicates.
	Upsert(ctx context.Context, evidence *domain.Evidence) error

	// ListByAccount returns evidence for an account ordered by created_at
	// descending, capped at limit.
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.Evidence, error)

	// DeleteByUser removes all evidence for a user (bulk erasure).
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
