// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"fmt"
	"time"

	"sift_server/core/domain"
	"sift_server/core/port/out"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// EvidenceAdapter implements out.EvidenceRepository using PostgreSQL.
type EvidenceAdapter struct {
	db *sqlx.DB
}

// NewEvidenceAdapter creates a new EvidenceAdapter.
func NewEvidenceAdapter(db *sqlx.DB) *EvidenceAdapter {
	return &EvidenceAdapter{db: db}
}

// evidenceRow represents the database row for evidence records.
type evidenceRow struct {
	ID           string    `db:"id"`
	UserID       uuid.UUID `db:"user_id"`
	AccountID    string    `db:"account_id"`
	MailboxID    string    `db:"mailbox_id"`
	MessageID    string    `db:"message_id"`
	EvidenceType string    `db:"evidence_type"`
	Excerpt      string    `db:"excerpt"`
	Signals      []byte    `db:"signals"`
	Weight       float64   `db:"weight"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r *evidenceRow) toEntity() (*domain.Evidence, error) {
	var signals domain.Signals
	if len(r.Signals) > 0 {
		if err := json.Unmarshal(r.Signals, &signals); err != nil {
			return nil, fmt.Errorf("failed to unmarshal signals: %w", err)
		}
	}

	return &domain.Evidence{
		ID:           r.ID,
		UserID:       r.UserID,
		AccountID:    r.AccountID,
		MailboxID:    r.MailboxID,
		MessageID:    r.MessageID,
		EvidenceType: domain.EvidenceType(r.EvidenceType),
		Excerpt:      r.Excerpt,
		Signals:      signals,
		Weight:       r.Weight,
		CreatedAt:    r.CreatedAt,
	}, nil
}

// Upsert saves an evidence record keyed by its idempotency id. Re-processing
// a message replaces the row in place instead of duplicating it.
func (a *EvidenceAdapter) Upsert(ctx context.Context, evidence *domain.Evidence) error {
	signals, err := json.Marshal(evidence.Signals)
	if err != nil {
		return fmt.Errorf("failed to marshal signals: %w", err)
	}

	query := `
		INSERT INTO account_evidence (
			id, user_id, account_id, mailbox_id, message_id,
			evidence_type, excerpt, signals, weight, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			evidence_type = EXCLUDED.evidence_type,
			excerpt = EXCLUDED.excerpt,
			signals = EXCLUDED.signals,
			weight = EXCLUDED.weight`

	_, err = a.db.ExecContext(ctx, query,
		evidence.ID, evidence.UserID, evidence.AccountID,
		evidence.MailboxID, evidence.MessageID,
		string(evidence.EvidenceType), evidence.Excerpt,
		signals, evidence.Weight, evidence.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save evidence: %w", err)
	}

	return nil
}

// ListByAccount retrieves evidence for an account, newest first.
func (a *EvidenceAdapter) ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.Evidence, error) {
	query := `SELECT * FROM account_evidence WHERE account_id = $1 ORDER BY created_at DESC`
	args := []interface{}{accountID}

	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	var rows []evidenceRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}

	records := make([]*domain.Evidence, len(rows))
	for i := range rows {
		entity, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		records[i] = entity
	}

	return records, nil
}

// DeleteByUser deletes all evidence for a user.
func (a *EvidenceAdapter) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := a.db.ExecContext(ctx, `DELETE FROM account_evidence WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user evidence: %w", err)
	}

	return result.RowsAffected()
}

var _ out.EvidenceRepository = (*EvidenceAdapter)(nil)
