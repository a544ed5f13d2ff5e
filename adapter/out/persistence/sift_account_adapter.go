// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"sift_server/core/domain"
	"sift_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AccountAdapter implements out.AccountRepository using PostgreSQL.
type AccountAdapter struct {
	db *sqlx.DB
}

// NewAccountAdapter creates a new AccountAdapter.
func NewAccountAdapter(db *sqlx.DB) *AccountAdapter {
	return &AccountAdapter{db: db}
}

// accountRow represents the database row for inferred accounts.
type accountRow struct {
	ID              string    `db:"id"`
	UserID          uuid.UUID `db:"user_id"`
	EmailIdentityID string    `db:"email_identity_id"`
	ServiceName     string    `db:"service_name"`
	ServiceDomain   string    `db:"service_domain"`
	Category        string    `db:"category"`
	ConfidenceScore float64   `db:"confidence_score"`
	Explanation     string    `db:"explanation"`
	SettingsURL     string    `db:"settings_url"`
	Status          string    `db:"status"`
	FirstSeenAt     time.Time `db:"first_seen_at"`
	LastSeenAt      time.Time `db:"last_seen_at"`
	Version         int64     `db:"version"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r *accountRow) toEntity() *domain.Account {
	return &domain.Account{
		ID:              r.ID,
		UserID:          r.UserID,
		EmailIdentityID: r.EmailIdentityID,
		ServiceName:     r.ServiceName,
		ServiceDomain:   r.ServiceDomain,
		Category:        domain.AccountCategory(r.Category),
		ConfidenceScore: r.ConfidenceScore,
		Explanation:     r.Explanation,
		SettingsURL:     r.SettingsURL,
		Status:          domain.AccountStatus(r.Status),
		FirstSeenAt:     r.FirstSeenAt,
		LastSeenAt:      r.LastSeenAt,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// GetByID retrieves an account by its composite ID.
func (a *AccountAdapter) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	var row accountRow
	query := `SELECT * FROM inferred_accounts WHERE id = $1`

	if err := a.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, out.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return row.toEntity(), nil
}

// Create inserts a new account. ON CONFLICT DO NOTHING turns a lost create
// race into ErrDuplicate without needing driver error inspection.
func (a *AccountAdapter) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO inferred_accounts (
			id, user_id, email_identity_id, service_name, service_domain,
			category, confidence_score, explanation, settings_url, status,
			first_seen_at, last_seen_at, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING`

	result, err := a.db.ExecContext(ctx, query,
		account.ID, account.UserID, account.EmailIdentityID,
		account.ServiceName, account.ServiceDomain,
		string(account.Category), account.ConfidenceScore,
		account.Explanation, account.SettingsURL, string(account.Status),
		account.FirstSeenAt, account.LastSeenAt, account.Version,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return out.ErrDuplicate
	}

	return nil
}

// Update writes the account guarded by its version: the WHERE clause matches
// both id and the version the caller read, and the write bumps the version.
// Zero rows affected means a concurrent writer got there first.
func (a *AccountAdapter) Update(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE inferred_accounts SET
			service_name = $3, service_domain = $4, category = $5,
			confidence_score = $6, explanation = $7, settings_url = $8,
			status = $9, first_seen_at = $10, last_seen_at = $11,
			version = version + 1, updated_at = $12
		WHERE id = $1 AND version = $2`

	result, err := a.db.ExecContext(ctx, query,
		account.ID, account.Version,
		account.ServiceName, account.ServiceDomain, string(account.Category),
		account.ConfidenceScore, account.Explanation, account.SettingsURL,
		string(account.Status), account.FirstSeenAt, account.LastSeenAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return out.ErrVersionConflict
	}

	return nil
}

// ListByUser retrieves accounts for a user with options.
func (a *AccountAdapter) ListByUser(ctx context.Context, userID uuid.UUID, opts *out.AccountListOptions) ([]*domain.Account, error) {
	query := `SELECT * FROM inferred_accounts WHERE user_id = $1`
	args := []interface{}{userID}

	if opts != nil {
		if opts.EmailIdentityID != "" {
			args = append(args, opts.EmailIdentityID)
			query += ` AND email_identity_id = $` + strconv.Itoa(len(args))
		}
		if opts.Category != "" {
			args = append(args, string(opts.Category))
			query += ` AND category = $` + strconv.Itoa(len(args))
		}
		if opts.Status != "" {
			args = append(args, string(opts.Status))
			query += ` AND status = $` + strconv.Itoa(len(args))
		}
		if opts.MinConfidence > 0 {
			args = append(args, opts.MinConfidence)
			query += ` AND confidence_score >= $` + strconv.Itoa(len(args))
		}
	}

	query += ` ORDER BY last_seen_at DESC`
	if opts != nil && opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	var rows []accountRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	accounts := make([]*domain.Account, len(rows))
	for i := range rows {
		accounts[i] = rows[i].toEntity()
	}

	return accounts, nil
}

// DeleteByUser deletes all accounts for a user.
func (a *AccountAdapter) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := a.db.ExecContext(ctx, `DELETE FROM inferred_accounts WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user accounts: %w", err)
	}

	return result.RowsAffected()
}

var _ out.AccountRepository = (*AccountAdapter)(nil)
