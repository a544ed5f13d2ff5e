// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"sift_server/core/domain"
	"sift_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// InventoryAdapter implements out.InventoryRepository using PostgreSQL.
type InventoryAdapter struct {
	db *sqlx.DB
}

// NewInventoryAdapter creates a new InventoryAdapter.
func NewInventoryAdapter(db *sqlx.DB) *InventoryAdapter {
	return &InventoryAdapter{db: db}
}

// inventoryRow represents the database row for sender inventory.
type inventoryRow struct {
	ID         string    `db:"id"`
	UserID     uuid.UUID `db:"user_id"`
	MailboxID  string    `db:"mailbox_id"`
	RootDomain string    `db:"root_domain"`
	FirstSeen  time.Time `db:"first_seen"`
	LastSeen   time.Time `db:"last_seen"`
	MsgCount   int64     `db:"msg_count"`
	HasUnsub   bool      `db:"has_unsub"`
	Status     string    `db:"status"`
}

func (r *inventoryRow) toEntity() *domain.Inventory {
	return &domain.Inventory{
		ID:         r.ID,
		UserID:     r.UserID,
		MailboxID:  r.MailboxID,
		RootDomain: r.RootDomain,
		FirstSeen:  r.FirstSeen,
		LastSeen:   r.LastSeen,
		MsgCount:   r.MsgCount,
		HasUnsub:   r.HasUnsub,
		Status:     domain.InventoryStatus(r.Status),
	}
}

// Record merges one observed message into the sender's row. A single upsert
// keeps the merge atomic: the count increments, the seen window only widens,
// and the unsubscribe flag follows the latest message.
func (a *InventoryAdapter) Record(ctx context.Context, inv *domain.Inventory) error {
	query := `
		INSERT INTO sender_inventory (
			id, user_id, mailbox_id, root_domain,
			first_seen, last_seen, msg_count, has_unsub, status
		) VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			msg_count = sender_inventory.msg_count + 1,
			first_seen = LEAST(sender_inventory.first_seen, EXCLUDED.first_seen),
			last_seen = GREATEST(sender_inventory.last_seen, EXCLUDED.last_seen),
			has_unsub = EXCLUDED.has_unsub,
			status = EXCLUDED.status`

	_, err := a.db.ExecContext(ctx, query,
		inv.ID, inv.UserID, inv.MailboxID, inv.RootDomain,
		inv.FirstSeen, inv.LastSeen, inv.HasUnsub,
		string(domain.InventoryActive),
	)
	if err != nil {
		return fmt.Errorf("failed to record sender: %w", err)
	}

	return nil
}

// List retrieves inventory rows for a user, most recently seen first.
func (a *InventoryAdapter) List(ctx context.Context, userID uuid.UUID, opts *out.InventoryListOptions) ([]*domain.Inventory, error) {
	query := `SELECT * FROM sender_inventory WHERE user_id = $1`
	args := []interface{}{userID}

	if opts != nil {
		if opts.MailboxID != "" {
			args = append(args, opts.MailboxID)
			query += ` AND mailbox_id = $` + strconv.Itoa(len(args))
		}
		if opts.HasUnsub != nil {
			args = append(args, *opts.HasUnsub)
			query += ` AND has_unsub = $` + strconv.Itoa(len(args))
		}
		if !opts.LastSeenAfter.IsZero() {
			args = append(args, opts.LastSeenAfter)
			query += ` AND last_seen > $` + strconv.Itoa(len(args))
		}
	}

	query += ` ORDER BY last_seen DESC`
	if opts != nil && opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	var rows []inventoryRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}

	inventories := make([]*domain.Inventory, len(rows))
	for i := range rows {
		inventories[i] = rows[i].toEntity()
	}

	return inventories, nil
}

// UpdateStatus marks a row, e.g. ignored.
func (a *InventoryAdapter) UpdateStatus(ctx context.Context, id string, status domain.InventoryStatus) error {
	result, err := a.db.ExecContext(ctx,
		`UPDATE sender_inventory SET status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("failed to update inventory status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return out.ErrNotFound
	}

	return nil
}

// DeleteByUser deletes all inventory rows for a user.
func (a *InventoryAdapter) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := a.db.ExecContext(ctx, `DELETE FROM sender_inventory WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user inventory: %w", err)
	}

	return result.RowsAffected()
}

var _ out.InventoryRepository = (*InventoryAdapter)(nil)
