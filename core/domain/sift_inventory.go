package domain

import (
	"time"

	"github.com/google/uuid"
)

// InventoryStatus tracks what the user decided about a recurring sender.
type InventoryStatus string

const (
	InventoryActive  InventoryStatus = "active"
	InventoryMoved   InventoryStatus = "moved"
	InventoryIgnored InventoryStatus = "ignored"
)

// Inventory aggregates per-(mailbox, root domain) sender stats: how often a
// domain mails this mailbox and whether its mail carries List-Unsubscribe.
type Inventory struct {
	ID         string          `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	MailboxID  string          `json:"mailbox_id"`
	RootDomain string          `json:"root_domain"`
	FirstSeen  time.Time       `json:"first_seen"`
	LastSeen   time.Time       `json:"last_seen"`
	MsgCount   int64           `json:"msg_count"`
	HasUnsub   bool            `json:"has_unsub"`
	Status     InventoryStatus `json:"status"`
}

// InventoryID builds the composite key for an inventory row.
func InventoryID(mailboxID, rootDomain string) string {
	return mailboxID + ":" + rootDomain
}
