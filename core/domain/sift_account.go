package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountCategory is the coarse service category shown in the UI.
type AccountCategory string

const (
	CategoryBank         AccountCategory = "bank"
	CategorySocial       AccountCategory = "social"
	CategoryEcommerce    AccountCategory = "ecommerce"
	CategorySaaS         AccountCategory = "saas"
	CategorySubscription AccountCategory = "subscription"
	CategoryOther        AccountCategory = "other"
)

// AccountStatus is externally driven; the inference core only ever creates
// accounts as StatusUnknown.
type AccountStatus string

const (
	StatusActive  AccountStatus = "active"
	StatusDormant AccountStatus = "dormant"
	StatusClosed  AccountStatus = "closed"
	StatusUnknown AccountStatus = "unknown"
)

// Account is the inferred belief that the user has an ongoing relationship
// with a service, backed by accumulated evidence. Exactly one account exists
// per (email identity, canonical service domain) pair.
type Account struct {
	ID              string          `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	EmailIdentityID string          `json:"email_identity_id"`
	ServiceName     string          `json:"service_name"`
	ServiceDomain   string          `json:"service_domain"`
	Category        AccountCategory `json:"category"`
	ConfidenceScore float64         `json:"confidence_score"`
	Explanation     string          `json:"explanation"`
	SettingsURL     string          `json:"settings_url,omitempty"`
	Status          AccountStatus   `json:"status"`
	FirstSeenAt     time.Time       `json:"first_seen_at"`
	LastSeenAt      time.Time       `json:"last_seen_at"`

	// Version guards the read-modify-write of ConfidenceScore. Updates are
	// compare-and-swap on this field; a conflict forces a re-read.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountID builds the composite key for an inferred account.
func AccountID(emailIdentityID, serviceDomain string) string {
	return emailIdentityID + ":" + serviceDomain
}
