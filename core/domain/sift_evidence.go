package domain

import (
	"time"

	"github.com/google/uuid"
)

// Intent is the classified purpose of an email, derived from its headers.
type Intent string

const (
	IntentAccountCreated    Intent = "account_created"
	IntentEmailVerification Intent = "email_verification"
	IntentLoginAlert        Intent = "login_alert"
	IntentPasswordReset     Intent = "password_reset"
	IntentBillingReceipt    Intent = "billing_receipt"
	IntentNewsletter        Intent = "subscription_newsletter"
	IntentSecurityAlert     Intent = "security_alert"
	IntentMarketing         Intent = "marketing"
	IntentUnknown           Intent = "unknown"
)

// EvidenceType groups intents into the buckets the aggregator scores on.
type EvidenceType string

const (
	EvidenceWelcome    EvidenceType = "welcome"
	EvidenceVerify     EvidenceType = "verify"
	EvidenceLogin      EvidenceType = "login"
	EvidenceReset      EvidenceType = "reset"
	EvidenceBilling    EvidenceType = "billing"
	EvidenceNewsletter EvidenceType = "newsletter"
	EvidenceSecurity   EvidenceType = "security"
	EvidenceOther      EvidenceType = "other"
)

// EvidenceType maps an intent to its evidence type. Total: unrecognized
// intents fall back to EvidenceOther.
func (i Intent) EvidenceType() EvidenceType {
	switch i {
	case IntentAccountCreated:
		return EvidenceWelcome
	case IntentEmailVerification:
		return EvidenceVerify
	case IntentLoginAlert:
		return EvidenceLogin
	case IntentPasswordReset:
		return EvidenceReset
	case IntentBillingReceipt:
		return EvidenceBilling
	case IntentNewsletter:
		return EvidenceNewsletter
	case IntentSecurityAlert:
		return EvidenceSecurity
	default:
		return EvidenceOther
	}
}

// IsStrong reports whether a single occurrence of this evidence type is
// reliable enough to create an account on its own.
func (t EvidenceType) IsStrong() bool {
	switch t {
	case EvidenceWelcome, EvidenceVerify, EvidenceBilling, EvidenceLogin, EvidenceReset, EvidenceSecurity:
		return true
	}
	return false
}

// SubjectSignal names the subject rule that fired during classification.
type SubjectSignal string

const (
	SignalWelcome       SubjectSignal = "welcome"
	SignalVerification  SubjectSignal = "verification"
	SignalLoginAlert    SubjectSignal = "login_alert"
	SignalPasswordReset SubjectSignal = "password_reset"
	SignalBilling       SubjectSignal = "billing"
	SignalSecurityAlert SubjectSignal = "security_alert"
)

// Signals records which classification rule fired, for auditability and the
// UI-facing explanation. A closed struct rather than an open map so the
// explanation builder covers every case.
type Signals struct {
	Subject         SubjectSignal `json:"subject,omitempty" bson:"subject,omitempty"`
	ListUnsubscribe bool          `json:"list_unsubscribe,omitempty" bson:"list_unsubscribe,omitempty"`
}

// Classification is the classifier's verdict for a single message.
type Classification struct {
	Intent  Intent  `json:"intent"`
	Weight  float64 `json:"weight"`
	Signals Signals `json:"signals"`
}

// Evidence is a durable record that a specific message contributed a specific
// classified signal toward an account. Write-once per (message, intent) pair.
type Evidence struct {
	ID           string       `json:"id"`
	UserID       uuid.UUID    `json:"user_id"`
	AccountID    string       `json:"account_id"`
	MailboxID    string       `json:"mailbox_id"`
	MessageID    string       `json:"message_id"`
	EvidenceType EvidenceType `json:"evidence_type"`
	Excerpt      string       `json:"excerpt,omitempty"`
	Signals      Signals      `json:"signals"`
	Weight       float64      `json:"weight"`
	CreatedAt    time.Time    `json:"created_at"`
}

// EvidenceID builds the idempotency key for an evidence record.
// Re-processing the same message with the same intent overwrites in place.
func EvidenceID(messageID string, intent Intent) string {
	return messageID + ":" + string(intent)
}
