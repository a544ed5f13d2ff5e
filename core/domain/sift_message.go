package domain

import "time"

// RawMessage is the minimal header projection the mail-sync collaborator
// hands to the inference pipeline. Bodies are never fetched.
type RawMessage struct {
	ProviderMsgID       string    `json:"provider_msg_id"`
	From                string    `json:"from,omitempty"`
	To                  string    `json:"to,omitempty"`
	Subject             string    `json:"subject,omitempty"`
	ReceivedAt          time.Time `json:"received_at"`
	ListUnsubscribe     string    `json:"list_unsubscribe,omitempty"`
	ListUnsubscribePost string    `json:"list_unsubscribe_post,omitempty"`
}

// MessageID builds the storage id for a synced message.
// One message per (mailbox, provider message) pair.
func MessageID(mailboxID, providerMsgID string) string {
	return mailboxID + ":" + providerMsgID
}
