package inference

import (
	"context"
	"time"

	"sift_server/core/domain"
	"sift_server/core/port/in"
	"sift_server/core/port/out"

	"github.com/rs/zerolog"
)

// =============================================================================
// Ingest Pipeline
// =============================================================================

// Pipeline is the per-message inference step: extract root domain, update the
// sender inventory, classify the headers, record evidence and infer. Invoked
// sequentially by the mail-sync loop; everything inside is best-effort.
type Pipeline struct {
	classifier *Classifier
	inference  *Service
	inventory  out.InventoryRepository
	log        zerolog.Logger
}

// NewPipeline creates the ingest pipeline.
func NewPipeline(classifier *Classifier, inference *Service, inventory out.InventoryRepository, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		inference:  inference,
		inventory:  inventory,
		log:        log,
	}
}

// ProcessMessage runs one raw header tuple through the pipeline. A message
// without a parseable sender domain is skipped silently. Inventory failures
// are logged but do not block inference; inference failures are returned for
// the caller to count and move past.
func (p *Pipeline) ProcessMessage(ctx context.Context, scope in.IngestScope, msg *domain.RawMessage) error {
	rootDomain := ExtractRegistrableDomain(msg.From)
	if rootDomain == "" {
		p.log.Debug().
			Str("mailbox_id", scope.MailboxID).
			Str("provider_msg_id", msg.ProviderMsgID).
			Msg("no parseable sender domain, skipping")
		return nil
	}

	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	inv := &domain.Inventory{
		ID:         domain.InventoryID(scope.MailboxID, rootDomain),
		UserID:     scope.UserID,
		MailboxID:  scope.MailboxID,
		RootDomain: rootDomain,
		FirstSeen:  receivedAt,
		LastSeen:   receivedAt,
		MsgCount:   1,
		HasUnsub:   msg.ListUnsubscribe != "",
		Status:     domain.InventoryActive,
	}
	if err := p.inventory.Record(ctx, inv); err != nil {
		p.log.Warn().Err(err).
			Str("root_domain", rootDomain).
			Msg("inventory update failed")
	}

	classification := p.classifier.Classify(msg)
	messageID := domain.MessageID(scope.MailboxID, msg.ProviderMsgID)

	err := p.inference.RecordEvidenceAndInfer(ctx, &InferInput{
		UserID:          scope.UserID,
		MailboxID:       scope.MailboxID,
		EmailIdentityID: scope.EmailIdentityID,
		RootDomain:      rootDomain,
		Intent:          classification.Intent,
		Weight:          classification.Weight,
		MessageID:       messageID,
		Subject:         msg.Subject,
		From:            msg.From,
		ReceivedAt:      receivedAt,
		Signals:         classification.Signals,
	})
	if err != nil {
		p.log.Error().Err(err).
			Str("message_id", messageID).
			Str("intent", string(classification.Intent)).
			Msg("inference failed")
		return err
	}

	p.log.Debug().
		Str("message_id", messageID).
		Str("intent", string(classification.Intent)).
		Str("root_domain", rootDomain).
		Msg("message processed")
	return nil
}

var _ in.MessageIngest = (*Pipeline)(nil)
