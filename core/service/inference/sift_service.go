package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sift_server/core/domain"
	"sift_server/core/port/out"

	"github.com/google/uuid"
)

// =============================================================================
// Evidence Recorder + Confidence Aggregator
// =============================================================================

const (
	// Minimum weight at which non-strong evidence still creates an account.
	createThreshold = 0.7

	// Attempts for the compare-and-swap loop on the account row.
	casMaxRetries = 3
)

// Recency and type factors for the confidence increment.
const (
	recencyFactorWeek  = 0.15
	recencyFactorMonth = 0.08
	recencyFactorOld   = 0.03

	typeFactorStrong     = 0.20
	typeFactorNewsletter = 0.02
	typeFactorOther      = 0.08

	minIncrement = 0.01
)

// InferInput carries one classified message into evidence recording and
// account aggregation.
type InferInput struct {
	UserID          uuid.UUID
	MailboxID       string
	EmailIdentityID string
	RootDomain      string
	ServiceDomain   string // explicit override, wins over RootDomain
	ServiceName     string // explicit override, wins over the registry
	Intent          domain.Intent
	Weight          float64
	MessageID       string
	Subject         string
	From            string
	ReceivedAt      time.Time
	Signals         domain.Signals
}

// ServiceConfig tunes aggregation behavior.
type ServiceConfig struct {
	// ClampInitialConfidence caps the confidence of a freshly created account
	// at 1.0. Off by default: the original model stored the raw evidence
	// weight on creation and only saturated increments.
	ClampInitialConfidence bool
}

// Service owns the account upsert state machine. One invocation does one
// alias resolution, one evidence upsert, and one account read-modify-write.
type Service struct {
	accounts out.AccountRepository
	evidence out.EvidenceRepository
	canon    *Canonicalizer
	config   ServiceConfig

	now func() time.Time
}

// NewService creates the inference service.
func NewService(accounts out.AccountRepository, evidence out.EvidenceRepository, canon *Canonicalizer, config ServiceConfig) *Service {
	return &Service{
		accounts: accounts,
		evidence: evidence,
		canon:    canon,
		config:   config,
		now:      time.Now,
	}
}

// RecordEvidenceAndInfer persists one evidence record for the message and
// creates or strengthens the owning account. Storage errors propagate to the
// caller, which treats the message as best-effort-failed and moves on.
func (s *Service) RecordEvidenceAndInfer(ctx context.Context, input *InferInput) error {
	serviceDomain := s.canon.Canonical(ctx, input.RootDomain, input.ServiceDomain)
	if serviceDomain == "" {
		// No parseable domain upstream: valid empty result, not an error.
		return nil
	}

	accountID := domain.AccountID(input.EmailIdentityID, serviceDomain)
	evidenceType := input.Intent.EvidenceType()

	ev := &domain.Evidence{
		ID:           domain.EvidenceID(input.MessageID, input.Intent),
		UserID:       input.UserID,
		AccountID:    accountID,
		MailboxID:    input.MailboxID,
		MessageID:    input.MessageID,
		EvidenceType: evidenceType,
		Excerpt:      input.Subject,
		Signals:      input.Signals,
		Weight:       input.Weight,
		CreatedAt:    s.now(),
	}
	if err := s.evidence.Upsert(ctx, ev); err != nil {
		return fmt.Errorf("record evidence %s: %w", ev.ID, err)
	}

	for attempt := 0; attempt < casMaxRetries; attempt++ {
		existing, err := s.accounts.GetByID(ctx, accountID)
		switch {
		case errors.Is(err, out.ErrNotFound):
			err := s.createAccount(ctx, input, accountID, serviceDomain, evidenceType)
			if errors.Is(err, out.ErrDuplicate) {
				continue // lost the create race, retry as an update
			}
			if err != nil {
				return fmt.Errorf("create account %s: %w", accountID, err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("load account %s: %w", accountID, err)
		}

		updated := s.applyEvidence(existing, input, serviceDomain, evidenceType)
		err = s.accounts.Update(ctx, updated)
		if errors.Is(err, out.ErrVersionConflict) {
			continue // concurrent writer won, re-read and re-apply
		}
		if err != nil {
			return fmt.Errorf("update account %s: %w", accountID, err)
		}
		return nil
	}
	return fmt.Errorf("account %s: %w after %d attempts", accountID, out.ErrVersionConflict, casMaxRetries)
}

// createAccount creates the account iff the evidence qualifies. Sub-threshold
// evidence is a no-op: the evidence row stays recorded but no account becomes
// visible until a stronger signal arrives.
func (s *Service) createAccount(ctx context.Context, input *InferInput, accountID, serviceDomain string, evidenceType domain.EvidenceType) error {
	if !evidenceType.IsStrong() && input.Weight < createThreshold {
		return nil
	}

	confidence := input.Weight
	if s.config.ClampInitialConfidence && confidence > 1.0 {
		confidence = 1.0
	}

	now := s.now()
	account := &domain.Account{
		ID:              accountID,
		UserID:          input.UserID,
		EmailIdentityID: input.EmailIdentityID,
		ServiceName:     s.resolveServiceName(input.ServiceName, serviceDomain),
		ServiceDomain:   serviceDomain,
		Category:        categoryForEvidence(evidenceType, serviceDomain),
		ConfidenceScore: confidence,
		Explanation:     buildExplanation(input.Intent, input.Signals, serviceDomain),
		Status:          domain.StatusUnknown,
		FirstSeenAt:     input.ReceivedAt,
		LastSeenAt:      input.ReceivedAt,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if info, ok := LookupService(serviceDomain); ok {
		account.SettingsURL = info.SettingsURL
	}

	return s.accounts.Create(ctx, account)
}

// applyEvidence computes the strengthened account row. The returned copy
// still carries the version it was read at; the repository CAS bumps it.
func (s *Service) applyEvidence(existing *domain.Account, input *InferInput, serviceDomain string, evidenceType domain.EvidenceType) *domain.Account {
	updated := *existing

	// Latest evidence wins for the descriptive fields. Evidence rows retain
	// the full history.
	updated.ServiceName = s.resolveServiceName(input.ServiceName, serviceDomain)
	updated.ServiceDomain = serviceDomain
	updated.Category = categoryForEvidence(evidenceType, serviceDomain)
	updated.Explanation = buildExplanation(input.Intent, input.Signals, serviceDomain)
	if info, ok := LookupService(serviceDomain); ok {
		updated.SettingsURL = info.SettingsURL
	}

	// Out-of-order delivery must not regress the seen window.
	if input.ReceivedAt.After(updated.LastSeenAt) {
		updated.LastSeenAt = input.ReceivedAt
	}
	if updated.FirstSeenAt.IsZero() || input.ReceivedAt.Before(updated.FirstSeenAt) {
		updated.FirstSeenAt = input.ReceivedAt
	}

	updated.ConfidenceScore = nextConfidence(existing.ConfidenceScore, input.Weight, evidenceType, s.now().Sub(input.ReceivedAt))
	updated.UpdatedAt = s.now()
	return &updated
}

// nextConfidence computes the saturating confidence step. Monotonic: the
// increment is never below minIncrement and the score never exceeds 1.0.
func nextConfidence(current, weight float64, evidenceType domain.EvidenceType, age time.Duration) float64 {
	recencyDays := age.Hours() / 24
	if recencyDays < 0 {
		recencyDays = 0
	}

	recencyFactor := recencyFactorOld
	switch {
	case recencyDays < 7:
		recencyFactor = recencyFactorWeek
	case recencyDays < 30:
		recencyFactor = recencyFactorMonth
	}

	typeFactor := typeFactorOther
	switch {
	case evidenceType.IsStrong():
		typeFactor = typeFactorStrong
	case evidenceType == domain.EvidenceNewsletter:
		typeFactor = typeFactorNewsletter
	}

	increment := weight * (recencyFactor + typeFactor)
	if increment < minIncrement {
		increment = minIncrement
	}

	next := current + increment
	if next > 1.0 {
		next = 1.0
	}
	return next
}

func (s *Service) resolveServiceName(override, serviceDomain string) string {
	if override != "" {
		return override
	}
	if info, ok := LookupService(serviceDomain); ok {
		return info.Name
	}
	return defaultServiceName(serviceDomain)
}

// defaultServiceName falls back to the last two labels of the domain.
func defaultServiceName(serviceDomain string) string {
	parts := strings.Split(serviceDomain, ".")
	if len(parts) <= 2 {
		return serviceDomain
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// categoryForEvidence picks the account category the latest evidence implies.
func categoryForEvidence(evidenceType domain.EvidenceType, serviceDomain string) domain.AccountCategory {
	switch evidenceType {
	case domain.EvidenceWelcome, domain.EvidenceVerify, domain.EvidenceLogin, domain.EvidenceReset, domain.EvidenceSecurity:
		return domain.CategorySaaS
	case domain.EvidenceBilling:
		return domain.CategoryEcommerce
	case domain.EvidenceNewsletter:
		return domain.CategorySubscription
	default:
		return categoryForDomain(serviceDomain)
	}
}

// categoryForDomain is a keyword heuristic for evidence that carries no
// category of its own.
func categoryForDomain(serviceDomain string) domain.AccountCategory {
	switch {
	case containsAny(serviceDomain, "bank", "chase", "boa"):
		return domain.CategoryBank
	case containsAny(serviceDomain, "facebook", "instagram", "twitter"):
		return domain.CategorySocial
	case containsAny(serviceDomain, "amazon", "shop", "ebay"):
		return domain.CategoryEcommerce
	case containsAny(serviceDomain, "microsoft", "google", "github"):
		return domain.CategorySaaS
	default:
		return domain.CategoryOther
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// buildExplanation renders the latest evidence as a short human-readable
// line for the UI. Covers every signal variant.
func buildExplanation(intent domain.Intent, signals domain.Signals, serviceDomain string) string {
	parts := []string{strings.ReplaceAll(string(intent), "_", " "), serviceDomain}
	if signals.Subject != "" {
		parts = append(parts, string(signals.Subject))
	}
	if signals.ListUnsubscribe {
		parts = append(parts, "list-unsubscribe present")
	}
	return strings.Join(parts, " • ")
}
