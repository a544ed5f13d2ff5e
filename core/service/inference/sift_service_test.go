package inference

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"sift_server/core/domain"
	"sift_server/core/port/out"

	"github.com/google/uuid"
)

// =============================================================================
// In-memory fakes
// =============================================================================

type fakeAccountRepo struct {
	accounts      map[string]*domain.Account
	conflictCount int  // Update calls to fail with ErrVersionConflict
	duplicateOnce bool // first Create loses a race against a competing writer
	getErr        error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	acc, ok := f.accounts[id]
	if !ok {
		return nil, out.ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

func (f *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	if f.duplicateOnce {
		f.duplicateOnce = false
		competing := *account
		competing.ConfidenceScore = 0.9
		f.accounts[account.ID] = &competing
		return out.ErrDuplicate
	}
	if _, ok := f.accounts[account.ID]; ok {
		return out.ErrDuplicate
	}
	cp := *account
	f.accounts[account.ID] = &cp
	return nil
}

func (f *fakeAccountRepo) Update(_ context.Context, account *domain.Account) error {
	if f.conflictCount > 0 {
		f.conflictCount--
		return out.ErrVersionConflict
	}
	stored, ok := f.accounts[account.ID]
	if !ok || stored.Version != account.Version {
		return out.ErrVersionConflict
	}
	cp := *account
	cp.Version = account.Version + 1
	f.accounts[account.ID] = &cp
	return nil
}

func (f *fakeAccountRepo) ListByUser(_ context.Context, _ uuid.UUID, _ *out.AccountListOptions) ([]*domain.Account, error) {
	return nil, nil
}

func (f *fakeAccountRepo) DeleteByUser(_ context.Context, _ uuid.UUID) (int64, error) {
	return 0, nil
}

type fakeEvidenceRepo struct {
	rows      map[string]*domain.Evidence
	upsertErr error
}

func newFakeEvidenceRepo() *fakeEvidenceRepo {
	return &fakeEvidenceRepo{rows: make(map[string]*domain.Evidence)}
}

func (f *fakeEvidenceRepo) Upsert(_ context.Context, evidence *domain.Evidence) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *evidence
	f.rows[evidence.ID] = &cp
	return nil
}

func (f *fakeEvidenceRepo) ListByAccount(_ context.Context, _ string, _ int) ([]*domain.Evidence, error) {
	return nil, nil
}

func (f *fakeEvidenceRepo) DeleteByUser(_ context.Context, _ uuid.UUID) (int64, error) {
	return 0, nil
}

// =============================================================================
// Helpers
// =============================================================================

type serviceFixture struct {
	svc      *Service
	accounts *fakeAccountRepo
	evidence *fakeEvidenceRepo
	now      time.Time
}

func newServiceFixture(cfg ServiceConfig) *serviceFixture {
	f := &serviceFixture{
		accounts: newFakeAccountRepo(),
		evidence: newFakeEvidenceRepo(),
		now:      time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.accounts, f.evidence, NewCanonicalizer(nil), cfg)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *serviceFixture) input(intent domain.Intent, weight float64, msgID string) *InferInput {
	cls := domain.Classification{Intent: intent, Weight: weight}
	return &InferInput{
		UserID:          uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		MailboxID:       "mb1",
		EmailIdentityID: "ident1",
		RootDomain:      "notion.so",
		Intent:          cls.Intent,
		Weight:          cls.Weight,
		MessageID:       msgID,
		Subject:         "Welcome to Notion",
		ReceivedAt:      f.now,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// =============================================================================
// Tests
// =============================================================================

func TestWelcomeEvidenceCreatesAccount(t *testing.T) {
	f := newServiceFixture(ServiceConfig{})
	in := f.input(domain.IntentAccountCreated, 2.0, "mb1:m1")
	in.Signals = domain.Signals{Subject: domain.SignalWelcome}

	if err := f.svc.RecordEvidenceAndInfer(context.Background(), in); err != nil {
		t.Fatalf("RecordEvidenceAndInfer() error: %v", err)
	}

	acc, ok := f.accounts.accounts["ident1:notion.so"]
	if !ok {
		t.Fatal("account not created")
	}
	if acc.ConfidenceScore != 2.0 {
		t.Errorf("confidence = %v, want 2.0 (unclamped by default)", acc.ConfidenceScore)
	}
	if acc.Category != domain.CategorySaaS {
		t.Errorf("category = %s, want saas", acc.Category)
	}
	if !acc.FirstSeenAt.Equal(in.ReceivedAt) || !acc.LastSeenAt.Equal(in.ReceivedAt) {
		t.Errorf("seen window = [%v, %v], want both %v", acc.FirstSeenAt, acc.LastSeenAt, in.ReceivedAt)
	}
	if acc.Status != domain.StatusUnknown {
		t.Errorf("status = %s, want unknown", acc.Status)
	}
	if !strings.Contains(acc.Explanation, "account created") || !strings.Contains(acc.Explanation, "notion.so") {
		t.Errorf("explanation = %q, want intent and domain mentioned", acc.Explanation)
	}
}

func TestInitialConfidenceClampOptIn(t *testing.T) {
	f := newServiceFixture(ServiceConfig{ClampInitialConfidence: true})
	in := f.input(domain.IntentEmailVerification, 2.5, "mb1:m1")

	if err := f.svc.RecordEvidenceAndInfer(context.Background(), in); err != nil {
		t.Fatalf("RecordEvidenceAndInfer() error: %v", err)
	}
	acc := f.accounts.accounts["ident1:notion.so"]
	if acc == nil {
		t.Fatal("account not created")
	}
	if acc.ConfidenceScore != 1.0 {
		t.Errorf("confidence = %v, want clamped to 1.0", acc.ConfidenceScore)
	}
}

func TestCreationThresholdBoundary(t *testing.T) {
	tests := []struct {
		name       string
		weight     float64
		wantExists bool
	}{
		{name: "non-strong weight exactly at threshold creates", weight: 0.7, wantExists: true},
		{name: "non-strong weight below threshold does not", weight: 0.69, wantExists: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(ServiceConfig{})
			in := f.input(domain.IntentMarketing, tt.weight, "mb1:m1")

			if err := f.svc.RecordEvidenceAndInfer(context.Background(), in); err != nil {
				t.Fatalf("RecordEvidenceAndInfer() error: %v", err)
			}

			_, exists := f.accounts.accounts["ident1:notion.so"]
			if exists != tt.wantExists {
				t.Errorf("account exists = %v, want %v", exists, tt.wantExists)
			}
			// Evidence is recorded either way.
			if len(f.evidence.rows) != 1 {
				t.Errorf("evidence rows = %d, want 1", len(f.evidence.rows))
			}
		})
	}
}

func TestEvidenceIdempotent(t *testing.T) {
	f := newServiceFixture(ServiceConfig{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		in := f.input(domain.IntentAccountCreated, 2.0, "mb1:m1")
		if err := f.svc.RecordEvidenceAndInfer(ctx, in); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	if len(f.evidence.rows) != 1 {
		t.Errorf("evidence rows = %d, want exactly 1 for repeated (message, intent)", len(f.evidence.rows))
	}
	if len(f.accounts.accounts) != 1 {
		t.Errorf("accounts = %d, want 1", len(f.accounts.accounts))
	}
}

func TestConfidenceMonotonicAndSaturating(t *testing.T) {
	f := newServiceFixture(ServiceConfig{ClampInitialConfidence: true})
	ctx := context.Background()

	intents := []domain.Intent{
		domain.IntentAccountCreated,
		domain.IntentNewsletter,
		domain.IntentBillingReceipt,
		domain.IntentLoginAlert,
		domain.IntentMarketing,
		domain.IntentSecurityAlert,
		domain.IntentUnknown,
	}
	weights := map[domain.Intent]float64{
		domain.IntentAccountCreated: 2.0,
		domain.IntentNewsletter:     1.5,
		domain.IntentBillingReceipt: 1.8,
		domain.IntentLoginAlert:     2.0,
		domain.IntentMarketing:      1.0,
		domain.IntentSecurityAlert:  2.0,
		domain.IntentUnknown:        0.5,
	}

	prev := 0.0
	for i, intent := range intents {
		in := f.input(intent, weights[intent], domain.MessageID("mb1", string(rune('a'+i))))
		if err := f.svc.RecordEvidenceAndInfer(ctx, in); err != nil {
			t.Fatalf("event %d (%s): %v", i, intent, err)
		}
		acc := f.accounts.accounts["ident1:notion.so"]
		if acc == nil {
			t.Fatalf("event %d: account missing", i)
		}
		if acc.ConfidenceScore < prev {
			t.Errorf("event %d: confidence regressed %v -> %v", i, prev, acc.ConfidenceScore)
		}
		if acc.ConfidenceScore > 1.0 {
			t.Errorf("event %d: confidence %v exceeds 1.0", i, acc.ConfidenceScore)
		}
		prev = acc.ConfidenceScore
	}
}

func TestRecencyDecay(t *testing.T) {
	tests := []struct {
		name          string
		age           time.Duration
		wantIncrement float64
	}{
		// newsletter: typeFactor 0.02; <7d recency 0.15 -> 1.5*0.17
		{name: "fresh newsletter", age: 0, wantIncrement: 0.255},
		// 60 days: recency 0.03 -> 1.5*0.05
		{name: "stale newsletter", age: 60 * 24 * time.Hour, wantIncrement: 0.075},
		// 10 days: recency 0.08 -> 1.5*0.10
		{name: "ten day old newsletter", age: 10 * 24 * time.Hour, wantIncrement: 0.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(ServiceConfig{})
			f.accounts.accounts["ident1:notion.so"] = &domain.Account{
				ID:              "ident1:notion.so",
				EmailIdentityID: "ident1",
				ServiceDomain:   "notion.so",
				ConfidenceScore: 0.2,
				Version:         1,
				FirstSeenAt:     f.now.Add(-90 * 24 * time.Hour),
				LastSeenAt:      f.now.Add(-90 * 24 * time.Hour),
			}

			in := f.input(domain.IntentNewsletter, 1.5, "mb1:m1")
			in.ReceivedAt = f.now.Add(-tt.age)
			if err := f.svc.RecordEvidenceAndInfer(context.Background(), in); err != nil {
				t.Fatalf("RecordEvidenceAndInfer() error: %v", err)
			}

			acc := f.accounts.accounts["ident1:notion.so"]
			if !almostEqual(acc.ConfidenceScore, 0.2+tt.wantIncrement) {
				t.Errorf("confidence = %v, want %v", acc.ConfidenceScore, 0.2+tt.wantIncrement)
			}
		})
	}
}

func TestMinimumIncrement(t *testing.T) {
	f := newServiceFixture(ServiceConfig{})
	f.accounts.accounts["ident1:notion.so"] = &domain.Account{
		ID:              "ident1:notion.so",
		EmailIdentityID: "ident1",
		ServiceDomain:   "notion.so",
		ConfidenceScore: 0.5,
		Version:         1,
		LastSeenAt:      f.now,
		FirstSeenAt:     f.now,
	}

	// unknown, weight 0.5, 60 days old: 0.5*(0.03+0.08)=0.055 > floor, so use
	// a newsletter at weight 0.1 stored dynamically: 0.1*(0.03+0.02)=0.005,
	// which the floor lifts to 0.01.
	in := f.input(domain.IntentNewsletter, 0.1, "mb1:m1")
	in.ReceivedAt = f.now.Add(-60 * 24 * time.Hour)
	if err := f.svc.RecordEvidenceAndInfer(context.Background(), in); err != nil {
		t.Fatalf("RecordEvidenceAndInfer() error: %v", err)
	}

	acc := f.accounts.accounts["ident1:notion.so"]
	if !almostEqual(acc.ConfidenceScore, 0.51) {
		t.Errorf("confidence = %v, want 0.51 (minimum increment applied)", acc.ConfidenceScore)
	}
}

func TestAliasCanonicalizationKeysAccount(t *testing.T) {
	f := newServiceFixture(ServiceConfig{})
	in := f.input(domain.IntentAccountCreated, 2.0, "mb1:m1")
	in.RootDomain = "instagrammail.com"

	if err := f.svc.RecordEvidenceAndInfer(context.Background(), in); err != nil {
		t.Fatalf("RecordEvidenceAndInfer() error: %v", err)
	}

	if _, exists := f.accounts.accounts["ident1:instagrammail.com"]; exists {
		t.Error("account keyed on raw domain instead of canonical")
	}
	acc, exists := f.accounts.accounts["ident1:instagram.com"]
	if !exists {
		t.Fatal("account not keyed on canonical domain instagram.com")
	}
	if acc.ServiceDomain != "instagram.com" {
		t.Errorf("service domain = %q, want instagram.com", acc.ServiceDomain)
	}
	if acc.ServiceName != "Instagram" {
		t.Errorf("service name = %q, want registry name Instagram", acc.ServiceName)
	}
}

func TestVersionConflictRetries(t *testing.T) {
	f := newServiceFixture(ServiceConfig{})
	f.accounts.accounts["ident1:notion.so"] = &domain.Account{
		ID:              "ident1:notion.so",
		EmailIdentityID: "ident1",
		ServiceDomain:   "notion.so",
		ConfidenceScore: 0.4,
		Version:         1,
		LastSeenAt:      f.now,
		FirstSeenAt:     f.now,
	}
	f.accounts.conflictCount = 1

	in := f.input(domain.IntentLoginAlert, 2.0, "mb1:m1")
	if err := f.svc.RecordEvidenceAndInfer(context.Background(), in); err != nil {
		t.Fatalf("RecordEvidenceAndInfer() error: %v", err)
	}

	acc := f.accounts.accounts["ident1:notion.so"]
	if acc.ConfidenceScore <= 0.4 {
		t.Errorf("confidence = %v, want increased after retry", acc.ConfidenceScore)
	}
	if acc.Version != 2 {
		t.Errorf("version = %d, want 2", acc.Version)
	}
}

func TestCreateRaceFallsThroughToUpdate(t *testing.T) {
	f := newServiceFixture(ServiceConfig{})
	f.accounts.duplicateOnce = true

	in := f.input(domain.IntentAccountCreated, 2.0, "mb1:m1")
	if err := f.svc.RecordEvidenceAndInfer(context.Background(), in); err != nil {
		t.Fatalf("RecordEvidenceAndInfer() error: %v", err)
	}

	acc := f.accounts.accounts["ident1:notion.so"]
	if acc == nil {
		t.Fatal("account missing after create race")
	}
	// The competing row (confidence 0.9) was strengthened, not replaced.
	if acc.ConfidenceScore <= 0.9 {
		t.Errorf("confidence = %v, want above the competing writer's 0.9", acc.ConfidenceScore)
	}
	if acc.Version != 2 {
		t.Errorf("version = %d, want 2 after update", acc.Version)
	}
}

func TestOutOfOrderEvidenceDoesNotRegressSeenWindow(t *testing.T) {
	f := newServiceFixture(ServiceConfig{})
	lastSeen := f.now.Add(-1 * 24 * time.Hour)
	firstSeen := f.now.Add(-5 * 24 * time.Hour)
	f.accounts.accounts["ident1:notion.so"] = &domain.Account{
		ID:              "ident1:notion.so",
		EmailIdentityID: "ident1",
		ServiceDomain:   "notion.so",
		ConfidenceScore: 0.4,
		Version:         1,
		FirstSeenAt:     firstSeen,
		LastSeenAt:      lastSeen,
	}

	in := f.input(domain.IntentNewsletter, 1.5, "mb1:old")
	in.ReceivedAt = f.now.Add(-30 * 24 * time.Hour)
	if err := f.svc.RecordEvidenceAndInfer(context.Background(), in); err != nil {
		t.Fatalf("RecordEvidenceAndInfer() error: %v", err)
	}

	acc := f.accounts.accounts["ident1:notion.so"]
	if !acc.LastSeenAt.Equal(lastSeen) {
		t.Errorf("last seen regressed to %v", acc.LastSeenAt)
	}
	if !acc.FirstSeenAt.Equal(in.ReceivedAt) {
		t.Errorf("first seen = %v, want moved back to %v", acc.FirstSeenAt, in.ReceivedAt)
	}
}

func TestNoDomainSkipsInference(t *testing.T) {
	f := newServiceFixture(ServiceConfig{})
	in := f.input(domain.IntentAccountCreated, 2.0, "mb1:m1")
	in.RootDomain = ""

	if err := f.svc.RecordEvidenceAndInfer(context.Background(), in); err != nil {
		t.Fatalf("RecordEvidenceAndInfer() error: %v", err)
	}
	if len(f.evidence.rows) != 0 {
		t.Errorf("evidence rows = %d, want 0 without a domain", len(f.evidence.rows))
	}
	if len(f.accounts.accounts) != 0 {
		t.Errorf("accounts = %d, want 0 without a domain", len(f.accounts.accounts))
	}
}

func TestEvidenceUpsertFailurePropagates(t *testing.T) {
	f := newServiceFixture(ServiceConfig{})
	f.evidence.upsertErr = errors.New("connection reset")

	in := f.input(domain.IntentAccountCreated, 2.0, "mb1:m1")
	err := f.svc.RecordEvidenceAndInfer(context.Background(), in)
	if err == nil {
		t.Fatal("want error when evidence upsert fails")
	}
	if len(f.accounts.accounts) != 0 {
		t.Error("account created despite evidence failure")
	}
}

func TestCategoryHeuristicForWeakEvidence(t *testing.T) {
	tests := []struct {
		name   string
		domain string
		want   domain.AccountCategory
	}{
		{name: "bank keyword", domain: "mybank.com", want: domain.CategoryBank},
		{name: "social keyword", domain: "twitter.com", want: domain.CategorySocial},
		{name: "ecommerce keyword", domain: "bigshop.io", want: domain.CategoryEcommerce},
		{name: "saas keyword", domain: "github.com", want: domain.CategorySaaS},
		{name: "no keyword", domain: "example.org", want: domain.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(ServiceConfig{})
			in := f.input(domain.IntentMarketing, 1.0, "mb1:m1")
			in.RootDomain = tt.domain

			if err := f.svc.RecordEvidenceAndInfer(context.Background(), in); err != nil {
				t.Fatalf("RecordEvidenceAndInfer() error: %v", err)
			}
			acc := f.accounts.accounts["ident1:"+tt.domain]
			if acc == nil {
				t.Fatal("account not created")
			}
			if acc.Category != tt.want {
				t.Errorf("category = %s, want %s", acc.Category, tt.want)
			}
		})
	}
}
