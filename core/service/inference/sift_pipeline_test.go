package inference

import (
	"context"
	"errors"
	"testing"
	"time"

	"sift_server/core/domain"
	"sift_server/core/port/in"
	"sift_server/core/port/out"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fakeInventoryRepo struct {
	recorded  []*domain.Inventory
	recordErr error
}

func (f *fakeInventoryRepo) Record(_ context.Context, inv *domain.Inventory) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	cp := *inv
	f.recorded = append(f.recorded, &cp)
	return nil
}

func (f *fakeInventoryRepo) List(_ context.Context, _ uuid.UUID, _ *out.InventoryListOptions) ([]*domain.Inventory, error) {
	return nil, nil
}

func (f *fakeInventoryRepo) UpdateStatus(_ context.Context, _ string, _ domain.InventoryStatus) error {
	return nil
}

func (f *fakeInventoryRepo) DeleteByUser(_ context.Context, _ uuid.UUID) (int64, error) {
	return 0, nil
}

type pipelineFixture struct {
	pipeline  *Pipeline
	accounts  *fakeAccountRepo
	evidence  *fakeEvidenceRepo
	inventory *fakeInventoryRepo
	scope     in.IngestScope
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		accounts:  newFakeAccountRepo(),
		evidence:  newFakeEvidenceRepo(),
		inventory: &fakeInventoryRepo{},
		scope: in.IngestScope{
			UserID:          uuid.MustParse("11111111-2222-3333-4444-555555555555"),
			MailboxID:       "mb1",
			EmailIdentityID: "ident1",
		},
	}
	svc := NewService(f.accounts, f.evidence, NewCanonicalizer(nil), ServiceConfig{})
	f.pipeline = NewPipeline(NewClassifier(), svc, f.inventory, zerolog.Nop())
	return f
}

func TestPipelineProcessesWelcomeMessage(t *testing.T) {
	f := newPipelineFixture()
	msg := &domain.RawMessage{
		ProviderMsgID: "m1",
		From:          "Notion <no-reply@mail.notion.so>",
		Subject:       "Welcome to Notion",
		ReceivedAt:    time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}

	if err := f.pipeline.ProcessMessage(context.Background(), f.scope, msg); err != nil {
		t.Fatalf("ProcessMessage() error: %v", err)
	}

	if len(f.inventory.recorded) != 1 {
		t.Fatalf("inventory records = %d, want 1", len(f.inventory.recorded))
	}
	if f.inventory.recorded[0].RootDomain != "notion.so" {
		t.Errorf("inventory root domain = %q, want notion.so", f.inventory.recorded[0].RootDomain)
	}
	if _, ok := f.evidence.rows["mb1:m1:account_created"]; !ok {
		t.Error("evidence not keyed by message and intent")
	}
	if _, ok := f.accounts.accounts["ident1:notion.so"]; !ok {
		t.Error("account not created from welcome message")
	}
}

func TestPipelineSkipsUnparseableSender(t *testing.T) {
	f := newPipelineFixture()
	msg := &domain.RawMessage{
		ProviderMsgID: "m1",
		From:          "not-an-email",
		Subject:       "Welcome!",
	}

	if err := f.pipeline.ProcessMessage(context.Background(), f.scope, msg); err != nil {
		t.Fatalf("ProcessMessage() error: %v", err)
	}

	if len(f.inventory.recorded) != 0 {
		t.Error("inventory recorded for unparseable sender")
	}
	if len(f.evidence.rows) != 0 {
		t.Error("evidence recorded for unparseable sender")
	}
}

func TestPipelineInventoryFailureDoesNotBlockInference(t *testing.T) {
	f := newPipelineFixture()
	f.inventory.recordErr = errors.New("connection reset")

	msg := &domain.RawMessage{
		ProviderMsgID: "m1",
		From:          "billing@stripe.com",
		Subject:       "Your receipt from Acme",
		ReceivedAt:    time.Now(),
	}

	if err := f.pipeline.ProcessMessage(context.Background(), f.scope, msg); err != nil {
		t.Fatalf("ProcessMessage() error: %v", err)
	}

	if len(f.evidence.rows) != 1 {
		t.Errorf("evidence rows = %d, want inference to proceed past inventory failure", len(f.evidence.rows))
	}
}

func TestPipelinePropagatesInferenceFailure(t *testing.T) {
	f := newPipelineFixture()
	f.evidence.upsertErr = errors.New("connection reset")

	msg := &domain.RawMessage{
		ProviderMsgID: "m1",
		From:          "no-reply@github.com",
		Subject:       "Please verify your email",
		ReceivedAt:    time.Now(),
	}

	if err := f.pipeline.ProcessMessage(context.Background(), f.scope, msg); err == nil {
		t.Fatal("want error when evidence recording fails")
	}
}

func TestPipelineDefaultsMissingReceivedAt(t *testing.T) {
	f := newPipelineFixture()
	msg := &domain.RawMessage{
		ProviderMsgID:   "m1",
		From:            "news@substack.com",
		Subject:         "Weekly digest",
		ListUnsubscribe: "<https://substack.com/unsub>",
	}

	if err := f.pipeline.ProcessMessage(context.Background(), f.scope, msg); err != nil {
		t.Fatalf("ProcessMessage() error: %v", err)
	}

	if len(f.inventory.recorded) != 1 {
		t.Fatalf("inventory records = %d, want 1", len(f.inventory.recorded))
	}
	rec := f.inventory.recorded[0]
	if rec.LastSeen.IsZero() {
		t.Error("last seen not defaulted for missing Date header")
	}
	if !rec.HasUnsub {
		t.Error("has_unsub not set from List-Unsubscribe header")
	}
}
