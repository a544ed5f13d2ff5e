// Package mongodb implements MongoDB adapters for the application.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"sift_server/core/domain"
	"sift_server/core/port/out"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// =============================================================================
// MongoDB Evidence Adapter
// =============================================================================

const collectionEvidence = "account_evidence"

// EvidenceAdapter implements out.EvidenceRepository using MongoDB.
type EvidenceAdapter struct {
	db         *mongo.Database
	collection *mongo.Collection
}

// NewEvidenceAdapter creates a new MongoDB evidence adapter.
func NewEvidenceAdapter(db *mongo.Database) *EvidenceAdapter {
	collection := db.Collection(collectionEvidence)
	return &EvidenceAdapter{
		db:         db,
		collection: collection,
	}
}

// EnsureIndexes creates necessary indexes for the collection.
func (a *EvidenceAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "account_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	}

	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// =============================================================================
// Document Model
// =============================================================================

// evidenceDocument represents the MongoDB document structure.
type evidenceDocument struct {
	ID           string         `bson:"id"`
	UserID       string         `bson:"user_id"`
	AccountID    string         `bson:"account_id"`
	MailboxID    string         `bson:"mailbox_id"`
	MessageID    string         `bson:"message_id"`
	EvidenceType string         `bson:"evidence_type"`
	Excerpt      string         `bson:"excerpt,omitempty"`
	Signals      domain.Signals `bson:"signals"`
	Weight       float64        `bson:"weight"`
	CreatedAt    time.Time      `bson:"created_at"`
}

// =============================================================================
// Operations
// =============================================================================

// Upsert saves an evidence record keyed by its idempotency id. Re-processing
// a message replaces the row in place instead of duplicating it.
func (a *EvidenceAdapter) Upsert(ctx context.Context, evidence *domain.Evidence) error {
	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"id": evidence.ID}

	_, err := a.collection.ReplaceOne(ctx, filter, a.toDocument(evidence), opts)
	if err != nil {
		return fmt.Errorf("failed to save evidence: %w", err)
	}

	return nil
}

// ListByAccount retrieves evidence for an account, newest first.
func (a *EvidenceAdapter) ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.Evidence, error) {
	filter := bson.M{"account_id": accountID}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}

	cursor, err := a.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*domain.Evidence
	for cursor.Next(ctx) {
		var doc evidenceDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode evidence: %w", err)
		}

		entity, err := a.toEntity(&doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert evidence: %w", err)
		}
		records = append(records, entity)
	}

	return records, nil
}

// DeleteByUser deletes all evidence for a user.
func (a *EvidenceAdapter) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	filter := bson.M{"user_id": userID.String()}

	result, err := a.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user evidence: %w", err)
	}

	return result.DeletedCount, nil
}

// =============================================================================
// Conversion Helpers
// =============================================================================

func (a *EvidenceAdapter) toDocument(entity *domain.Evidence) *evidenceDocument {
	return &evidenceDocument{
		ID:           entity.ID,
		UserID:       entity.UserID.String(),
		AccountID:    entity.AccountID,
		MailboxID:    entity.MailboxID,
		MessageID:    entity.MessageID,
		EvidenceType: string(entity.EvidenceType),
		Excerpt:      entity.Excerpt,
		Signals:      entity.Signals,
		Weight:       entity.Weight,
		CreatedAt:    entity.CreatedAt,
	}
}

func (a *EvidenceAdapter) toEntity(doc *evidenceDocument) (*domain.Evidence, error) {
	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user ID: %w", err)
	}

	return &domain.Evidence{
		ID:           doc.ID,
		UserID:       userID,
		AccountID:    doc.AccountID,
		MailboxID:    doc.MailboxID,
		MessageID:    doc.MessageID,
		EvidenceType: domain.EvidenceType(doc.EvidenceType),
		Excerpt:      doc.Excerpt,
		Signals:      doc.Signals,
		Weight:       doc.Weight,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

// =============================================================================
// Interface Compliance
// =============================================================================

var _ out.EvidenceRepository = (*EvidenceAdapter)(nil)
