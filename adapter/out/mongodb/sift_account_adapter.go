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
// MongoDB Account Adapter
// =============================================================================

const collectionAccounts = "inferred_accounts"

// AccountAdapter implements out.AccountRepository using MongoDB.
type AccountAdapter struct {
	db         *mongo.Database
	collection *mongo.Collection
}

// NewAccountAdapter creates a new MongoDB account adapter.
func NewAccountAdapter(db *mongo.Database) *AccountAdapter {
	collection := db.Collection(collectionAccounts)
	return &AccountAdapter{
		db:         db,
		collection: collection,
	}
}

// EnsureIndexes creates necessary indexes for the collection.
func (a *AccountAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "last_seen_at", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "category", Value: 1},
			},
		},
	}

	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// =============================================================================
// Document Model
// =============================================================================

// accountDocument represents the MongoDB document structure.
type accountDocument struct {
	ID              string    `bson:"id"`
	UserID          string    `bson:"user_id"`
	EmailIdentityID string    `bson:"email_identity_id"`
	ServiceName     string    `bson:"service_name"`
	ServiceDomain   string    `bson:"service_domain"`
	Category        string    `bson:"category"`
	ConfidenceScore float64   `bson:"confidence_score"`
	Explanation     string    `bson:"explanation"`
	SettingsURL     string    `bson:"settings_url,omitempty"`
	Status          string    `bson:"status"`
	FirstSeenAt     time.Time `bson:"first_seen_at"`
	LastSeenAt      time.Time `bson:"last_seen_at"`
	Version         int64     `bson:"version"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

// =============================================================================
// Single Operations
// =============================================================================

// GetByID retrieves an account by ID.
func (a *AccountAdapter) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	var doc accountDocument
	filter := bson.M{"id": id}

	err := a.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, out.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return a.toEntity(&doc)
}

// Create inserts a new account. The unique index on id turns a lost create
// race into ErrDuplicate so the caller can retry as an update.
func (a *AccountAdapter) Create(ctx context.Context, account *domain.Account) error {
	_, err := a.collection.InsertOne(ctx, a.toDocument(account))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return out.ErrDuplicate
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// Update writes the account guarded by its version: the filter matches both
// id and the version the caller read, and the write bumps the version. A
// zero match count means a concurrent writer got there first.
func (a *AccountAdapter) Update(ctx context.Context, account *domain.Account) error {
	filter := bson.M{
		"id":      account.ID,
		"version": account.Version,
	}
	update := bson.M{
		"$set": bson.M{
			"service_name":     account.ServiceName,
			"service_domain":   account.ServiceDomain,
			"category":         string(account.Category),
			"confidence_score": account.ConfidenceScore,
			"explanation":      account.Explanation,
			"settings_url":     account.SettingsURL,
			"status":           string(account.Status),
			"first_seen_at":    account.FirstSeenAt,
			"last_seen_at":     account.LastSeenAt,
			"version":          account.Version + 1,
			"updated_at":       account.UpdatedAt,
		},
	}

	result, err := a.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if result.MatchedCount == 0 {
		return out.ErrVersionConflict
	}

	return nil
}

// =============================================================================
// Query Operations
// =============================================================================

// ListByUser retrieves accounts for a user with options.
func (a *AccountAdapter) ListByUser(ctx context.Context, userID uuid.UUID, opts *out.AccountListOptions) ([]*domain.Account, error) {
	filter := bson.M{"user_id": userID.String()}

	if opts != nil {
		if opts.EmailIdentityID != "" {
			filter["email_identity_id"] = opts.EmailIdentityID
		}
		if opts.Category != "" {
			filter["category"] = string(opts.Category)
		}
		if opts.Status != "" {
			filter["status"] = string(opts.Status)
		}
		if opts.MinConfidence > 0 {
			filter["confidence_score"] = bson.M{"$gte": opts.MinConfidence}
		}
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "last_seen_at", Value: -1}})
	if opts != nil && opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cursor, err := a.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var accounts []*domain.Account
	for cursor.Next(ctx) {
		var doc accountDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode account: %w", err)
		}

		entity, err := a.toEntity(&doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert account: %w", err)
		}
		accounts = append(accounts, entity)
	}

	return accounts, nil
}

// =============================================================================
// Cleanup Operations
// =============================================================================

// DeleteByUser deletes all accounts for a user.
func (a *AccountAdapter) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	filter := bson.M{"user_id": userID.String()}

	result, err := a.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user accounts: %w", err)
	}

	return result.DeletedCount, nil
}

// =============================================================================
// Conversion Helpers
// =============================================================================

func (a *AccountAdapter) toDocument(entity *domain.Account) *accountDocument {
	return &accountDocument{
		ID:              entity.ID,
		UserID:          entity.UserID.String(),
		EmailIdentityID: entity.EmailIdentityID,
		ServiceName:     entity.ServiceName,
		ServiceDomain:   entity.ServiceDomain,
		Category:        string(entity.Category),
		ConfidenceScore: entity.ConfidenceScore,
		Explanation:     entity.Explanation,
		SettingsURL:     entity.SettingsURL,
		Status:          string(entity.Status),
		FirstSeenAt:     entity.FirstSeenAt,
		LastSeenAt:      entity.LastSeenAt,
		Version:         entity.Version,
		CreatedAt:       entity.CreatedAt,
		UpdatedAt:       entity.UpdatedAt,
	}
}

func (a *AccountAdapter) toEntity(doc *accountDocument) (*domain.Account, error) {
	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user ID: %w", err)
	}

	return &domain.Account{
		ID:              doc.ID,
		UserID:          userID,
		EmailIdentityID: doc.EmailIdentityID,
		ServiceName:     doc.ServiceName,
		ServiceDomain:   doc.ServiceDomain,
		Category:        domain.AccountCategory(doc.Category),
		ConfidenceScore: doc.ConfidenceScore,
		Explanation:     doc.Explanation,
		SettingsURL:     doc.SettingsURL,
		Status:          domain.AccountStatus(doc.Status),
		FirstSeenAt:     doc.FirstSeenAt,
		LastSeenAt:      doc.LastSeenAt,
		Version:         doc.Version,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}, nil
}

// =============================================================================
// Interface Compliance
// =============================================================================

var _ out.AccountRepository = (*AccountAdapter)(nil)
