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
// MongoDB Sender Inventory Adapter
// =============================================================================

const collectionInventory = "sender_inventory"

// InventoryAdapter implements out.InventoryRepository using MongoDB.
type InventoryAdapter struct {
	db         *mongo.Database
	collection *mongo.Collection
}

// NewInventoryAdapter creates a new MongoDB inventory adapter.
func NewInventoryAdapter(db *mongo.Database) *InventoryAdapter {
	collection := db.Collection(collectionInventory)
	return &InventoryAdapter{
		db:         db,
		collection: collection,
	}
}

// EnsureIndexes creates necessary indexes for the collection.
func (a *InventoryAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "last_seen", Value: -1},
			},
		},
	}

	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// =============================================================================
// Document Model
// =============================================================================

// inventoryDocument represents the MongoDB document structure.
type inventoryDocument struct {
	ID         string    `bson:"id"`
	UserID     string    `bson:"user_id"`
	MailboxID  string    `bson:"mailbox_id"`
	RootDomain string    `bson:"root_domain"`
	FirstSeen  time.Time `bson:"first_seen"`
	LastSeen   time.Time `bson:"last_seen"`
	MsgCount   int64     `bson:"msg_count"`
	HasUnsub   bool      `bson:"has_unsub"`
	Status     string    `bson:"status"`
}

// =============================================================================
// Operations
// =============================================================================

// Record merges one observed message into the sender's row. A single upsert
// keeps the merge atomic: the count increments, the seen window only widens,
// and the unsubscribe flag follows the latest message.
func (a *InventoryAdapter) Record(ctx context.Context, inv *domain.Inventory) error {
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"id": inv.ID}
	update := bson.M{
		"$inc": bson.M{"msg_count": int64(1)},
		"$min": bson.M{"first_seen": inv.FirstSeen},
		"$max": bson.M{"last_seen": inv.LastSeen},
		"$set": bson.M{
			"has_unsub": inv.HasUnsub,
			"status":    string(domain.InventoryActive),
		},
		"$setOnInsert": bson.M{
			"id":          inv.ID,
			"user_id":     inv.UserID.String(),
			"mailbox_id":  inv.MailboxID,
			"root_domain": inv.RootDomain,
		},
	}

	_, err := a.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to record sender: %w", err)
	}

	return nil
}

// List retrieves inventory rows for a user, most recently seen first.
func (a *InventoryAdapter) List(ctx context.Context, userID uuid.UUID, opts *out.InventoryListOptions) ([]*domain.Inventory, error) {
	filter := bson.M{"user_id": userID.String()}

	if opts != nil {
		if opts.MailboxID != "" {
			filter["mailbox_id"] = opts.MailboxID
		}
		if opts.HasUnsub != nil {
			filter["has_unsub"] = *opts.HasUnsub
		}
		if !opts.LastSeenAfter.IsZero() {
			filter["last_seen"] = bson.M{"$gt": opts.LastSeenAfter}
		}
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "last_seen", Value: -1}})
	if opts != nil && opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cursor, err := a.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []*domain.Inventory
	for cursor.Next(ctx) {
		var doc inventoryDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode inventory: %w", err)
		}

		entity, err := a.toEntity(&doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert inventory: %w", err)
		}
		rows = append(rows, entity)
	}

	return rows, nil
}

// UpdateStatus marks a row, e.g. ignored.
func (a *InventoryAdapter) UpdateStatus(ctx context.Context, id string, status domain.InventoryStatus) error {
	filter := bson.M{"id": id}
	update := bson.M{"$set": bson.M{"status": string(status)}}

	result, err := a.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update inventory status: %w", err)
	}
	if result.MatchedCount == 0 {
		return out.ErrNotFound
	}

	return nil
}

// DeleteByUser deletes all inventory rows for a user.
func (a *InventoryAdapter) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	filter := bson.M{"user_id": userID.String()}

	result, err := a.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user inventory: %w", err)
	}

	return result.DeletedCount, nil
}

// =============================================================================
// Conversion Helpers
// =============================================================================

func (a *InventoryAdapter) toEntity(doc *inventoryDocument) (*domain.Inventory, error) {
	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user ID: %w", err)
	}

	return &domain.Inventory{
		ID:         doc.ID,
		UserID:     userID,
		MailboxID:  doc.MailboxID,
		RootDomain: doc.RootDomain,
		FirstSeen:  doc.FirstSeen,
		LastSeen:   doc.LastSeen,
		MsgCount:   doc.MsgCount,
		HasUnsub:   doc.HasUnsub,
		Status:     domain.InventoryStatus(doc.Status),
	}, nil
}

// =============================================================================
// Interface Compliance
// =============================================================================

var _ out.InventoryRepository = (*InventoryAdapter)(nil)
