package mongodb

import (
	"context"
	"fmt"

	"github.com/estatemarket/auction-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const bidsCollection = "bids"

// BidLedgerRepository is the append-only bid history. Documents are inserted
// once and never updated or deleted.
type BidLedgerRepository struct {
	collection *mongo.Collection
}

func NewBidLedgerRepository(db *mongo.Database) *BidLedgerRepository {
	return &BidLedgerRepository{collection: db.Collection(bidsCollection)}
}

// EnsureIndexes creates the listing_id + created_at index used by history
// reads.
func (r *BidLedgerRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create bid ledger indexes: %w", err)
	}
	return nil
}

func (r *BidLedgerRepository) Append(ctx context.Context, bid *domain.Bid) error {
	_, err := r.collection.InsertOne(ctx, toBidDocument(bid))
	if err != nil {
		return fmt.Errorf("failed to append bid %s: %w", bid.ID, err)
	}
	return nil
}

func (r *BidLedgerRepository) ListByListingID(ctx context.Context, listingID string, limit, offset int64) ([]*domain.Bid, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"listing_id": listingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids for listing %s: %w", listingID, err)
	}
	var docs []*bidDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode bids for listing %s: %w", listingID, err)
	}
	bids := make([]*domain.Bid, 0, len(docs))
	for _, doc := range docs {
		b, err := toDomainBid(doc)
		if err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, nil
}

func (r *BidLedgerRepository) CountByListingID(ctx context.Context, listingID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"listing_id": listingID})
	if err != nil {
		return 0, fmt.Errorf("failed to count bids for listing %s: %w", listingID, err)
	}
	return count, nil
}
