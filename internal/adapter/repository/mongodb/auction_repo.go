package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/estatemarket/auction-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const auctionsCollection = "auctions"

type AuctionRepository struct {
	collection *mongo.Collection
}

func NewAuctionRepository(db *mongo.Database) *AuctionRepository {
	return &AuctionRepository{collection: db.Collection(auctionsCollection)}
}

func (r *AuctionRepository) Create(ctx context.Context, auction *domain.Auction) error {
	_, err := r.collection.InsertOne(ctx, toAuctionDocument(auction))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAuctionAlreadyExists
		}
		return fmt.Errorf("failed to insert auction for listing %s: %w", auction.ListingID, err)
	}
	return nil
}

func (r *AuctionRepository) Update(ctx context.Context, auction *domain.Auction) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": auction.ListingID}, toAuctionDocument(auction))
	if err != nil {
		return fmt.Errorf("failed to update auction for listing %s: %w", auction.ListingID, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAuctionNotFound
	}
	return nil
}

func (r *AuctionRepository) FindByListingID(ctx context.Context, listingID string) (*domain.Auction, error) {
	var doc auctionDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": listingID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to find auction for listing %s: %w", listingID, err)
	}
	return toDomainAuction(&doc)
}

func (r *AuctionRepository) FindByStatus(ctx context.Context, statuses ...domain.AuctionStatus) ([]*domain.Auction, error) {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	cursor, err := r.collection.Find(ctx, bson.M{"status": bson.M{"$in": values}})
	if err != nil {
		return nil, fmt.Errorf("failed to query auctions by status: %w", err)
	}
	var docs []*auctionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode auctions by status: %w", err)
	}
	auctions := make([]*domain.Auction, 0, len(docs))
	for _, doc := range docs {
		a, err := toDomainAuction(doc)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	return auctions, nil
}

func (r *AuctionRepository) Delete(ctx context.Context, listingID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": listingID})
	if err != nil {
		return fmt.Errorf("failed to delete auction for listing %s: %w", listingID, err)
	}
	return nil
}
