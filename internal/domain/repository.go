package domain

import "context"

type AuctionRepository interface {
	Create(ctx context.Context, auction *Auction) error
	Update(ctx context.Context, auction *Auction) error
	FindByListingID(ctx context.Context, listingID string) (*Auction, error)
	FindByStatus(ctx context.Context, statuses ...AuctionStatus) ([]*Auction, error)
	Delete(ctx context.Context, listingID string) error
}

// BidLedger is the append-only history of accepted bids per listing.
type BidLedger interface {
	Append(ctx context.Context, bid *Bid) error
	ListByListingID(ctx context.Context, listingID string, limit, offset int64) ([]*Bid, error)
	CountByListingID(ctx context.Context, listingID string) (int64, error)
}

// SettingsSource yields the current admin configuration. Implementations may
// cache; staleness within a few seconds is acceptable.
type SettingsSource interface {
	AuctionSettings(ctx context.Context) (Settings, error)
}
