package mongodb

import (
	"fmt"
	"time"

	"github.com/estatemarket/auction-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Monetary amounts are stored as decimal strings, never as floats.

type auctionDocument struct {
	ListingID        string    `bson:"_id"`
	SellerID         string    `bson:"seller_id"`
	StartingPrice    string    `bson:"starting_price"`
	BidIncrement     string    `bson:"bid_increment"`
	CurrentPrice     string    `bson:"current_price"`
	StartTime        time.Time `bson:"start_time"`
	EndTime          time.Time `bson:"end_time"`
	Status           string    `bson:"status"`
	HighestBidderID  string    `bson:"highest_bidder_id,omitempty"`
	LeaderMaxAmount  string    `bson:"leader_max_amount,omitempty"`
	LeaderSince      time.Time `bson:"leader_since,omitempty"`
	BidCount         int64     `bson:"bid_count"`
	CommissionAmount string    `bson:"commission_amount,omitempty"`
	DepositAmount    string    `bson:"deposit_amount,omitempty"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

type bidDocument struct {
	ID        string    `bson:"_id"`
	ListingID string    `bson:"listing_id"`
	BidderID  string    `bson:"bidder_id"`
	Amount    string    `bson:"amount"`
	MaxAmount string    `bson:"max_amount"`
	Winning   bool      `bson:"winning"`
	CreatedAt time.Time `bson:"created_at"`
}

type settingsDocument struct {
	ID                   string    `bson:"_id"`
	AntiSnipingWindowSec int64     `bson:"anti_sniping_window_sec"`
	AntiSnipingExtSec    int64     `bson:"anti_sniping_extension_sec"`
	CommissionRate       string    `bson:"commission_rate"`
	DefaultDepositAmount string    `bson:"default_deposit_amount"`
	UpdatedAt            time.Time `bson:"updated_at"`
}

func toAuctionDocument(a *domain.Auction) *auctionDocument {
	return &auctionDocument{
		ListingID:        a.ListingID,
		SellerID:         a.SellerID,
		StartingPrice:    a.StartingPrice.String(),
		BidIncrement:     a.BidIncrement.String(),
		CurrentPrice:     a.CurrentPrice.String(),
		StartTime:        a.StartTime,
		EndTime:          a.EndTime,
		Status:           string(a.Status),
		HighestBidderID:  a.HighestBidderID,
		LeaderMaxAmount:  decimalString(a.LeaderMaxAmount),
		LeaderSince:      a.LeaderSince,
		BidCount:         a.BidCount,
		CommissionAmount: decimalString(a.CommissionAmount),
		DepositAmount:    decimalString(a.DepositAmount),
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func toDomainAuction(d *auctionDocument) (*domain.Auction, error) {
	startingPrice, err := parseAmount(d.StartingPrice, "starting_price", d.ListingID)
	if err != nil {
		return nil, err
	}
	increment, err := parseAmount(d.BidIncrement, "bid_increment", d.ListingID)
	if err != nil {
		return nil, err
	}
	currentPrice, err := parseAmount(d.CurrentPrice, "current_price", d.ListingID)
	if err != nil {
		return nil, err
	}
	leaderMax, err := parseOptionalAmount(d.LeaderMaxAmount, "leader_max_amount", d.ListingID)
	if err != nil {
		return nil, err
	}
	commission, err := parseOptionalAmount(d.CommissionAmount, "commission_amount", d.ListingID)
	if err != nil {
		return nil, err
	}
	deposit, err := parseOptionalAmount(d.DepositAmount, "deposit_amount", d.ListingID)
	if err != nil {
		return nil, err
	}

	return &domain.Auction{
		ListingID:        d.ListingID,
		SellerID:         d.SellerID,
		StartingPrice:    startingPrice,
		BidIncrement:     increment,
		CurrentPrice:     currentPrice,
		StartTime:        d.StartTime,
		EndTime:          d.EndTime,
		Status:           domain.AuctionStatus(d.Status),
		HighestBidderID:  d.HighestBidderID,
		LeaderMaxAmount:  leaderMax,
		LeaderSince:      d.LeaderSince,
		BidCount:         d.BidCount,
		CommissionAmount: commission,
		DepositAmount:    deposit,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}, nil
}

func toBidDocument(b *domain.Bid) *bidDocument {
	return &bidDocument{
		ID:        b.ID,
		ListingID: b.ListingID,
		BidderID:  b.BidderID,
		Amount:    b.Amount.String(),
		MaxAmount: b.MaxAmount.String(),
		Winning:   b.Winning,
		CreatedAt: b.CreatedAt,
	}
}

func toDomainBid(d *bidDocument) (*domain.Bid, error) {
	amount, err := parseAmount(d.Amount, "amount", d.ID)
	if err != nil {
		return nil, err
	}
	maxAmount, err := parseAmount(d.MaxAmount, "max_amount", d.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Bid{
		ID:        d.ID,
		ListingID: d.ListingID,
		BidderID:  d.BidderID,
		Amount:    amount,
		MaxAmount: maxAmount,
		Winning:   d.Winning,
		CreatedAt: d.CreatedAt,
	}, nil
}

func decimalString(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func parseAmount(raw, field, id string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q on document %s: %w", field, raw, id, err)
	}
	return d, nil
}

func parseOptionalAmount(raw, field, id string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return parseAmount(raw, field, id)
}
