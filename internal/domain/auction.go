package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AuctionStatus string

const (
	StatusScheduled AuctionStatus = "scheduled"
	StatusLive      AuctionStatus = "live"
	StatusEnded     AuctionStatus = "ended"
	StatusClosed    AuctionStatus = "closed"
)

// Terminal reports whether no further status transition is possible.
func (s AuctionStatus) Terminal() bool {
	return s == StatusEnded || s == StatusClosed
}

// Auction is the per-listing auction state. All mutations go through the
// bid processor; readers only ever see copies.
type Auction struct {
	ListingID     string
	SellerID      string
	StartingPrice decimal.Decimal
	BidIncrement  decimal.Decimal
	CurrentPrice  decimal.Decimal
	StartTime     time.Time
	EndTime       time.Time
	Status        AuctionStatus

	HighestBidderID string
	// LeaderMaxAmount is the sealed ceiling of the current leader. It is never
	// exposed on snapshots.
	LeaderMaxAmount decimal.Decimal
	LeaderSince     time.Time
	BidCount        int64

	// Set on finalization.
	CommissionAmount decimal.Decimal
	DepositAmount    decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveStatus resolves the time-driven transitions (scheduled→live,
// live→ended) against the given instant. Closed and ended are sticky.
func (a *Auction) EffectiveStatus(now time.Time) AuctionStatus {
	if a.Status.Terminal() {
		return a.Status
	}
	if now.Before(a.StartTime) {
		return StatusScheduled
	}
	if !now.Before(a.EndTime) {
		return StatusEnded
	}
	return StatusLive
}

// MinimumBid is the smallest admissible bid amount: the starting price while
// the book is empty, currentPrice + increment afterwards.
func (a *Auction) MinimumBid() decimal.Decimal {
	if a.BidCount == 0 {
		return a.StartingPrice
	}
	return a.CurrentPrice.Add(a.BidIncrement)
}

// Snapshot builds the full client-facing view of the auction. Every outbound
// event carries one of these, so a missed or duplicated event cannot corrupt
// client state.
func (a *Auction) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		ListingID:        a.ListingID,
		Status:           a.EffectiveStatus(now),
		CurrentPrice:     a.CurrentPrice,
		MinimumBid:       a.MinimumBid(),
		BidCount:         a.BidCount,
		HighestBidderID:  a.HighestBidderID,
		StartTime:        a.StartTime,
		EndTime:          a.EndTime,
		ServerTime:       now,
		CommissionAmount: a.CommissionAmount,
		DepositAmount:    a.DepositAmount,
	}
}

// Snapshot is the immutable, client-facing view of an auction at an instant.
type Snapshot struct {
	ListingID        string          `json:"listingId"`
	Status           AuctionStatus   `json:"auctionStatus"`
	CurrentPrice     decimal.Decimal `json:"currentPrice"`
	MinimumBid       decimal.Decimal `json:"minimumBid"`
	BidCount         int64           `json:"bidCount"`
	HighestBidderID  string          `json:"highestBidderId,omitempty"`
	StartTime        time.Time       `json:"startTime"`
	EndTime          time.Time       `json:"endTime"`
	ServerTime       time.Time       `json:"serverTime"`
	CommissionAmount decimal.Decimal `json:"commissionAmount"`
	DepositAmount    decimal.Decimal `json:"depositAmount"`
}
