package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid is one accepted ledger entry. Entries are immutable once appended and
// are never mutated or deleted.
type Bid struct {
	ID        string
	ListingID string
	BidderID  string
	// Amount is the bidder's declared floor (the amount shown to them when
	// they confirmed the bid).
	Amount decimal.Decimal
	// MaxAmount is the sealed proxy ceiling. Equal to Amount for a non-proxy
	// bid.
	MaxAmount decimal.Decimal
	// Winning reports whether the bid held the lead immediately after it was
	// resolved.
	Winning   bool
	CreatedAt time.Time
}
