package auction

import (
	"time"

	"github.com/estatemarket/auction-service/internal/domain"
	"github.com/shopspring/decimal"
)

// LeaderState identifies the current highest bidder and their sealed ceiling.
type LeaderState struct {
	BidderID  string
	MaxAmount decimal.Decimal
	Since     time.Time
}

func (l LeaderState) Empty() bool { return l.BidderID == "" }

// Outcome is the result of resolving one admissible bid against the current
// leader.
type Outcome struct {
	Leader LeaderState
	// DisplayPrice is the new public current price. Never below the price the
	// auction already showed.
	DisplayPrice decimal.Decimal
	// LeaderChanged reports whether the incoming bid took (or kept, for a
	// leader raising their own ceiling) the lead.
	LeaderChanged bool
	// Winning mirrors the ledger flag for the incoming bid.
	Winning bool
}

// Resolve applies the English-auction proxy rule: the strictly higher ceiling
// leads, and the public price rises to the runner-up ceiling plus one
// increment, capped at the leader's ceiling. On equal ceilings the earlier
// bid keeps the lead. A losing bid may still push the price up.
//
// Resolve is pure. Admissibility (amount vs. minimum bid, status, time
// window) is the processor's job; the incoming bid is assumed admissible.
func Resolve(current LeaderState, currentPrice, startingPrice decimal.Decimal, incoming domain.Bid, increment decimal.Decimal) Outcome {
	if current.Empty() {
		// First bid: the only other "ceiling" is the starting price itself.
		price := decimal.Min(incoming.MaxAmount, startingPrice.Add(increment))
		return Outcome{
			Leader:        LeaderState{BidderID: incoming.BidderID, MaxAmount: incoming.MaxAmount, Since: incoming.CreatedAt},
			DisplayPrice:  decimal.Max(price, currentPrice),
			LeaderChanged: true,
			Winning:       true,
		}
	}

	if incoming.BidderID == current.BidderID {
		// The leader raising (or restating) their own ceiling. No competing
		// ceiling moved, so the public price stays put.
		return Outcome{
			Leader: LeaderState{
				BidderID:  current.BidderID,
				MaxAmount: decimal.Max(current.MaxAmount, incoming.MaxAmount),
				Since:     current.Since,
			},
			DisplayPrice:  currentPrice,
			LeaderChanged: false,
			Winning:       true,
		}
	}

	switch incoming.MaxAmount.Cmp(current.MaxAmount) {
	case 1:
		// Challenger outbids the leader: price rises to the dethroned
		// leader's ceiling plus one increment, capped at the new ceiling.
		price := decimal.Min(incoming.MaxAmount, current.MaxAmount.Add(increment))
		return Outcome{
			Leader:        LeaderState{BidderID: incoming.BidderID, MaxAmount: incoming.MaxAmount, Since: incoming.CreatedAt},
			DisplayPrice:  decimal.Max(price, currentPrice),
			LeaderChanged: true,
			Winning:       true,
		}
	case 0:
		// Equal ceilings: the earlier bid keeps leadership, price exposes the
		// full ceiling.
		return Outcome{
			Leader:        current,
			DisplayPrice:  decimal.Max(current.MaxAmount, currentPrice),
			LeaderChanged: false,
			Winning:       false,
		}
	default:
		// Losing bid: recorded, leader unchanged, but the proxy bids the
		// leader up past the challenger's ceiling.
		price := decimal.Min(current.MaxAmount, incoming.MaxAmount.Add(increment))
		return Outcome{
			Leader:        current,
			DisplayPrice:  decimal.Max(price, currentPrice),
			LeaderChanged: false,
			Winning:       false,
		}
	}
}
