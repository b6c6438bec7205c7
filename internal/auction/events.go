package auction

import (
	"context"

	"github.com/estatemarket/auction-service/internal/domain"
)

// Wire-level event types pushed to subscribed clients.
const (
	EventTick     = "auction:tick"
	EventBid      = "auction:bid"
	EventExtended = "auction:extended"
	EventEnded    = "auction:ended"
)

// Event is one outbound push message. The snapshot is embedded so the wire
// payload is flat: {"type": "auction:bid", "listingId": ..., "currentPrice":
// ..., "endTime": ...}. Clients treat the latest snapshot as authoritative
// and never accumulate deltas.
type Event struct {
	Type string `json:"type"`
	domain.Snapshot
}

// EventSink receives domain events from the bid processor. Implementations
// must not block: the processor calls them outside the per-listing critical
// section, but a slow sink still delays the submitting caller.
type EventSink interface {
	BidAccepted(ctx context.Context, snap domain.Snapshot)
	AuctionExtended(ctx context.Context, snap domain.Snapshot)
	AuctionEnded(ctx context.Context, snap domain.Snapshot)
}

// MultiSink fans one event out to several sinks in order.
type MultiSink []EventSink

func (m MultiSink) BidAccepted(ctx context.Context, snap domain.Snapshot) {
	for _, s := range m {
		s.BidAccepted(ctx, snap)
	}
}

func (m MultiSink) AuctionExtended(ctx context.Context, snap domain.Snapshot) {
	for _, s := range m {
		s.AuctionExtended(ctx, snap)
	}
}

func (m MultiSink) AuctionEnded(ctx context.Context, snap domain.Snapshot) {
	for _, s := range m {
		s.AuctionEnded(ctx, snap)
	}
}
