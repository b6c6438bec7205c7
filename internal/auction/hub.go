package auction

import (
	"context"
	"sync"

	"github.com/estatemarket/auction-service/internal/domain"
	"github.com/estatemarket/auction-service/internal/platform/logger"
	"github.com/estatemarket/auction-service/internal/platform/metrics"
)

const subscriberBuffer = 64

// Hub fans auction events out to all subscribers of a listing. Delivery is
// best-effort: a subscriber that cannot keep up has events dropped, which is
// safe because every event carries the full current snapshot.
type Hub struct {
	log     logger.Logger
	metrics *metrics.Manager

	mu    sync.RWMutex
	rooms map[string]map[string]chan Event

	// onFirst/onLast fire when a listing gains its first subscriber or loses
	// its last one. Used to start/stop the tick publisher.
	onFirst func(listingID string)
	onLast  func(listingID string)
}

func NewHub(log logger.Logger, m *metrics.Manager) *Hub {
	return &Hub{
		log:     log,
		metrics: m,
		rooms:   make(map[string]map[string]chan Event),
	}
}

// SetLifecycleHooks wires the first-subscriber/last-unsubscribe callbacks.
// Must be called before the hub starts receiving subscriptions.
func (h *Hub) SetLifecycleHooks(onFirst, onLast func(listingID string)) {
	h.onFirst = onFirst
	h.onLast = onLast
}

// Subscribe registers subscriberID for the listing's events. Subscribing
// twice with the same id is a no-op that returns the existing channel, so a
// duplicated subscribe never duplicates delivery.
func (h *Hub) Subscribe(listingID, subscriberID string) <-chan Event {
	h.mu.Lock()
	room, ok := h.rooms[listingID]
	if !ok {
		room = make(map[string]chan Event)
		h.rooms[listingID] = room
	}
	if ch, exists := room[subscriberID]; exists {
		h.mu.Unlock()
		return ch
	}
	ch := make(chan Event, subscriberBuffer)
	room[subscriberID] = ch
	first := len(room) == 1
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.Subscribers.Inc()
	}
	if first && h.onFirst != nil {
		h.onFirst(listingID)
	}
	h.log.Debugf("subscriber %s joined listing %s", subscriberID, listingID)
	return ch
}

// Unsubscribe removes the subscriber and closes its channel. Idempotent.
func (h *Hub) Unsubscribe(listingID, subscriberID string) {
	h.mu.Lock()
	room, ok := h.rooms[listingID]
	if !ok {
		h.mu.Unlock()
		return
	}
	ch, exists := room[subscriberID]
	if !exists {
		h.mu.Unlock()
		return
	}
	delete(room, subscriberID)
	last := len(room) == 0
	if last {
		delete(h.rooms, listingID)
	}
	h.mu.Unlock()

	close(ch)
	if h.metrics != nil {
		h.metrics.Subscribers.Dec()
	}
	if last && h.onLast != nil {
		h.onLast(listingID)
	}
	h.log.Debugf("subscriber %s left listing %s", subscriberID, listingID)
}

// SubscriberCount reports the number of active subscribers for a listing.
func (h *Hub) SubscriberCount(listingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[listingID])
}

// Broadcast delivers the event to every subscriber of the listing without
// blocking. Events to slow subscribers are dropped; the next tick repairs
// their view.
func (h *Hub) Broadcast(listingID string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.rooms[listingID] {
		select {
		case ch <- ev:
		default:
			h.log.Warnf("dropping %s event for slow subscriber %s on listing %s", ev.Type, id, listingID)
		}
	}
}

// Tick publishes a clock event for the listing.
func (h *Hub) Tick(snap domain.Snapshot) {
	h.Broadcast(snap.ListingID, Event{Type: EventTick, Snapshot: snap})
}

// BidAccepted implements EventSink.
func (h *Hub) BidAccepted(_ context.Context, snap domain.Snapshot) {
	h.Broadcast(snap.ListingID, Event{Type: EventBid, Snapshot: snap})
}

// AuctionExtended implements EventSink.
func (h *Hub) AuctionExtended(_ context.Context, snap domain.Snapshot) {
	h.Broadcast(snap.ListingID, Event{Type: EventExtended, Snapshot: snap})
}

// AuctionEnded implements EventSink.
func (h *Hub) AuctionEnded(_ context.Context, snap domain.Snapshot) {
	h.Broadcast(snap.ListingID, Event{Type: EventEnded, Snapshot: snap})
}

// Close drops every room and closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for listingID, room := range h.rooms {
		for id, ch := range room {
			close(ch)
			delete(room, id)
			if h.metrics != nil {
				h.metrics.Subscribers.Dec()
			}
		}
		delete(h.rooms, listingID)
	}
}
