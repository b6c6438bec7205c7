package auction

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/estatemarket/auction-service/internal/domain"
	"github.com/estatemarket/auction-service/internal/platform/logger"
)

// SnapshotSource yields a consistent read-only view of an auction.
type SnapshotSource interface {
	Snapshot(ctx context.Context, listingID string) (domain.Snapshot, error)
}

// TickPublisher broadcasts (serverTime, endTime) once per interval for every
// listing with at least one subscriber, so all viewers render the same
// countdown regardless of client clock skew. Ticking for a listing starts on
// first subscription and stops on last unsubscribe or when the auction
// reaches a terminal status; a terminal auction gets one final tick.
type TickPublisher struct {
	hub      *Hub
	source   SnapshotSource
	interval time.Duration
	log      logger.Logger

	mu    sync.Mutex
	stops map[string]chan struct{}
	wg    sync.WaitGroup
}

func NewTickPublisher(hub *Hub, source SnapshotSource, interval time.Duration, log logger.Logger) *TickPublisher {
	if interval <= 0 {
		interval = time.Second
	}
	return &TickPublisher{
		hub:      hub,
		source:   source,
		interval: interval,
		log:      log,
		stops:    make(map[string]chan struct{}),
	}
}

// Start begins ticking for the listing. Idempotent.
func (t *TickPublisher) Start(listingID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, running := t.stops[listingID]; running {
		return
	}
	stop := make(chan struct{})
	t.stops[listingID] = stop
	t.wg.Add(1)
	go t.run(listingID, stop)
}

// Stop ends ticking for the listing. Idempotent.
func (t *TickPublisher) Stop(listingID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if stop, running := t.stops[listingID]; running {
		close(stop)
		delete(t.stops, listingID)
	}
}

// StopAll halts every ticker and waits for the loops to drain.
func (t *TickPublisher) StopAll() {
	t.mu.Lock()
	for id, stop := range t.stops {
		close(stop)
		delete(t.stops, id)
	}
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *TickPublisher) run(listingID string, stop chan struct{}) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	// Immediate tick so a fresh subscriber does not wait a full interval for
	// its first countdown sync.
	if done := t.tick(listingID); done {
		t.remove(listingID, stop)
		return
	}

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if done := t.tick(listingID); done {
				t.remove(listingID, stop)
				return
			}
		}
	}
}

// tick emits one clock event and reports whether ticking should stop.
func (t *TickPublisher) tick(listingID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), t.interval)
	defer cancel()

	snap, err := t.source.Snapshot(ctx, listingID)
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return true
		}
		t.log.Warnf("tick for listing %s failed to read snapshot: %v", listingID, err)
		return false
	}
	t.hub.Tick(snap)
	// A terminal auction gets this one final tick, then the loop exits.
	return snap.Status.Terminal()
}

// remove clears internal bookkeeping when a loop exits on its own rather
// than via Stop.
func (t *TickPublisher) remove(listingID string, stop chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.stops[listingID]; ok && cur == stop {
		delete(t.stops, listingID)
	}
}
