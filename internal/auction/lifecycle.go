package auction

import (
	"context"
	"time"

	"github.com/estatemarket/auction-service/internal/domain"
	"github.com/estatemarket/auction-service/internal/platform/logger"
	"github.com/shopspring/decimal"
)

// Sweeper finalizes auctions whose end time has passed: it persists the
// ended status, computes the seller commission from the configured rate and
// publishes the final snapshot. It runs alongside the processor; actual
// mutation goes through the same per-listing slot as bids, so a finalize can
// never interleave with a bid in flight.
type Sweeper struct {
	p        *Processor
	interval time.Duration
	log      logger.Logger
}

func NewSweeper(p *Processor, interval time.Duration, log logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sweeper{p: p, interval: interval, log: log}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	for _, listingID := range s.p.trackedListings() {
		if err := s.p.finalizeIfDue(ctx, listingID); err != nil {
			s.log.Warnf("failed to finalize auction for listing %s: %v", listingID, err)
		}
	}
}

func (p *Processor) trackedListings() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.states))
	for id := range p.states {
		out = append(out, id)
	}
	return out
}

// finalizeIfDue transitions a live auction past its end time to ended. A
// no-op for auctions that are still running, not yet started, or already
// terminal.
func (p *Processor) finalizeIfDue(ctx context.Context, listingID string) error {
	p.mu.Lock()
	st, ok := p.states[listingID]
	p.mu.Unlock()
	if !ok {
		return nil
	}

	// Cheap pre-check outside the slot; re-checked once it is held.
	rec := st.get()
	if rec == nil || rec.Status.Terminal() || p.now().Before(rec.EndTime) {
		return nil
	}

	if err := p.acquire(ctx, st); err != nil {
		// A bid is mid-flight; it may extend the auction. Next sweep retries.
		if err == domain.ErrConcurrentBidConflict {
			return nil
		}
		return err
	}

	snap, finalized, err := func() (domain.Snapshot, bool, error) {
		defer p.release(st)

		rec := st.get()
		now := p.now()
		if rec == nil || rec.Status.Terminal() || now.Before(rec.EndTime) {
			return domain.Snapshot{}, false, nil
		}

		updated := *rec
		updated.Status = domain.StatusEnded
		updated.UpdatedAt = now
		if updated.BidCount > 0 {
			settings, serr := p.settings.AuctionSettings(ctx)
			if serr != nil {
				p.log.Warnf("finalizing listing %s without settings: %v", listingID, serr)
			}
			updated.CommissionAmount = updated.CurrentPrice.Mul(settings.CommissionRate).Round(2)
		} else {
			updated.CommissionAmount = decimal.Zero
		}

		if err := p.repo.Update(ctx, &updated); err != nil {
			return domain.Snapshot{}, false, err
		}
		st.set(&updated)
		return updated.Snapshot(now), true, nil
	}()
	if err != nil || !finalized {
		return err
	}

	if p.metrics != nil {
		p.metrics.AuctionsEndedTotal.Inc()
	}
	p.log.Infof("auction for listing %s ended: final price %s, bids %d, winner %q",
		listingID, snap.CurrentPrice.String(), snap.BidCount, snap.HighestBidderID)
	p.sink.AuctionEnded(ctx, snap)
	return nil
}
