package auction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/estatemarket/auction-service/internal/domain"
	"github.com/estatemarket/auction-service/internal/platform/logger"
	"github.com/estatemarket/auction-service/internal/platform/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rejection reasons used as metric labels.
const (
	rejectNotLive       = "not_live"
	rejectInvalidAmount = "invalid_amount"
	rejectTooLow        = "too_low"
	rejectConflict      = "conflict"
	rejectNotFound      = "not_found"
	rejectStorage       = "storage"
)

type ProcessorConfig struct {
	// LockTimeout bounds how long a bid waits for the per-listing slot before
	// failing with ErrConcurrentBidConflict.
	LockTimeout time.Duration
}

// Processor owns all auction state mutation. Work for a single listing is
// strictly serialized through a capacity-1 slot; different listings proceed
// fully in parallel. The critical section covers resolve + persist + the
// anti-sniping check; event fan-out happens only after the slot is released.
type Processor struct {
	repo     domain.AuctionRepository
	ledger   domain.BidLedger
	settings domain.SettingsSource
	sink     EventSink
	log      logger.Logger
	metrics  *metrics.Manager
	cfg      ProcessorConfig
	now      func() time.Time

	mu     sync.Mutex
	states map[string]*listingState
}

// listingState is the in-memory authority for one listing. The record
// pointer is swapped wholesale under recMu, so readers always see either the
// previous or the next complete state, never a partial update.
type listingState struct {
	slot   chan struct{}
	recMu  sync.RWMutex
	record *domain.Auction
}

func (st *listingState) get() *domain.Auction {
	st.recMu.RLock()
	defer st.recMu.RUnlock()
	return st.record
}

func (st *listingState) set(rec *domain.Auction) {
	st.recMu.Lock()
	st.record = rec
	st.recMu.Unlock()
}

func NewProcessor(
	repo domain.AuctionRepository,
	ledger domain.BidLedger,
	settings domain.SettingsSource,
	sink EventSink,
	log logger.Logger,
	m *metrics.Manager,
	cfg ProcessorConfig,
) *Processor {
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 2 * time.Second
	}
	return &Processor{
		repo:     repo,
		ledger:   ledger,
		settings: settings,
		sink:     sink,
		log:      log,
		metrics:  m,
		cfg:      cfg,
		now:      time.Now,
		states:   make(map[string]*listingState),
	}
}

type SubmitBidRequest struct {
	ListingID string
	BidderID  string
	Amount    decimal.Decimal
	// MaxAmount is the optional proxy ceiling. Nil means a plain bid
	// (ceiling equals the amount).
	MaxAmount *decimal.Decimal
}

// SubmitBid validates, serializes per listing, resolves the proxy rule,
// persists and finally broadcasts. Every rejection path leaves stored state
// untouched and emits nothing.
func (p *Processor) SubmitBid(ctx context.Context, req SubmitBidRequest) (domain.Snapshot, error) {
	started := time.Now()

	if req.ListingID == "" || req.BidderID == "" {
		return domain.Snapshot{}, fmt.Errorf("listing id and bidder id are required: %w", domain.ErrInvalidAuctionData)
	}
	if !req.Amount.IsPositive() {
		p.reject(rejectInvalidAmount)
		return domain.Snapshot{}, domain.ErrInvalidBidAmount
	}
	maxAmount := req.Amount
	if req.MaxAmount != nil {
		if req.MaxAmount.LessThan(req.Amount) {
			p.reject(rejectInvalidAmount)
			return domain.Snapshot{}, domain.ErrInvalidBidAmount
		}
		maxAmount = *req.MaxAmount
	}

	st := p.state(req.ListingID)
	if err := p.acquire(ctx, st); err != nil {
		if err == domain.ErrConcurrentBidConflict {
			p.reject(rejectConflict)
		}
		return domain.Snapshot{}, err
	}

	snap, extended, err := func() (domain.Snapshot, bool, error) {
		defer p.release(st)
		return p.applyBid(ctx, st, req, maxAmount)
	}()
	if err != nil {
		return domain.Snapshot{}, err
	}

	if p.metrics != nil {
		p.metrics.BidsAcceptedTotal.Inc()
		p.metrics.BidLatency.Observe(time.Since(started).Seconds())
	}

	// Fan-out strictly after the slot is released so slow subscribers cannot
	// head-of-line block the next bid.
	p.sink.BidAccepted(ctx, snap)
	if extended {
		if p.metrics != nil {
			p.metrics.ExtensionsTotal.Inc()
		}
		p.sink.AuctionExtended(ctx, snap)
	}
	return snap, nil
}

// applyBid runs with the listing slot held.
func (p *Processor) applyBid(ctx context.Context, st *listingState, req SubmitBidRequest, maxAmount decimal.Decimal) (domain.Snapshot, bool, error) {
	rec, err := p.loadLocked(ctx, st, req.ListingID)
	if err != nil {
		p.reject(rejectNotFound)
		return domain.Snapshot{}, false, err
	}

	now := p.now()
	if rec.EffectiveStatus(now) != domain.StatusLive {
		p.reject(rejectNotLive)
		return domain.Snapshot{}, false, domain.ErrAuctionNotLive
	}

	minimum := rec.MinimumBid()
	if req.Amount.LessThan(minimum) {
		p.reject(rejectTooLow)
		return domain.Snapshot{}, false, &domain.BidTooLowError{CurrentPrice: rec.CurrentPrice, MinimumBid: minimum}
	}

	settings, err := p.settings.AuctionSettings(ctx)
	if err != nil {
		// The settings source falls back to configured defaults; an error
		// here means even that failed. Proceed without extension rather than
		// rejecting a valid bid.
		p.log.Warnf("failed to read auction settings for listing %s: %v", req.ListingID, err)
	}

	bid := &domain.Bid{
		ID:        uuid.NewString(),
		ListingID: req.ListingID,
		BidderID:  req.BidderID,
		Amount:    req.Amount,
		MaxAmount: maxAmount,
		CreatedAt: now,
	}

	current := LeaderState{BidderID: rec.HighestBidderID, MaxAmount: rec.LeaderMaxAmount, Since: rec.LeaderSince}
	outcome := Resolve(current, rec.CurrentPrice, rec.StartingPrice, *bid, rec.BidIncrement)
	bid.Winning = outcome.Winning

	newEnd, extended := MaybeExtend(rec.EndTime, now, settings.AntiSnipingWindow, settings.AntiSnipingExtension)

	// Price, leader and end time move together in one record swap: a reader
	// can never observe a new price with a stale end time.
	updated := *rec
	updated.Status = domain.StatusLive
	updated.CurrentPrice = outcome.DisplayPrice
	updated.HighestBidderID = outcome.Leader.BidderID
	updated.LeaderMaxAmount = outcome.Leader.MaxAmount
	updated.LeaderSince = outcome.Leader.Since
	updated.BidCount++
	updated.EndTime = newEnd
	updated.UpdatedAt = now

	// Accepted and durably recorded are the same transaction boundary: both
	// writes must succeed before the bidder hears "accepted".
	if err := p.ledger.Append(ctx, bid); err != nil {
		p.reject(rejectStorage)
		return domain.Snapshot{}, false, fmt.Errorf("failed to record bid for listing %s: %w", req.ListingID, err)
	}
	if err := p.repo.Update(ctx, &updated); err != nil {
		// The ledger entry is already durable; the record is not. The bid is
		// reported failed and in-memory state does not advance, so a retry
		// re-resolves against the old record. The orphaned ledger row only
		// affects audit history.
		p.reject(rejectStorage)
		p.log.Errorf("bid %s recorded but auction update failed for listing %s: %v", bid.ID, req.ListingID, err)
		return domain.Snapshot{}, false, fmt.Errorf("failed to persist auction state for listing %s: %w", req.ListingID, err)
	}

	st.set(&updated)
	return updated.Snapshot(now), extended, nil
}

type CreateAuctionRequest struct {
	ListingID     string
	SellerID      string
	StartingPrice decimal.Decimal
	BidIncrement  decimal.Decimal
	StartTime     time.Time
	EndTime       time.Time
	// DepositAmount overrides the admin-configured default when set.
	DepositAmount *decimal.Decimal
}

// CreateAuction registers a new auction for a listing entering auction mode.
func (p *Processor) CreateAuction(ctx context.Context, req CreateAuctionRequest) (domain.Snapshot, error) {
	if req.ListingID == "" || req.SellerID == "" {
		return domain.Snapshot{}, fmt.Errorf("listing id and seller id are required: %w", domain.ErrInvalidAuctionData)
	}
	if !req.StartingPrice.IsPositive() || !req.BidIncrement.IsPositive() {
		return domain.Snapshot{}, fmt.Errorf("starting price and bid increment must be positive: %w", domain.ErrInvalidAuctionData)
	}
	if !req.EndTime.After(req.StartTime) {
		return domain.Snapshot{}, fmt.Errorf("end time must be after start time: %w", domain.ErrInvalidAuctionData)
	}

	now := p.now()
	deposit := decimal.Zero
	if req.DepositAmount != nil {
		deposit = *req.DepositAmount
	} else if settings, err := p.settings.AuctionSettings(ctx); err == nil {
		deposit = settings.DefaultDepositAmount
	}

	rec := &domain.Auction{
		ListingID:     req.ListingID,
		SellerID:      req.SellerID,
		StartingPrice: req.StartingPrice,
		BidIncrement:  req.BidIncrement,
		CurrentPrice:  req.StartingPrice,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Status:        domain.StatusScheduled,
		DepositAmount: deposit,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if rec.EffectiveStatus(now) == domain.StatusLive {
		rec.Status = domain.StatusLive
	}

	if err := p.repo.Create(ctx, rec); err != nil {
		return domain.Snapshot{}, err
	}

	st := p.state(req.ListingID)
	st.set(rec)
	p.log.Infof("auction created for listing %s: start %s, end %s, starting price %s",
		req.ListingID, rec.StartTime.Format(time.RFC3339), rec.EndTime.Format(time.RFC3339), rec.StartingPrice.String())
	return rec.Snapshot(now), nil
}

// Close withdraws a scheduled or live auction (owner/admin action). Terminal
// auctions cannot be closed again.
func (p *Processor) Close(ctx context.Context, listingID string) (domain.Snapshot, error) {
	st := p.state(listingID)
	if err := p.acquire(ctx, st); err != nil {
		return domain.Snapshot{}, err
	}

	snap, err := func() (domain.Snapshot, error) {
		defer p.release(st)

		rec, err := p.loadLocked(ctx, st, listingID)
		if err != nil {
			return domain.Snapshot{}, err
		}
		now := p.now()
		if rec.EffectiveStatus(now).Terminal() {
			return domain.Snapshot{}, domain.ErrAuctionNotLive
		}

		updated := *rec
		updated.Status = domain.StatusClosed
		updated.UpdatedAt = now
		if err := p.repo.Update(ctx, &updated); err != nil {
			return domain.Snapshot{}, fmt.Errorf("failed to close auction for listing %s: %w", listingID, err)
		}
		st.set(&updated)
		return updated.Snapshot(now), nil
	}()
	if err != nil {
		return domain.Snapshot{}, err
	}

	p.log.Infof("auction for listing %s closed", listingID)
	p.sink.AuctionEnded(ctx, snap)
	return snap, nil
}

// Snapshot returns a consistent read-only view. In-memory state is
// preferred; auctions not currently tracked (e.g. long ended) are read from
// the repository without being pinned back into memory.
func (p *Processor) Snapshot(ctx context.Context, listingID string) (domain.Snapshot, error) {
	p.mu.Lock()
	st, tracked := p.states[listingID]
	p.mu.Unlock()

	if tracked {
		if rec := st.get(); rec != nil {
			return rec.Snapshot(p.now()), nil
		}
	}
	rec, err := p.repo.FindByListingID(ctx, listingID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return rec.Snapshot(p.now()), nil
}

// History returns the ledger page for a listing, newest first, plus the
// total number of accepted bids.
func (p *Processor) History(ctx context.Context, listingID string, limit, offset int64) ([]*domain.Bid, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	bids, err := p.ledger.ListByListingID(ctx, listingID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := p.ledger.CountByListingID(ctx, listingID)
	if err != nil {
		return nil, 0, err
	}
	return bids, total, nil
}

// Recover loads scheduled and live auctions back into memory after a
// restart. Overdue auctions are finalized by the next sweep.
func (p *Processor) Recover(ctx context.Context) error {
	recs, err := p.repo.FindByStatus(ctx, domain.StatusScheduled, domain.StatusLive)
	if err != nil {
		return fmt.Errorf("failed to recover auctions: %w", err)
	}
	for _, rec := range recs {
		st := p.state(rec.ListingID)
		st.set(rec)
	}
	p.log.Infof("recovered %d auctions into memory", len(recs))
	return nil
}

// Forget drops a listing's auction entirely (listing deleted upstream). The
// ledger is retained for audit.
func (p *Processor) Forget(ctx context.Context, listingID string) error {
	st := p.state(listingID)
	if err := p.acquire(ctx, st); err != nil {
		return err
	}
	defer p.release(st)

	if err := p.repo.Delete(ctx, listingID); err != nil {
		return fmt.Errorf("failed to delete auction for listing %s: %w", listingID, err)
	}
	st.set(nil)
	p.mu.Lock()
	delete(p.states, listingID)
	if p.metrics != nil {
		p.metrics.LiveAuctions.Set(float64(len(p.states)))
	}
	p.mu.Unlock()
	return nil
}

func (p *Processor) state(listingID string) *listingState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.states[listingID]
	if !ok {
		st = &listingState{slot: make(chan struct{}, 1)}
		p.states[listingID] = st
		if p.metrics != nil {
			p.metrics.LiveAuctions.Set(float64(len(p.states)))
		}
	}
	return st
}

// acquire takes the listing's exclusive slot, giving up after the configured
// timeout so a stuck bid cannot wedge callers forever.
func (p *Processor) acquire(ctx context.Context, st *listingState) error {
	select {
	case st.slot <- struct{}{}:
		return nil
	default:
	}
	timer := time.NewTimer(p.cfg.LockTimeout)
	defer timer.Stop()
	select {
	case st.slot <- struct{}{}:
		return nil
	case <-timer.C:
		return domain.ErrConcurrentBidConflict
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Processor) release(st *listingState) {
	<-st.slot
}

// loadLocked returns the in-memory record, fetching it from the repository
// on first touch. Caller must hold the listing slot.
func (p *Processor) loadLocked(ctx context.Context, st *listingState, listingID string) (*domain.Auction, error) {
	if rec := st.get(); rec != nil {
		return rec, nil
	}
	rec, err := p.repo.FindByListingID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	st.set(rec)
	return rec, nil
}

func (p *Processor) reject(reason string) {
	if p.metrics != nil {
		p.metrics.BidsRejectedTotal.WithLabelValues(reason).Inc()
	}
}
