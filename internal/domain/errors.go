package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrAuctionNotFound = errors.New("auction not found")
	// ErrAuctionNotLive is returned for bids against a scheduled, ended or
	// closed auction.
	ErrAuctionNotLive = errors.New("auction is not accepting bids")
	// ErrInvalidBidAmount covers non-positive amounts and maxAmount < amount.
	ErrInvalidBidAmount = errors.New("invalid bid amount")
	// ErrBidTooLow is the sentinel wrapped by BidTooLowError.
	ErrBidTooLow = errors.New("bid below required minimum")
	// ErrConcurrentBidConflict means the per-listing slot could not be
	// acquired in time; the caller should retry.
	ErrConcurrentBidConflict = errors.New("another bid for this listing is in flight, retry")
	ErrAuctionAlreadyExists  = errors.New("auction already exists for listing")
	ErrInvalidAuctionData    = errors.New("invalid auction data")
)

// BidTooLowError tells the bidder exactly how much the next bid must be so
// the client can retry immediately with a corrected amount.
type BidTooLowError struct {
	CurrentPrice decimal.Decimal
	MinimumBid   decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid below required minimum: current price %s, minimum next bid %s",
		e.CurrentPrice.String(), e.MinimumBid.String())
}

func (e *BidTooLowError) Unwrap() error { return ErrBidTooLow }
