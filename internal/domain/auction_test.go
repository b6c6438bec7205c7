package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func TestEffectiveStatus(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	a := &Auction{StartTime: start, EndTime: end, Status: StatusScheduled}

	assert.Equal(t, StatusScheduled, a.EffectiveStatus(start.Add(-time.Minute)))
	assert.Equal(t, StatusLive, a.EffectiveStatus(start))
	assert.Equal(t, StatusLive, a.EffectiveStatus(end.Add(-time.Nanosecond)))
	assert.Equal(t, StatusEnded, a.EffectiveStatus(end), "the end instant itself is no longer live")

	a.Status = StatusClosed
	assert.Equal(t, StatusClosed, a.EffectiveStatus(start.Add(time.Minute)), "closed is sticky")

	a.Status = StatusEnded
	assert.Equal(t, StatusEnded, a.EffectiveStatus(start.Add(-time.Hour)), "ended is sticky even before start")
}

func TestMinimumBid(t *testing.T) {
	a := &Auction{StartingPrice: dec("100"), BidIncrement: dec("10"), CurrentPrice: dec("100")}

	assert.True(t, a.MinimumBid().Equal(dec("100")), "first bid may match the starting price")

	a.BidCount = 1
	a.CurrentPrice = dec("150")
	assert.True(t, a.MinimumBid().Equal(dec("160")))
}

func TestSnapshotNeverExposesLeaderCeiling(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := &Auction{
		ListingID:       "l1",
		StartingPrice:   dec("100"),
		BidIncrement:    dec("10"),
		CurrentPrice:    dec("110"),
		StartTime:       now.Add(-time.Hour),
		EndTime:         now.Add(time.Hour),
		Status:          StatusLive,
		HighestBidderID: "alice",
		LeaderMaxAmount: dec("500"),
		BidCount:        1,
	}

	snap := a.Snapshot(now)
	assert.Equal(t, "l1", snap.ListingID)
	assert.Equal(t, StatusLive, snap.Status)
	assert.True(t, snap.CurrentPrice.Equal(dec("110")))
	assert.True(t, snap.MinimumBid.Equal(dec("120")))
	assert.Equal(t, now, snap.ServerTime)
}

func TestBidTooLowErrorWrapsSentinel(t *testing.T) {
	err := &BidTooLowError{CurrentPrice: dec("100"), MinimumBid: dec("110")}
	assert.ErrorIs(t, err, ErrBidTooLow)
	assert.Contains(t, err.Error(), "100")
	assert.Contains(t, err.Error(), "110")
}
