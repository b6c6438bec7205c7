package mongodb

import (
	"testing"
	"time"

	"github.com/estatemarket/auction-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func TestAuctionDocumentConversion(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	src := &domain.Auction{
		ListingID:       "l1",
		SellerID:        "seller-1",
		StartingPrice:   dec("100.50"),
		BidIncrement:    dec("10"),
		CurrentPrice:    dec("150.75"),
		StartTime:       now,
		EndTime:         now.Add(time.Hour),
		Status:          domain.StatusLive,
		HighestBidderID: "alice",
		LeaderMaxAmount: dec("500.25"),
		LeaderSince:     now.Add(time.Minute),
		BidCount:        3,
		DepositAmount:   dec("1000"),
		CreatedAt:       now,
		UpdatedAt:       now.Add(time.Minute),
	}

	doc := toAuctionDocument(src)
	assert.Equal(t, "150.75", doc.CurrentPrice, "amounts are stored as exact strings")
	assert.Equal(t, "500.25", doc.LeaderMaxAmount)

	got, err := toDomainAuction(doc)
	require.NoError(t, err)
	assert.Equal(t, src.ListingID, got.ListingID)
	assert.True(t, got.CurrentPrice.Equal(src.CurrentPrice))
	assert.True(t, got.LeaderMaxAmount.Equal(src.LeaderMaxAmount))
	assert.Equal(t, src.Status, got.Status)
	assert.Equal(t, src.BidCount, got.BidCount)
	assert.Equal(t, src.EndTime, got.EndTime)
}

func TestAuctionDocumentZeroOptionalsStayEmpty(t *testing.T) {
	src := &domain.Auction{
		ListingID:     "l1",
		SellerID:      "seller-1",
		StartingPrice: dec("100"),
		BidIncrement:  dec("10"),
		CurrentPrice:  dec("100"),
		Status:        domain.StatusScheduled,
	}

	doc := toAuctionDocument(src)
	assert.Empty(t, doc.LeaderMaxAmount)
	assert.Empty(t, doc.CommissionAmount)
	assert.Empty(t, doc.DepositAmount)

	got, err := toDomainAuction(doc)
	require.NoError(t, err)
	assert.True(t, got.LeaderMaxAmount.IsZero())
	assert.True(t, got.CommissionAmount.IsZero())
}

func TestAuctionDocumentRejectsCorruptAmount(t *testing.T) {
	doc := &auctionDocument{
		ListingID:     "l1",
		StartingPrice: "not-a-number",
		BidIncrement:  "10",
		CurrentPrice:  "100",
	}
	_, err := toDomainAuction(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting_price")
}

func TestBidDocumentConversion(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	src := &domain.Bid{
		ID:        "bid-1",
		ListingID: "l1",
		BidderID:  "alice",
		Amount:    dec("120"),
		MaxAmount: dec("500"),
		Winning:   true,
		CreatedAt: now,
	}

	got, err := toDomainBid(toBidDocument(src))
	require.NoError(t, err)
	assert.Equal(t, src.ID, got.ID)
	assert.True(t, got.Amount.Equal(src.Amount))
	assert.True(t, got.MaxAmount.Equal(src.MaxAmount))
	assert.True(t, got.Winning)
}
