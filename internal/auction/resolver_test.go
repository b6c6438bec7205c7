package auction

import (
	"testing"
	"time"

	"github.com/estatemarket/auction-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func bid(bidder, max string, at time.Time) domain.Bid {
	return domain.Bid{BidderID: bidder, Amount: d(max), MaxAmount: d(max), CreatedAt: at}
}

func TestResolve_FirstBid(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("ceiling above starting price is not exposed", func(t *testing.T) {
		out := Resolve(LeaderState{}, d("100"), d("100"), bid("alice", "500", t0), d("10"))
		assert.Equal(t, "alice", out.Leader.BidderID)
		assert.True(t, out.DisplayPrice.Equal(d("110")), "price should be starting price plus one increment, got %s", out.DisplayPrice)
		assert.True(t, out.LeaderChanged)
		assert.True(t, out.Winning)
	})

	t.Run("bid exactly at starting price", func(t *testing.T) {
		out := Resolve(LeaderState{}, d("100"), d("100"), bid("alice", "100", t0), d("10"))
		assert.True(t, out.DisplayPrice.Equal(d("100")))
		assert.Equal(t, "alice", out.Leader.BidderID)
	})
}

func TestResolve_ChallengerOutbidsLeader(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	leader := LeaderState{BidderID: "alice", MaxAmount: d("500"), Since: t0}

	out := Resolve(leader, d("110"), d("100"), bid("bob", "700", t0.Add(time.Minute)), d("10"))
	assert.Equal(t, "bob", out.Leader.BidderID)
	assert.True(t, out.Leader.MaxAmount.Equal(d("700")))
	assert.True(t, out.DisplayPrice.Equal(d("510")), "price should be old ceiling plus increment, got %s", out.DisplayPrice)
	assert.True(t, out.LeaderChanged)
	assert.True(t, out.Winning)
}

func TestResolve_ChallengerCeilingWithinIncrementOfLeader(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	leader := LeaderState{BidderID: "alice", MaxAmount: d("500"), Since: t0}

	// Bob's ceiling beats Alice's by less than one increment: price caps at
	// Bob's ceiling instead of overshooting it.
	out := Resolve(leader, d("110"), d("100"), bid("bob", "505", t0.Add(time.Minute)), d("10"))
	assert.Equal(t, "bob", out.Leader.BidderID)
	assert.True(t, out.DisplayPrice.Equal(d("505")))
}

func TestResolve_LosingBidPushesPriceUp(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	leader := LeaderState{BidderID: "alice", MaxAmount: d("500"), Since: t0}

	out := Resolve(leader, d("110"), d("100"), bid("bob", "300", t0.Add(time.Minute)), d("10"))
	assert.Equal(t, "alice", out.Leader.BidderID, "losing bid must not take the lead")
	assert.True(t, out.DisplayPrice.Equal(d("310")), "proxy should bid the leader one increment past the challenger, got %s", out.DisplayPrice)
	assert.False(t, out.LeaderChanged)
	assert.False(t, out.Winning)
}

func TestResolve_LosingBidNearLeaderCeiling(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	leader := LeaderState{BidderID: "alice", MaxAmount: d("500"), Since: t0}

	// Challenger ceiling within one increment of the leader's: price caps at
	// the leader's ceiling.
	out := Resolve(leader, d("110"), d("100"), bid("bob", "495", t0.Add(time.Minute)), d("10"))
	assert.Equal(t, "alice", out.Leader.BidderID)
	assert.True(t, out.DisplayPrice.Equal(d("500")))
}

func TestResolve_EqualCeilingsEarlierWins(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	leader := LeaderState{BidderID: "alice", MaxAmount: d("500"), Since: t0}

	out := Resolve(leader, d("110"), d("100"), bid("bob", "500", t0.Add(time.Minute)), d("10"))
	assert.Equal(t, "alice", out.Leader.BidderID, "on a ceiling tie the earlier bid keeps the lead")
	assert.Equal(t, t0, out.Leader.Since)
	assert.True(t, out.DisplayPrice.Equal(d("500")), "tie exposes the full ceiling")
	assert.False(t, out.Winning)
}

func TestResolve_LeaderRaisesOwnCeiling(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	leader := LeaderState{BidderID: "alice", MaxAmount: d("500"), Since: t0}

	out := Resolve(leader, d("110"), d("100"), bid("alice", "900", t0.Add(time.Minute)), d("10"))
	assert.Equal(t, "alice", out.Leader.BidderID)
	assert.True(t, out.Leader.MaxAmount.Equal(d("900")))
	assert.Equal(t, t0, out.Leader.Since, "raising your own ceiling keeps the original priority timestamp")
	assert.True(t, out.DisplayPrice.Equal(d("110")), "no competing ceiling moved, so the public price stays")
	assert.False(t, out.LeaderChanged)
	assert.True(t, out.Winning)
}

func TestResolve_PriceNeverDecreases(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	leader := LeaderState{BidderID: "alice", MaxAmount: d("500"), Since: t0}

	// Current price already above what the formula would produce (e.g. after
	// an admin correction). The display price must not move backwards.
	out := Resolve(leader, d("400"), d("100"), bid("bob", "310", t0.Add(time.Minute)), d("10"))
	assert.True(t, out.DisplayPrice.Equal(d("400")))
}

func TestResolve_SequenceMatchesProxyAuction(t *testing.T) {
	// Full walkthrough: starting price 100, increment 10.
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	price := d("100")
	leader := LeaderState{}

	step := func(bidder, max string, offset time.Duration) Outcome {
		out := Resolve(leader, price, d("100"), bid(bidder, max, t0.Add(offset)), d("10"))
		leader = out.Leader
		price = out.DisplayPrice
		return out
	}

	// Alice opens with ceiling 200: price shows 110.
	out := step("alice", "200", 0)
	assert.Equal(t, "alice", out.Leader.BidderID)
	assert.True(t, price.Equal(d("110")))

	// Bob probes with 150 and loses: price climbs to 160.
	out = step("bob", "150", time.Minute)
	assert.Equal(t, "alice", out.Leader.BidderID)
	assert.True(t, price.Equal(d("160")))

	// Bob comes back with 400 and takes the lead at 210.
	out = step("bob", "400", 2*time.Minute)
	assert.Equal(t, "bob", out.Leader.BidderID)
	assert.True(t, price.Equal(d("210")))

	// Carol ties Bob's 400: Bob keeps the lead, price exposes 400.
	out = step("carol", "400", 3*time.Minute)
	assert.Equal(t, "bob", out.Leader.BidderID)
	assert.True(t, price.Equal(d("400")))
}
