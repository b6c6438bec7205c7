package auction

import (
	"context"
	"testing"
	"time"

	"github.com/estatemarket/auction-service/internal/domain"
	"github.com/estatemarket/auction-service/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnap(listingID string) domain.Snapshot {
	return domain.Snapshot{
		ListingID:    listingID,
		Status:       domain.StatusLive,
		CurrentPrice: d("100"),
		ServerTime:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	h := NewHub(logger.NewNop(), nil)
	defer h.Close()

	a := h.Subscribe("l1", "conn-a")
	b := h.Subscribe("l1", "conn-b")
	other := h.Subscribe("l2", "conn-c")

	h.BidAccepted(context.Background(), testSnap("l1"))

	for _, ch := range []<-chan Event{a, b} {
		select {
		case ev := <-ch:
			assert.Equal(t, EventBid, ev.Type)
			assert.Equal(t, "l1", ev.ListingID)
		default:
			t.Fatal("subscriber did not receive the event")
		}
	}
	select {
	case <-other:
		t.Fatal("event leaked into another listing's room")
	default:
	}
}

func TestHub_DuplicateSubscribeIsNoop(t *testing.T) {
	h := NewHub(logger.NewNop(), nil)
	defer h.Close()

	first := h.Subscribe("l1", "conn-a")
	second := h.Subscribe("l1", "conn-a")
	assert.Equal(t, 1, h.SubscriberCount("l1"))

	h.Tick(testSnap("l1"))
	// One delivery, on the shared channel.
	select {
	case <-first:
	default:
		t.Fatal("expected one event")
	}
	select {
	case <-second:
		t.Fatal("duplicate subscribe duplicated delivery")
	default:
	}
}

func TestHub_UnsubscribeIdempotent(t *testing.T) {
	h := NewHub(logger.NewNop(), nil)
	defer h.Close()

	ch := h.Subscribe("l1", "conn-a")
	h.Unsubscribe("l1", "conn-a")
	h.Unsubscribe("l1", "conn-a")
	h.Unsubscribe("l1", "never-subscribed")

	_, open := <-ch
	assert.False(t, open, "channel must be closed on unsubscribe")
	assert.Equal(t, 0, h.SubscriberCount("l1"))
}

func TestHub_LifecycleHooks(t *testing.T) {
	h := NewHub(logger.NewNop(), nil)
	defer h.Close()

	var starts, stops []string
	h.SetLifecycleHooks(
		func(id string) { starts = append(starts, id) },
		func(id string) { stops = append(stops, id) },
	)

	h.Subscribe("l1", "conn-a")
	h.Subscribe("l1", "conn-b")
	require.Equal(t, []string{"l1"}, starts, "only the first subscriber fires the hook")

	h.Unsubscribe("l1", "conn-a")
	assert.Empty(t, stops)
	h.Unsubscribe("l1", "conn-b")
	assert.Equal(t, []string{"l1"}, stops, "only the last unsubscribe fires the hook")

	// Room can be revived.
	h.Subscribe("l1", "conn-c")
	assert.Equal(t, []string{"l1", "l1"}, starts)
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub(logger.NewNop(), nil)
	defer h.Close()

	h.Subscribe("l1", "slow")

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Overflow the buffer; Broadcast must never block even though the
		// subscriber reads nothing.
		for i := 0; i < subscriberBuffer*2; i++ {
			h.Tick(testSnap("l1"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}
}
