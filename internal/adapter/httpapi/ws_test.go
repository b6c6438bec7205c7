package httpapi

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/estatemarket/auction-service/internal/auction"
	"github.com/estatemarket/auction-service/internal/domain"
	"github.com/estatemarket/auction-service/internal/platform/logger"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/auctions"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) auction.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev auction.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestWS_SubscribeReceivesBroadcast(t *testing.T) {
	log := logger.NewNop()
	hub := auction.NewHub(log, nil)
	defer hub.Close()
	h := NewHandler(&fakeEngine{}, &fakeSettings{}, log)
	srv := httptest.NewServer(NewRouter(h, NewWSHandler(hub, log), testSecret, log))
	defer srv.Close()

	conn := dialWS(t, srv)
	require.NoError(t, conn.WriteJSON(wsCommand{Action: actionSubscribe, ListingID: "l1"}))

	// Wait for the room to register before broadcasting.
	require.Eventually(t, func() bool { return hub.SubscriberCount("l1") == 1 },
		2*time.Second, 10*time.Millisecond)

	snap := domain.Snapshot{ListingID: "l1", Status: domain.StatusLive, CurrentPrice: dec("150")}
	hub.BidAccepted(context.Background(), snap)

	ev := readEvent(t, conn)
	assert.Equal(t, auction.EventBid, ev.Type)
	assert.Equal(t, "l1", ev.ListingID)
	assert.True(t, ev.CurrentPrice.Equal(dec("150")))
}

func TestWS_UnsubscribeStopsDelivery(t *testing.T) {
	log := logger.NewNop()
	hub := auction.NewHub(log, nil)
	defer hub.Close()
	h := NewHandler(&fakeEngine{}, &fakeSettings{}, log)
	srv := httptest.NewServer(NewRouter(h, NewWSHandler(hub, log), testSecret, log))
	defer srv.Close()

	conn := dialWS(t, srv)
	require.NoError(t, conn.WriteJSON(wsCommand{Action: actionSubscribe, ListingID: "l1"}))
	require.Eventually(t, func() bool { return hub.SubscriberCount("l1") == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(wsCommand{Action: actionUnsubscribe, ListingID: "l1"}))
	require.Eventually(t, func() bool { return hub.SubscriberCount("l1") == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestWS_DisconnectCleansUpSubscriptions(t *testing.T) {
	log := logger.NewNop()
	hub := auction.NewHub(log, nil)
	defer hub.Close()
	h := NewHandler(&fakeEngine{}, &fakeSettings{}, log)
	srv := httptest.NewServer(NewRouter(h, NewWSHandler(hub, log), testSecret, log))
	defer srv.Close()

	conn := dialWS(t, srv)
	require.NoError(t, conn.WriteJSON(wsCommand{Action: actionSubscribe, ListingID: "l1"}))
	require.NoError(t, conn.WriteJSON(wsCommand{Action: actionSubscribe, ListingID: "l2"}))
	require.Eventually(t, func() bool {
		return hub.SubscriberCount("l1") == 1 && hub.SubscriberCount("l2") == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool {
		return hub.SubscriberCount("l1") == 0 && hub.SubscriberCount("l2") == 0
	}, 2*time.Second, 10*time.Millisecond)
}
