package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/estatemarket/auction-service/internal/auction"
	"github.com/estatemarket/auction-service/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

const (
	actionSubscribe   = "auction:subscribe"
	actionUnsubscribe = "auction:unsubscribe"
)

type wsCommand struct {
	Action    string `json:"action"`
	ListingID string `json:"listingId"`
}

type wsError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// WSHandler bridges websocket connections onto the event hub. Each
// connection may watch any number of listings; all events for that
// connection are funneled through a single writer goroutine.
type WSHandler struct {
	hub      *auction.Hub
	log      logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *auction.Hub, log logger.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	c := &wsConn{
		handler: h,
		conn:    conn,
		id:      uuid.NewString(),
		out:     make(chan auction.Event, 128),
		done:    make(chan struct{}),
		watched: make(map[string]chan struct{}),
	}
	go c.writeLoop()
	c.readLoop()
}

type wsConn struct {
	handler *WSHandler
	conn    *websocket.Conn
	id      string
	out     chan auction.Event
	done    chan struct{}

	mu      sync.Mutex
	watched map[string]chan struct{}
}

func (c *wsConn) readLoop() {
	defer c.teardown()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.handler.log.Debugf("websocket %s closed: %v", c.id, err)
			}
			return
		}

		var cmd wsCommand
		if err := json.Unmarshal(data, &cmd); err != nil || cmd.ListingID == "" {
			c.sendError("malformed command")
			continue
		}

		switch cmd.Action {
		case actionSubscribe:
			c.subscribe(cmd.ListingID)
		case actionUnsubscribe:
			c.unsubscribe(cmd.ListingID)
		default:
			c.sendError("unknown action " + cmd.Action)
		}
	}
}

// subscribe attaches this connection to a listing room and starts a pump
// that forwards the room's events into the shared out channel. Repeated
// subscribes to the same listing are no-ops.
func (c *wsConn) subscribe(listingID string) {
	c.mu.Lock()
	if _, ok := c.watched[listingID]; ok {
		c.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	c.watched[listingID] = stop
	c.mu.Unlock()

	events := c.handler.hub.Subscribe(listingID, c.id)
	go func() {
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case c.out <- ev:
				case <-c.done:
					return
				}
			case <-stop:
				return
			case <-c.done:
				return
			}
		}
	}()
}

func (c *wsConn) unsubscribe(listingID string) {
	c.mu.Lock()
	stop, ok := c.watched[listingID]
	if ok {
		delete(c.watched, listingID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	close(stop)
	c.handler.hub.Unsubscribe(listingID, c.id)
}

func (c *wsConn) teardown() {
	close(c.done)

	c.mu.Lock()
	watched := make([]string, 0, len(c.watched))
	for listingID, stop := range c.watched {
		watched = append(watched, listingID)
		close(stop)
	}
	c.watched = map[string]chan struct{}{}
	c.mu.Unlock()

	for _, listingID := range watched {
		c.handler.hub.Unsubscribe(listingID, c.id)
	}
	_ = c.conn.Close()
}

func (c *wsConn) writeLoop() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *wsConn) sendError(message string) {
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	_ = c.conn.WriteJSON(wsError{Type: "error", Message: message})
}
