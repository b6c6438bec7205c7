package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/estatemarket/auction-service/internal/domain"
	"github.com/estatemarket/auction-service/internal/platform/logger"
	"github.com/nats-io/nats.go"
)

// SubjectListingDeleted is published by the listing service when a listing
// is removed; any auction on it must be discarded.
const SubjectListingDeleted = "listing.deleted"

type listingDeletedPayload struct {
	ID string `json:"id"`
}

// AuctionLifecycle is the part of the engine the listener drives.
type AuctionLifecycle interface {
	Forget(ctx context.Context, listingID string) error
}

// Listener reacts to marketplace events that affect auctions.
type Listener struct {
	nc     *nats.Conn
	engine AuctionLifecycle
	log    logger.Logger
	sub    *nats.Subscription
}

func NewListener(nc *nats.Conn, engine AuctionLifecycle, log logger.Logger) *Listener {
	return &Listener{nc: nc, engine: engine, log: log}
}

func (l *Listener) Start() error {
	sub, err := l.nc.Subscribe(SubjectListingDeleted, func(msg *nats.Msg) {
		var payload listingDeletedPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			l.log.Errorf("failed to decode %s payload: %v", SubjectListingDeleted, err)
			return
		}
		if payload.ID == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := l.engine.Forget(ctx, payload.ID); err != nil && !errors.Is(err, domain.ErrAuctionNotFound) {
			l.log.Errorf("failed to discard auction for deleted listing %s: %v", payload.ID, err)
			return
		}
		l.log.Infof("discarded auction state for deleted listing %s", payload.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", SubjectListingDeleted, err)
	}
	l.sub = sub
	return nil
}

func (l *Listener) Stop() {
	if l.sub != nil {
		if err := l.sub.Unsubscribe(); err != nil {
			l.log.Warnf("failed to unsubscribe from %s: %v", SubjectListingDeleted, err)
		}
	}
}
