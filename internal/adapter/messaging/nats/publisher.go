package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/estatemarket/auction-service/internal/domain"
	"github.com/estatemarket/auction-service/internal/platform/logger"
	"github.com/nats-io/nats.go"
)

// Integration subjects consumed by the rest of the marketplace
// (notifications, reporting, the listing service).
const (
	SubjectBidAccepted     = "auction.bid_accepted"
	SubjectAuctionExtended = "auction.extended"
	SubjectAuctionEnded    = "auction.ended"
)

type Config struct {
	URL            string
	ConnectTimeout time.Duration
}

type Publisher struct {
	nc  *nats.Conn
	log logger.Logger
}

func NewPublisher(cfg Config, log logger.Logger) (*Publisher, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	opts := []nats.Option{
		nats.Timeout(cfg.ConnectTimeout),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			if sub != nil {
				log.Errorf("NATS error on subject %s: %v", sub.Subject, err)
				return
			}
			log.Errorf("NATS error: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warnf("NATS disconnected: %v", err)
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Infof("Successfully connected to NATS at %s", nc.ConnectedUrl())
	return &Publisher{nc: nc, log: log}, nil
}

// Conn exposes the underlying connection for the listener.
func (p *Publisher) Conn() *nats.Conn { return p.nc }

func (p *Publisher) publish(subject string, snap domain.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		p.log.Errorf("failed to marshal snapshot for subject %s, listing %s: %v", subject, snap.ListingID, err)
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		// Integration delivery is best-effort; the bid outcome is already
		// durable.
		p.log.Errorf("failed to publish to %s for listing %s: %v", subject, snap.ListingID, err)
		return
	}
	p.log.Debugf("published %s for listing %s", subject, snap.ListingID)
}

// BidAccepted implements auction.EventSink.
func (p *Publisher) BidAccepted(_ context.Context, snap domain.Snapshot) {
	p.publish(SubjectBidAccepted, snap)
}

// AuctionExtended implements auction.EventSink.
func (p *Publisher) AuctionExtended(_ context.Context, snap domain.Snapshot) {
	p.publish(SubjectAuctionExtended, snap)
}

// AuctionEnded implements auction.EventSink.
func (p *Publisher) AuctionEnded(_ context.Context, snap domain.Snapshot) {
	p.publish(SubjectAuctionEnded, snap)
}

func (p *Publisher) Close() {
	if p.nc != nil && !p.nc.IsClosed() {
		if err := p.nc.Drain(); err != nil {
			p.log.Errorf("error draining NATS connection: %v", err)
		}
	}
}
