package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/estatemarket/auction-service/internal/domain"
	"github.com/estatemarket/auction-service/internal/platform/logger"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("snapshot not in cache")

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// SnapshotCache keeps the latest post-bid snapshot of each auction in Redis
// so the gateway and sibling services can read auction state without calling
// into the engine. It doubles as an event sink: every accepted bid,
// extension and finalization refreshes the cached snapshot. Cache write
// failures are logged and never affect the bid outcome.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration, log logger.Logger) *SnapshotCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SnapshotCache{client: client, ttl: ttl, log: log}
}

func snapshotKey(listingID string) string {
	return "auction:snapshot:" + listingID
}

func (c *SnapshotCache) Get(ctx context.Context, listingID string) (domain.Snapshot, error) {
	raw, err := c.client.Get(ctx, snapshotKey(listingID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Snapshot{}, ErrNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("failed to read snapshot for listing %s: %w", listingID, err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to decode cached snapshot for listing %s: %w", listingID, err)
	}
	return snap, nil
}

func (c *SnapshotCache) put(ctx context.Context, snap domain.Snapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		c.log.Errorf("failed to marshal snapshot for listing %s: %v", snap.ListingID, err)
		return
	}
	if err := c.client.Set(ctx, snapshotKey(snap.ListingID), raw, c.ttl).Err(); err != nil {
		c.log.Warnf("failed to cache snapshot for listing %s: %v", snap.ListingID, err)
	}
}

// BidAccepted implements auction.EventSink.
func (c *SnapshotCache) BidAccepted(ctx context.Context, snap domain.Snapshot) { c.put(ctx, snap) }

// AuctionExtended implements auction.EventSink.
func (c *SnapshotCache) AuctionExtended(ctx context.Context, snap domain.Snapshot) { c.put(ctx, snap) }

// AuctionEnded implements auction.EventSink.
func (c *SnapshotCache) AuctionEnded(ctx context.Context, snap domain.Snapshot) { c.put(ctx, snap) }

func (c *SnapshotCache) Delete(ctx context.Context, listingID string) error {
	if err := c.client.Del(ctx, snapshotKey(listingID)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot for listing %s: %w", listingID, err)
	}
	return nil
}
