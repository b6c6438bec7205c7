package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/estatemarket/auction-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	settingsCollection = "auction_settings"
	settingsDocID      = "global"

	// settingsCacheTTL bounds the staleness the bid path can observe after
	// an admin change.
	settingsCacheTTL = 5 * time.Second
)

// SettingsRepository stores the admin auction configuration. Reads are
// cached in-process for a few seconds because the processor consults
// settings on every accepted bid; an admin update is picked up on the next
// cache expiry.
type SettingsRepository struct {
	collection *mongo.Collection
	defaults   domain.Settings

	mu        sync.RWMutex
	cached    domain.Settings
	fetchedAt time.Time
}

func NewSettingsRepository(db *mongo.Database, defaults domain.Settings) *SettingsRepository {
	return &SettingsRepository{
		collection: db.Collection(settingsCollection),
		defaults:   defaults,
	}
}

// AuctionSettings implements domain.SettingsSource. Falls back to the
// configured defaults when no admin document exists yet.
func (r *SettingsRepository) AuctionSettings(ctx context.Context) (domain.Settings, error) {
	r.mu.RLock()
	if !r.fetchedAt.IsZero() && time.Since(r.fetchedAt) < settingsCacheTTL {
		s := r.cached
		r.mu.RUnlock()
		return s, nil
	}
	r.mu.RUnlock()

	var doc settingsDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": settingsDocID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.store(r.defaults)
			return r.defaults, nil
		}
		// Serve defaults rather than failing the bid path on a transient
		// read error.
		return r.defaults, fmt.Errorf("failed to read auction settings: %w", err)
	}

	settings, err := r.toDomainSettings(&doc)
	if err != nil {
		return r.defaults, err
	}
	r.store(settings)
	return settings, nil
}

// Update persists the admin configuration and refreshes the cache.
func (r *SettingsRepository) Update(ctx context.Context, settings domain.Settings) error {
	settings.UpdatedAt = time.Now()
	doc := settingsDocument{
		ID:                   settingsDocID,
		AntiSnipingWindowSec: int64(settings.AntiSnipingWindow / time.Second),
		AntiSnipingExtSec:    int64(settings.AntiSnipingExtension / time.Second),
		CommissionRate:       settings.CommissionRate.String(),
		DefaultDepositAmount: settings.DefaultDepositAmount.String(),
		UpdatedAt:            settings.UpdatedAt,
	}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": settingsDocID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update auction settings: %w", err)
	}
	r.store(settings)
	return nil
}

func (r *SettingsRepository) store(s domain.Settings) {
	r.mu.Lock()
	r.cached = s
	r.fetchedAt = time.Now()
	r.mu.Unlock()
}

func (r *SettingsRepository) toDomainSettings(doc *settingsDocument) (domain.Settings, error) {
	rate, err := parseOptionalAmount(doc.CommissionRate, "commission_rate", doc.ID)
	if err != nil {
		return domain.Settings{}, err
	}
	deposit, err := parseOptionalAmount(doc.DefaultDepositAmount, "default_deposit_amount", doc.ID)
	if err != nil {
		return domain.Settings{}, err
	}
	return domain.Settings{
		AntiSnipingWindow:    time.Duration(doc.AntiSnipingWindowSec) * time.Second,
		AntiSnipingExtension: time.Duration(doc.AntiSnipingExtSec) * time.Second,
		CommissionRate:       rate,
		DefaultDepositAmount: deposit,
		UpdatedAt:            doc.UpdatedAt,
	}, nil
}
