// Package checkpoint persists the per-restaurant sync position. The position
// is the (creation date, order id) pair of the newest order fully applied and
// only ever moves forward.
package checkpoint

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dineflow/ordersync/internal/clock"
	"github.com/dineflow/ordersync/internal/order/domain"
)

// Module wires the checkpoint tracker.
var Module = fx.Module("checkpoint",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Clock  clock.Clock
	Logger *zap.Logger
}

// Tracker reads and advances sync checkpoints.
type Tracker struct {
	clock clock.Clock
	log   *zap.Logger
}

func New(p Params) *Tracker {
	return &Tracker{
		clock: p.Clock,
		log:   p.Logger.Named("checkpoint"),
	}
}

// Get returns the restaurant's checkpoint, or nil when no order has been
// synced yet. The tracker row itself is created on first call so later
// updates and the status endpoint always find one.
func (t *Tracker) Get(ctx context.Context, db *gorm.DB, restaurantID int64, restaurantName string) (*domain.SyncCheckpoint, error) {
	var cp domain.SyncCheckpoint
	err := db.WithContext(ctx).First(&cp, "restaurant_id = ?", restaurantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cp = domain.SyncCheckpoint{
			RestaurantID:   restaurantID,
			RestaurantName: restaurantName,
			LastSyncDate:   t.clock.Now(),
		}
		if err := db.WithContext(ctx).Create(&cp).Error; err != nil {
			return nil, err
		}
		t.log.Info("no checkpoint found, starting full sync",
			zap.Int64("restaurant_id", restaurantID),
			zap.String("restaurant", restaurantName),
		)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if cp.LastOrderID == 0 {
		return nil, nil
	}
	return &cp, nil
}

// ShouldProcess reports whether an order lies beyond the checkpoint under the
// lexicographic (creation date, order id) order. A nil checkpoint admits
// everything.
func ShouldProcess(cp *domain.SyncCheckpoint, orderDate time.Time, orderID int64) bool {
	if cp == nil {
		return true
	}
	if orderDate.After(cp.LastOrderDate) {
		return true
	}
	if orderDate.Equal(cp.LastOrderDate) {
		return orderID > cp.LastOrderID
	}
	return false
}

// Update advances the checkpoint to (orderDate, orderID) and counts the order
// as synced. The position never regresses: an update behind the stored pair
// still bumps the counter and sync time but keeps the position.
func (t *Tracker) Update(ctx context.Context, db *gorm.DB, restaurantID int64, restaurantName string, orderDate time.Time, orderID int64) error {
	var cp domain.SyncCheckpoint
	err := db.WithContext(ctx).First(&cp, "restaurant_id = ?", restaurantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cp = domain.SyncCheckpoint{RestaurantID: restaurantID}
	} else if err != nil {
		return err
	}

	cp.RestaurantName = restaurantName
	cp.LastSyncDate = t.clock.Now()
	cp.TotalOrdersSynced++

	if ShouldProcess(storedOrNil(&cp), orderDate, orderID) {
		cp.LastOrderDate = orderDate
		cp.LastOrderID = orderID
	}
	return db.WithContext(ctx).Save(&cp).Error
}

// Reset clears the restaurant's checkpoint so the next cycle performs a full
// sync. The synced counter is kept.
func (t *Tracker) Reset(ctx context.Context, db *gorm.DB, restaurantID int64) error {
	t.log.Warn("resetting checkpoint", zap.Int64("restaurant_id", restaurantID))
	return db.WithContext(ctx).
		Model(&domain.SyncCheckpoint{}).
		Where("restaurant_id = ?", restaurantID).
		Updates(map[string]any{
			"last_order_id":   0,
			"last_order_date": time.Time{},
			"last_sync_date":  t.clock.Now(),
		}).Error
}

func storedOrNil(cp *domain.SyncCheckpoint) *domain.SyncCheckpoint {
	if cp.LastOrderID == 0 {
		return nil
	}
	return cp
}
