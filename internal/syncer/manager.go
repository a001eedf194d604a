// Package syncer drives incremental order synchronization: it walks the POS
// API's newest-first order list, applies each new order through the ETL
// pipeline in its own transaction, and advances the checkpoint.
package syncer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dineflow/ordersync/internal/checkpoint"
	"github.com/dineflow/ordersync/internal/clock"
	"github.com/dineflow/ordersync/internal/config"
	"github.com/dineflow/ordersync/internal/etl"
	"github.com/dineflow/ordersync/internal/events"
	"github.com/dineflow/ordersync/internal/observability/metrics"
	orderdomain "github.com/dineflow/ordersync/internal/order/domain"
	"github.com/dineflow/ordersync/internal/pos"
)

// stopThreshold is how many consecutive already-synced orders end the walk.
// The counter only starts once the checkpointed order itself has been seen,
// so a page of stale duplicates ahead of it cannot end the walk early.
const stopThreshold = 10

type ManagerParams struct {
	fx.In

	DB           *gorm.DB
	Client       *pos.Client
	Orchestrator *etl.Orchestrator
	Tracker      *checkpoint.Tracker
	Publisher    *events.Publisher
	Stats        *StatsStore
	Config       config.Config
	Clock        clock.Clock
	Logger       *zap.Logger
}

// Manager syncs one restaurant at a time.
type Manager struct {
	db           *gorm.DB
	client       *pos.Client
	orchestrator *etl.Orchestrator
	tracker      *checkpoint.Tracker
	publisher    *events.Publisher
	stats        *StatsStore
	cfg          config.Config
	clock        clock.Clock
	log          *zap.Logger
}

func NewManager(p ManagerParams) *Manager {
	return &Manager{
		db:           p.DB,
		client:       p.Client,
		orchestrator: p.Orchestrator,
		tracker:      p.Tracker,
		publisher:    p.Publisher,
		stats:        p.Stats,
		cfg:          p.Config,
		clock:        p.Clock,
		log:          p.Logger.Named("syncer"),
	}
}

// SyncRestaurant logs in with the restaurant's credentials and walks the
// order list from page 1 (newest orders) until the stop condition or the page
// limit. The resulting stats are stored for the status endpoint and returned.
func (m *Manager) SyncRestaurant(ctx context.Context, rc config.RestaurantConfig) (Stats, error) {
	stats := Stats{Restaurant: rc.Name, StartedAt: m.clock.Now()}
	defer func() {
		now := m.clock.Now()
		stats.FinishedAt = &now
		m.stats.Put(stats)
	}()

	var session *pos.Session
	err := retryWithBackoff(ctx, m.cfg.Sync.MaxRetries, m.cfg.Sync.BackoffFactor, func() error {
		var err error
		session, err = m.client.Login(ctx, rc.Email, rc.Password)
		return err
	})
	if err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("login: %v", err))
		return stats, fmt.Errorf("sync %s: login: %w", rc.Name, err)
	}

	restaurantName := session.RestaurantName
	if restaurantName == "" {
		restaurantName = rc.Name
	}

	cp, err := m.tracker.Get(ctx, m.db, session.RestaurantID, restaurantName)
	if err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("checkpoint: %v", err))
		return stats, fmt.Errorf("sync %s: load checkpoint: %w", rc.Name, err)
	}
	if m.cfg.Sync.SkipDuplicateChecks {
		m.log.Warn("duplicate checks disabled, reprocessing every fetched order",
			zap.String("restaurant", restaurantName))
		cp = nil
	}
	if cp != nil {
		m.log.Info("resuming from checkpoint",
			zap.String("restaurant", restaurantName),
			zap.Int64("last_order_id", cp.LastOrderID),
			zap.Time("last_order_date", cp.LastOrderDate),
		)
	}

	m.walk(ctx, session, restaurantName, cp, &stats)

	m.log.Info("sync complete",
		zap.String("restaurant", restaurantName),
		zap.Int("pages", stats.PagesProcessed),
		zap.Int("new_orders", stats.NewOrdersSynced),
		zap.Int("duplicates_skipped", stats.DuplicatesSkipped),
		zap.Int("errors", len(stats.Errors)),
	)
	return stats, nil
}

func (m *Manager) walk(ctx context.Context, session *pos.Session, restaurantName string, cp *orderdomain.SyncCheckpoint, stats *Stats) {
	consecutiveOld := 0
	checkpointSeen := cp == nil

	for pageIndex := 1; ; pageIndex++ {
		if m.cfg.Sync.MaxPages > 0 && pageIndex > m.cfg.Sync.MaxPages {
			m.log.Info("reached page limit", zap.Int("max_pages", m.cfg.Sync.MaxPages))
			return
		}
		if ctx.Err() != nil {
			return
		}

		var summaries []pos.OrderSummary
		err := retryWithBackoff(ctx, m.cfg.Sync.MaxRetries, m.cfg.Sync.BackoffFactor, func() error {
			var err error
			summaries, err = m.client.ListOrders(ctx, session, pageIndex)
			return err
		})
		if err != nil {
			metrics.Sync().IncPageError(restaurantName)
			stats.Errors = append(stats.Errors, fmt.Sprintf("page %d: %v", pageIndex, err))
			m.log.Error("page fetch failed", zap.Int("page", pageIndex), zap.Error(err))
			if sleep(ctx, seconds(m.cfg.Sync.DelayOnError)) != nil {
				return
			}
			continue
		}
		metrics.Sync().IncPageFetched(restaurantName)

		if len(summaries) == 0 {
			m.log.Info("no more orders", zap.Int("page", pageIndex))
			return
		}
		stats.PagesProcessed++

		for _, summary := range summaries {
			if ctx.Err() != nil {
				return
			}
			stats.OrdersSeen++

			if summary.CreationDate.IsZero() {
				m.log.Warn("order has no creation date, skipping", zap.Int64("order_id", summary.ID))
				continue
			}
			orderDate := summary.CreationDate.Time

			if !checkpoint.ShouldProcess(cp, orderDate, summary.ID) {
				stats.DuplicatesSkipped++
				metrics.Sync().IncOrdersSkipped(restaurantName, 1)
				if cp != nil && summary.ID == cp.LastOrderID {
					checkpointSeen = true
				}
				if checkpointSeen {
					consecutiveOld++
					if consecutiveOld >= stopThreshold {
						m.log.Info("stopping after consecutive old orders",
							zap.Int("threshold", stopThreshold))
						return
					}
				}
				continue
			}
			consecutiveOld = 0

			if err := m.processOrder(ctx, session, restaurantName, summary.ID, orderDate, stats); err != nil {
				metrics.Sync().IncOrderError(restaurantName)
				stats.Errors = append(stats.Errors, fmt.Sprintf("order %d: %v", summary.ID, err))
				m.log.Error("order processing failed", zap.Int64("order_id", summary.ID), zap.Error(err))
			}

			if sleep(ctx, seconds(m.cfg.Sync.DelayBetweenOrders)) != nil {
				return
			}
		}

		if sleep(ctx, seconds(m.cfg.Sync.DelayBetweenPages)) != nil {
			return
		}
	}
}

// processOrder fetches the order detail and applies it atomically. The
// checkpoint advances in the same transaction, so a crash can never leave an
// applied order unrecorded.
func (m *Manager) processOrder(ctx context.Context, session *pos.Session, restaurantName string, orderID int64, orderDate time.Time, stats *Stats) error {
	var detail *pos.OrderDetail
	err := retryWithBackoff(ctx, m.cfg.Sync.MaxRetries, m.cfg.Sync.BackoffFactor, func() error {
		var err error
		detail, err = m.client.FetchOrderDetail(ctx, session, orderID)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetch detail: %w", err)
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if m.cfg.Sync.SkipDuplicateChecks {
			// A forced backfill must also rebuild the day's aggregate, which
			// is otherwise skipped for orders already in the ledger.
			if err := m.orchestrator.ResetDailyMetrics(ctx, tx, orderID); err != nil {
				return err
			}
		}
		if err := m.orchestrator.ProcessOrder(ctx, tx, detail); err != nil {
			return err
		}
		return m.tracker.Update(ctx, tx, detail.Restaurant.ID, restaurantName, orderDate, orderID)
	})
	if err != nil {
		return err
	}

	stats.NewOrdersSynced++
	metrics.Sync().IncOrdersSynced(restaurantName, 1)
	if stats.MostRecentOrderDate == nil || orderDate.After(*stats.MostRecentOrderDate) {
		d := orderDate
		stats.MostRecentOrderID = orderID
		stats.MostRecentOrderDate = &d
	}

	m.publisher.Publish(ctx, events.OrderSynced{
		OrderID:        orderID,
		RestaurantID:   detail.Restaurant.ID,
		RestaurantName: restaurantName,
		CustomerID:     detail.Customer.ID,
		Total:          detail.Total,
		CreationDate:   orderDate,
		SyncedAt:       m.clock.Now(),
	})
	return nil
}
