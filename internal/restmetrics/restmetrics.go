// Package restmetrics recomputes the per-restaurant daily KPI fact. The whole
// day is rebuilt from the operational orders whenever new orders arrive, so
// the row is always internally consistent.
package restmetrics

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dineflow/ordersync/internal/datetimegrid"
	"github.com/dineflow/ordersync/internal/dimension"
	"github.com/dineflow/ordersync/internal/fact"
	orderdomain "github.com/dineflow/ordersync/internal/order/domain"
	"github.com/dineflow/ordersync/internal/warehouse/domain"
)

// Hour buckets for the before/peak/after split of the trading day. Each is
// half-open on the right.
const (
	beforePeakStartHour = 6
	beforePeakEndHour   = 17
	peakStartHour       = 18
	peakEndHour         = 20
	afterPeakStartHour  = 21
	afterPeakEndHour    = 23
)

// Module wires the daily restaurant aggregator.
var Module = fx.Module("restmetrics",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Orders    orderdomain.Repository
	Warehouse domain.Repository
	Grid      *datetimegrid.Grid
	Ledger    *fact.Ledger
	Logger    *zap.Logger
}

// Aggregator maintains fact_restaurant_metrics.
type Aggregator struct {
	orders    orderdomain.Repository
	warehouse domain.Repository
	grid      *datetimegrid.Grid
	ledger    *fact.Ledger
	log       *zap.Logger
}

func New(p Params) *Aggregator {
	return &Aggregator{
		orders:    p.Orders,
		warehouse: p.Warehouse,
		grid:      p.Grid,
		ledger:    p.Ledger,
		log:       p.Logger.Named("restmetrics"),
	}
}

// UpdateDaily rebuilds the restaurant's KPI row for the day containing at.
// Orders already marked in the ledger do not retrigger a rebuild; when at
// least one unmarked order exists the full day is recomputed and every order
// of the day is marked.
func (a *Aggregator) UpdateDaily(ctx context.Context, db *gorm.DB, restaurantID, restaurantKey int64, at time.Time) error {
	at = at.UTC()
	dayStart := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)

	orders, err := a.orders.OrdersForDay(ctx, db, restaurantID, dayStart)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	pending, err := a.ledger.Unprocessed(ctx, db, ids, domain.FactTypeRestaurantMetrics)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	dateTimeKey, err := a.grid.Key(ctx, db, dayStart)
	if err != nil {
		return err
	}

	row, err := a.compute(ctx, db, orders)
	if err != nil {
		return err
	}
	row.RestaurantKey = restaurantKey
	row.DateTimeKey = dateTimeKey

	existing, err := a.warehouse.FindRestaurantMetricsFact(ctx, db, restaurantKey, dateTimeKey)
	if err != nil {
		return err
	}
	if existing != nil {
		row.MetricKey = existing.MetricKey
		if err := a.warehouse.SaveRestaurantMetricsFact(ctx, db, row); err != nil {
			return err
		}
	} else if err := a.warehouse.CreateRestaurantMetricsFact(ctx, db, row); err != nil {
		return err
	}

	a.log.Debug("rebuilt restaurant daily metrics",
		zap.Int64("restaurant_id", restaurantID),
		zap.Time("day", dayStart),
		zap.Int("orders", len(orders)),
		zap.Int("new_orders", len(pending)),
	)
	return a.ledger.Mark(ctx, db, pending, domain.FactTypeRestaurantMetrics)
}

func (a *Aggregator) compute(ctx context.Context, db *gorm.DB, orders []orderdomain.Order) (*domain.FactRestaurantMetrics, error) {
	row := &domain.FactRestaurantMetrics{}
	byHour := make(map[int]int)

	for _, o := range orders {
		row.TotalOrders++
		row.TotalRevenue += o.Total

		hour := o.CreationDate.UTC().Hour()
		byHour[hour]++
		switch {
		case hour >= beforePeakStartHour && hour < beforePeakEndHour:
			row.BeforePeakOrders++
		case hour >= peakStartHour && hour < peakEndHour:
			row.PeakOrders++
		case hour >= afterPeakStartHour && hour < afterPeakEndHour:
			row.AfterPeakOrders++
		}

		switch o.DeliveryType {
		case orderdomain.DeliveryTypeDelivery:
			row.DeliveryOrders++
		case orderdomain.DeliveryTypePickup:
			row.PickupOrders++
		}

		if o.PromotionID != nil {
			row.OrdersWithPromotion++
		}
		row.TotalDiscountAmount += o.Discount

		payments, err := a.orders.FindPaymentsByOrder(ctx, db, o.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range payments {
			switch p.PaymentMethodType {
			case dimension.PaymentTypeCash:
				row.CashPayments++
			case dimension.PaymentTypeCard:
				row.CardPayments++
			case dimension.PaymentTypeDigital:
				row.DigitalPayments++
			}
		}
	}

	if row.TotalOrders > 0 {
		row.AvgOrderValue = row.TotalRevenue / float64(row.TotalOrders)
	}
	if peak, n := busiestHour(byHour); n > 0 {
		row.PeakHour = &peak
		row.PeakHourOrders = n
	}
	return row, nil
}

// busiestHour returns the hour with the most orders, preferring the earlier
// hour on ties so the result is deterministic.
func busiestHour(byHour map[int]int) (hour, count int) {
	hour, count = -1, 0
	for h := 0; h < 24; h++ {
		if byHour[h] > count {
			hour, count = h, byHour[h]
		}
	}
	return hour, count
}
