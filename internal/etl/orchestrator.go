// Package etl runs the per-order pipeline: land the operational records,
// resolve dimensions, and write the fact rows. The caller supplies the
// transaction; one order is all-or-nothing.
package etl

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dineflow/ordersync/internal/datetimegrid"
	"github.com/dineflow/ordersync/internal/dimension"
	"github.com/dineflow/ordersync/internal/fact"
	orderdomain "github.com/dineflow/ordersync/internal/order/domain"
	"github.com/dineflow/ordersync/internal/pos"
	"github.com/dineflow/ordersync/internal/restmetrics"
	"github.com/dineflow/ordersync/internal/warehouse/domain"
)

// Module wires the ETL orchestrator.
var Module = fx.Module("etl",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Orders     orderdomain.Repository
	Grid       *datetimegrid.Grid
	Dimensions *dimension.Resolver
	Facts      *fact.Writer
	Ledger     *fact.Ledger
	Metrics    *restmetrics.Aggregator
	Logger     *zap.Logger
}

// Orchestrator applies one fetched order to the operational store and the
// warehouse.
type Orchestrator struct {
	orders     orderdomain.Repository
	grid       *datetimegrid.Grid
	dimensions *dimension.Resolver
	facts      *fact.Writer
	ledger     *fact.Ledger
	metrics    *restmetrics.Aggregator
	log        *zap.Logger
}

func New(p Params) *Orchestrator {
	return &Orchestrator{
		orders:     p.Orders,
		grid:       p.Grid,
		dimensions: p.Dimensions,
		facts:      p.Facts,
		ledger:     p.Ledger,
		metrics:    p.Metrics,
		log:        p.Logger.Named("etl"),
	}
}

// ProcessOrder runs the full pipeline for one order inside tx. Replaying an
// already-applied order is harmless: operational rows are merged, fact writes
// are idempotent, and aggregates are overwritten in place.
func (o *Orchestrator) ProcessOrder(ctx context.Context, tx *gorm.DB, detail *pos.OrderDetail) error {
	if detail.CreationDate.IsZero() {
		return fmt.Errorf("order %d: %w", detail.ID, orderdomain.ErrMissingCreation)
	}

	order, err := o.landOperational(ctx, tx, detail)
	if err != nil {
		return err
	}

	dateTimeKey, err := o.grid.Key(ctx, tx, order.CreationDate)
	if err != nil {
		return fmt.Errorf("order %d: resolve datetime key: %w", order.ID, err)
	}

	restaurantDim, err := o.dimensions.Restaurant(ctx, tx, detail.RestaurantModel())
	if err != nil {
		return fmt.Errorf("order %d: resolve restaurant dimension: %w", order.ID, err)
	}

	customerDim, err := o.dimensions.Customer(ctx, tx, detail.CustomerModel(), restaurantDim.RestaurantKey)
	if err != nil {
		return fmt.Errorf("order %d: resolve customer dimension: %w", order.ID, err)
	}

	var promotionKey *int64
	if promo := detail.PromotionModel(); promo != nil {
		promoDim, err := o.dimensions.Promotion(ctx, tx, promo, restaurantDim.RestaurantKey)
		if err != nil {
			return fmt.Errorf("order %d: resolve promotion dimension: %w", order.ID, err)
		}
		promotionKey = &promoDim.PromotionKey
	}

	orderKey, err := o.writeOrderFact(ctx, tx, order, dateTimeKey, customerDim.CustomerKey, restaurantDim.RestaurantKey, promotionKey)
	if err != nil {
		return err
	}

	if err := o.writePaymentFacts(ctx, tx, detail, orderKey, dateTimeKey, restaurantDim.RestaurantKey); err != nil {
		return err
	}

	if err := o.writeCustomerMetrics(ctx, tx, order, customerDim.CustomerKey, restaurantDim.RestaurantKey, dateTimeKey); err != nil {
		return err
	}

	if err := o.metrics.UpdateDaily(ctx, tx, order.RestaurantID, restaurantDim.RestaurantKey, order.CreationDate); err != nil {
		return fmt.Errorf("order %d: update restaurant metrics: %w", order.ID, err)
	}

	o.log.Info("order processed",
		zap.Int64("order_id", order.ID),
		zap.Int64("restaurant_id", order.RestaurantID),
		zap.Time("creation_date", order.CreationDate),
	)
	return nil
}

// ResetDailyMetrics clears the order's restaurant-metrics ledger entry so the
// next ProcessOrder call rebuilds the day's aggregate even though the order
// was applied before. Used by forced backfills.
func (o *Orchestrator) ResetDailyMetrics(ctx context.Context, tx *gorm.DB, orderID int64) error {
	return o.ledger.Reset(ctx, tx, []int64{orderID}, domain.FactTypeRestaurantMetrics)
}

// landOperational merges the order payload's entities into the operational
// tables in dependency order.
func (o *Orchestrator) landOperational(ctx context.Context, tx *gorm.DB, detail *pos.OrderDetail) (*orderdomain.Order, error) {
	if err := o.orders.UpsertRestaurant(ctx, tx, detail.RestaurantModel()); err != nil {
		return nil, fmt.Errorf("order %d: sync restaurant: %w", detail.ID, err)
	}
	if err := o.orders.UpsertCustomer(ctx, tx, detail.CustomerModel()); err != nil {
		return nil, fmt.Errorf("order %d: sync customer: %w", detail.ID, err)
	}
	if promo := detail.PromotionModel(); promo != nil {
		if err := o.orders.UpsertPromotion(ctx, tx, promo); err != nil {
			return nil, fmt.Errorf("order %d: sync promotion: %w", detail.ID, err)
		}
	}
	if detail.OrderMethod == orderdomain.OrderMethodDelivery {
		if addr := detail.AddressModel(); addr != nil {
			if err := o.orders.UpsertCustomerAddress(ctx, tx, addr); err != nil {
				return nil, fmt.Errorf("order %d: sync address: %w", detail.ID, err)
			}
		}
	}

	order := detail.OrderModel()
	if err := o.orders.UpsertOrder(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("order %d: sync order: %w", detail.ID, err)
	}
	for _, p := range detail.PaymentModels() {
		payment := p
		if err := o.orders.UpsertPayment(ctx, tx, &payment); err != nil {
			return nil, fmt.Errorf("order %d: sync payment %d: %w", detail.ID, p.ID, err)
		}
	}
	return order, nil
}

func (o *Orchestrator) writeOrderFact(ctx context.Context, tx *gorm.DB, order *orderdomain.Order, dateTimeKey, customerKey, restaurantKey int64, promotionKey *int64) (int64, error) {
	row := &domain.FactOrder{
		OrderID:            order.ID,
		DateTimeKey:        dateTimeKey,
		CustomerKey:        customerKey,
		RestaurantKey:      restaurantKey,
		PromotionKey:       promotionKey,
		OrderStatus:        order.Status,
		DeliveryType:       order.DeliveryType,
		OrderMethod:        order.OrderMethod,
		SubTotal:           order.SubTotal,
		DeliveryFee:        order.DeliveryFee,
		ServiceCharge:      order.ServiceCharge,
		TotalDiscount:      order.Discount,
		Total:              order.Total,
		UsedPoints:         order.UsedPoints,
		IsPromotionApplied: promotionKey != nil,
	}
	orderKey, created, err := o.facts.OrderFact(ctx, tx, row)
	if err != nil {
		return 0, fmt.Errorf("order %d: write order fact: %w", order.ID, err)
	}
	if created {
		if err := o.ledger.Mark(ctx, tx, []int64{order.ID}, domain.FactTypeOrders); err != nil {
			return 0, fmt.Errorf("order %d: mark order fact processed: %w", order.ID, err)
		}
	}
	return orderKey, nil
}

func (o *Orchestrator) writePaymentFacts(ctx context.Context, tx *gorm.DB, detail *pos.OrderDetail, orderKey, dateTimeKey, restaurantKey int64) error {
	payments := detail.PaymentModels()
	for _, p := range payments {
		payment := p
		methodDim, err := o.dimensions.PaymentMethod(ctx, tx, &payment)
		if err != nil {
			return fmt.Errorf("order %d: resolve payment method: %w", detail.ID, err)
		}

		row := &domain.FactPayment{
			PaymentID:        payment.ID,
			OrderKey:         orderKey,
			DateTimeKey:      dateTimeKey,
			PaymentMethodKey: methodDim.PaymentMethodKey,
			RestaurantKey:    restaurantKey,
			SubTotal:         payment.SubTotal,
			ExtraCharge:      payment.ExtraCharge,
			Discount:         payment.Discount,
			Tax:              payment.Tax,
			Tip:              payment.Tip,
			TotalAmount:      payment.Amount,
			PaymentStatus:    payment.Status,
		}
		if _, _, err := o.facts.PaymentFact(ctx, tx, row); err != nil {
			return fmt.Errorf("order %d: write payment fact %d: %w", detail.ID, payment.ID, err)
		}
	}

	if err := o.ledger.Mark(ctx, tx, []int64{detail.ID}, domain.FactTypePayments); err != nil {
		return fmt.Errorf("order %d: mark payment facts processed: %w", detail.ID, err)
	}
	return nil
}

// writeCustomerMetrics snapshots the customer's activity as of this order.
// Daily figures cover the order's calendar day; running figures cover the
// whole history landed so far.
func (o *Orchestrator) writeCustomerMetrics(ctx context.Context, tx *gorm.DB, order *orderdomain.Order, customerKey, restaurantKey, dateTimeKey int64) error {
	dayStart := time.Date(order.CreationDate.Year(), order.CreationDate.Month(), order.CreationDate.Day(), 0, 0, 0, 0, time.UTC)

	dailyOrders, dailySpend, err := o.orders.CustomerDayTotals(ctx, tx, order.CustomerID, dayStart)
	if err != nil {
		return fmt.Errorf("order %d: customer day totals: %w", order.ID, err)
	}
	stats, err := o.orders.CustomerStats(ctx, tx, order.CustomerID)
	if err != nil {
		return fmt.Errorf("order %d: customer stats: %w", order.ID, err)
	}
	prev, err := o.orders.PreviousOrderDate(ctx, tx, order.CustomerID, order.CreationDate)
	if err != nil {
		return fmt.Errorf("order %d: previous order date: %w", order.ID, err)
	}

	row := &domain.FactCustomerMetrics{
		OrderID:              order.ID,
		CustomerKey:          customerKey,
		DateTimeKey:          dateTimeKey,
		RestaurantKey:        restaurantKey,
		DailyOrders:          dailyOrders,
		DailySpend:           dailySpend,
		PointsUsed:           order.UsedPoints,
		RunningOrderCount:    stats.TotalOrders,
		RunningTotalSpend:    stats.TotalSpent,
		RunningAvgOrderValue: stats.AvgOrderValue,
		DaysSinceLastOrder:   daysBetween(prev, order.CreationDate),
		OrderFrequencyDays:   orderFrequencyDays(stats),
	}
	if err := o.facts.CustomerMetricsFact(ctx, tx, row); err != nil {
		return fmt.Errorf("order %d: write customer metrics: %w", order.ID, err)
	}
	return o.ledger.Mark(ctx, tx, []int64{order.ID}, domain.FactTypeCustomerMetrics)
}

func daysBetween(from *time.Time, to time.Time) int {
	if from == nil {
		return 0
	}
	days := int(to.Sub(*from).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// orderFrequencyDays is the mean gap between orders over the customer's
// history, zero until there are at least two orders.
func orderFrequencyDays(stats orderdomain.CustomerOrderStats) float64 {
	if stats.TotalOrders < 2 || stats.FirstOrderDate == nil || stats.LastOrderDate == nil {
		return 0
	}
	span := stats.LastOrderDate.Sub(*stats.FirstOrderDate).Hours() / 24
	if span <= 0 {
		return 0
	}
	return math.Round(span/float64(stats.TotalOrders-1)*100) / 100
}
