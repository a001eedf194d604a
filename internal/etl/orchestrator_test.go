package etl

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dineflow/ordersync/internal/clock"
	"github.com/dineflow/ordersync/internal/config"
	"github.com/dineflow/ordersync/internal/datetimegrid"
	"github.com/dineflow/ordersync/internal/dimension"
	"github.com/dineflow/ordersync/internal/fact"
	"github.com/dineflow/ordersync/internal/holiday"
	orderdomain "github.com/dineflow/ordersync/internal/order/domain"
	orderrepo "github.com/dineflow/ordersync/internal/order/repository"
	"github.com/dineflow/ordersync/internal/pos"
	"github.com/dineflow/ordersync/internal/restmetrics"
	"github.com/dineflow/ordersync/internal/warehouse/domain"
	warehouserepo "github.com/dineflow/ordersync/internal/warehouse/repository"
)

func setupOrchestrator(t *testing.T) (*Orchestrator, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&orderdomain.Restaurant{},
		&orderdomain.Customer{},
		&orderdomain.CustomerAddress{},
		&orderdomain.Promotion{},
		&orderdomain.Order{},
		&orderdomain.Payment{},
		&domain.DimDateTime{},
		&domain.DimRestaurant{},
		&domain.DimCustomer{},
		&domain.DimPromotion{},
		&domain.DimPaymentMethod{},
		&domain.FactOrder{},
		&domain.FactPayment{},
		&domain.FactCustomerMetrics{},
		&domain.FactRestaurantMetrics{},
		&domain.ProcessedOrder{},
	))

	warehouse := warehouserepo.Provide()
	orders := orderrepo.Provide()
	fc := clock.NewFakeClock(time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC))
	logger := zap.NewNop()

	grid := datetimegrid.New(datetimegrid.Params{
		Repo:   warehouse,
		Config: config.Config{FiscalYearStartMonth: 7},
		Cal:    holiday.NewEnglandCalendar(),
		Logger: logger,
	})
	resolver := dimension.New(dimension.Params{
		Warehouse: warehouse,
		Orders:    orders,
		Clock:     fc,
		Logger:    logger,
	})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	ledger := fact.NewLedger(fact.LedgerParams{Warehouse: warehouse, Node: node, Clock: fc})
	writer := fact.NewWriter(fact.WriterParams{Warehouse: warehouse, Logger: logger})
	metrics := restmetrics.New(restmetrics.Params{
		Orders:    orders,
		Warehouse: warehouse,
		Grid:      grid,
		Ledger:    ledger,
		Logger:    logger,
	})

	o := New(Params{
		Orders:     orders,
		Grid:       grid,
		Dimensions: resolver,
		Facts:      writer,
		Ledger:     ledger,
		Metrics:    metrics,
		Logger:     logger,
	})
	return o, db
}

func sampleDetail(orderID int64, at time.Time) *pos.OrderDetail {
	return &pos.OrderDetail{
		ID:           orderID,
		OrderMethod:  1,
		DeliveryType: 1,
		SubTotal:     20,
		DeliveryFee:  3,
		Total:        24.5,
		Status:       5,
		Discount:     1.5,
		CreationDate: pos.VendorTime{Time: at},
		Restaurant:   pos.RestaurantPayload{ID: 42, Name: "Soho", MenuID: 5},
		Customer:     pos.CustomerPayload{ID: 77, FullName: "Pat Smith", Email: "pat@example.com"},
		CustomerAddress: &pos.CustomerAddressPayload{
			ID: 300, CustomerID: 77, Street1: "1 High St", PostalCode: "E1 6AN",
		},
		Promotion: &pos.PromotionPayload{ID: 12, Name: "2FOR1", DiscountAmount: 5},
		Payments: []pos.PaymentPayload{
			{ID: 501, PaymentMethodID: 9, PaymentMethodType: 2, Amount: 24.5, SubTotal: 20},
		},
	}
}

func TestProcessOrderEndToEnd(t *testing.T) {
	o, db := setupOrchestrator(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 19, 15, 0, 0, time.UTC)

	require.NoError(t, o.ProcessOrder(ctx, db, sampleDetail(9001, at)))

	// Operational rows landed.
	var order orderdomain.Order
	require.NoError(t, db.First(&order, "id = ?", 9001).Error)
	require.NotNil(t, order.CustomerAddressID)
	require.NotNil(t, order.PromotionID)

	// One fact row each, with resolved surrogate keys.
	var orderFact domain.FactOrder
	require.NoError(t, db.First(&orderFact, "order_id = ?", 9001).Error)
	assert.NotZero(t, orderFact.DateTimeKey)
	assert.NotZero(t, orderFact.CustomerKey)
	assert.NotZero(t, orderFact.RestaurantKey)
	require.NotNil(t, orderFact.PromotionKey)
	assert.True(t, orderFact.IsPromotionApplied)
	assert.Equal(t, 1.5, orderFact.TotalDiscount)

	var paymentFact domain.FactPayment
	require.NoError(t, db.First(&paymentFact, "payment_id = ?", 501).Error)
	assert.Equal(t, orderFact.OrderKey, paymentFact.OrderKey)

	var cm domain.FactCustomerMetrics
	require.NoError(t, db.First(&cm, "order_id = ?", 9001).Error)
	assert.Equal(t, 1, cm.DailyOrders)
	assert.Equal(t, 24.5, cm.DailySpend)
	assert.EqualValues(t, 1, cm.RunningOrderCount)
	assert.Equal(t, 0, cm.DaysSinceLastOrder)
	assert.Equal(t, 0.0, cm.OrderFrequencyDays)

	// Daily restaurant KPI row built and the ledger filled for every fact type.
	var rm domain.FactRestaurantMetrics
	require.NoError(t, db.First(&rm).Error)
	assert.Equal(t, 1, rm.TotalOrders)

	for _, ft := range []string{
		domain.FactTypeOrders, domain.FactTypePayments,
		domain.FactTypeCustomerMetrics, domain.FactTypeRestaurantMetrics,
	} {
		var n int64
		require.NoError(t, db.Model(&domain.ProcessedOrder{}).
			Where("order_id = ? AND fact_type = ?", 9001, ft).Count(&n).Error)
		assert.EqualValues(t, 1, n, "fact type %s", ft)
	}
}

func TestProcessOrderReplayConverges(t *testing.T) {
	o, db := setupOrchestrator(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 19, 15, 0, 0, time.UTC)

	require.NoError(t, o.ProcessOrder(ctx, db, sampleDetail(9001, at)))
	require.NoError(t, o.ProcessOrder(ctx, db, sampleDetail(9001, at)))

	for _, m := range []any{
		&domain.FactOrder{}, &domain.FactPayment{},
		&domain.FactCustomerMetrics{}, &domain.FactRestaurantMetrics{},
	} {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		assert.EqualValues(t, 1, n, "%T", m)
	}

	var customers int64
	require.NoError(t, db.Model(&domain.DimCustomer{}).Count(&customers).Error)
	assert.EqualValues(t, 1, customers)
}

func TestProcessOrderTracksCustomerHistory(t *testing.T) {
	o, db := setupOrchestrator(t)
	ctx := context.Background()

	first := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	second := time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)
	require.NoError(t, o.ProcessOrder(ctx, db, sampleDetail(9001, first)))
	require.NoError(t, o.ProcessOrder(ctx, db, sampleDetail(9002, second)))

	var cm domain.FactCustomerMetrics
	require.NoError(t, db.First(&cm, "order_id = ?", 9002).Error)
	assert.EqualValues(t, 2, cm.RunningOrderCount)
	assert.Equal(t, 49.0, cm.RunningTotalSpend)
	assert.Equal(t, 10, cm.DaysSinceLastOrder)
	assert.InDelta(t, 10.29, cm.OrderFrequencyDays, 0.001)
}

func TestProcessOrderRejectsMissingCreationDate(t *testing.T) {
	o, db := setupOrchestrator(t)

	d := sampleDetail(9001, time.Time{})
	err := o.ProcessOrder(context.Background(), db, d)
	assert.ErrorIs(t, err, orderdomain.ErrMissingCreation)
}
