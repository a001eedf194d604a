package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dineflow/ordersync/internal/checkpoint"
	"github.com/dineflow/ordersync/internal/clock"
	"github.com/dineflow/ordersync/internal/config"
	"github.com/dineflow/ordersync/internal/datetimegrid"
	"github.com/dineflow/ordersync/internal/dimension"
	"github.com/dineflow/ordersync/internal/etl"
	"github.com/dineflow/ordersync/internal/events"
	"github.com/dineflow/ordersync/internal/fact"
	"github.com/dineflow/ordersync/internal/holiday"
	orderdomain "github.com/dineflow/ordersync/internal/order/domain"
	orderrepo "github.com/dineflow/ordersync/internal/order/repository"
	"github.com/dineflow/ordersync/internal/pos"
	"github.com/dineflow/ordersync/internal/restmetrics"
	"github.com/dineflow/ordersync/internal/warehouse/domain"
	warehouserepo "github.com/dineflow/ordersync/internal/warehouse/repository"
)

// fakePOS serves login, paginated order lists and order details the way the
// vendor API does.
type fakePOS struct {
	pages        [][]fakeOrder
	detailCalls  map[int64]int
	listCalls    int
	restaurantID int64
}

type fakeOrder struct {
	ID   int64
	Date time.Time
}

func vendorDate(t time.Time) string {
	return fmt.Sprintf("/Date(%d)/", t.UnixMilli())
}

func (f *fakePOS) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/Account/Login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"SessionToken":"tok","Company":{"ID":1,"Name":"Dine Group"},"Restaurant":{"ID":%d,"Name":"Soho"}}`, f.restaurantID)
	})
	mux.HandleFunc("/Order/List", func(w http.ResponseWriter, r *http.Request) {
		f.listCalls++
		var pageIndex int
		fmt.Sscanf(r.URL.Query().Get("pageIndex"), "%d", &pageIndex)

		var data []map[string]any
		if pageIndex >= 1 && pageIndex <= len(f.pages) {
			for _, o := range f.pages[pageIndex-1] {
				data = append(data, map[string]any{
					"ID":           o.ID,
					"CreationDate": vendorDate(o.Date),
					"Total":        10.0,
					"Status":       5,
				})
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"Data": data, "ErrorCode": 0})
	})
	mux.HandleFunc("/order/Detail", func(w http.ResponseWriter, r *http.Request) {
		var id int64
		fmt.Sscanf(r.URL.Query().Get("ID"), "%d", &id)
		f.detailCalls[id]++

		var date time.Time
		for _, page := range f.pages {
			for _, o := range page {
				if o.ID == id {
					date = o.Date
				}
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"Data": map[string]any{
				"ID":           id,
				"OrderMethod":  2,
				"DeliveryType": 2,
				"SubTotal":     10.0,
				"Total":        12.5,
				"Status":       5,
				"CreationDate": vendorDate(date),
				"Restaurant":   map[string]any{"ID": f.restaurantID, "Name": "Soho"},
				"Customer":     map[string]any{"ID": 77, "FullName": "Pat Smith"},
				"Payments": []map[string]any{
					{"ID": id*10 + 1, "PaymentMethodID": 9, "PaymentMethodType": 2, "Amount": 12.5},
				},
			},
			"ErrorCode": 0,
		})
	})
	return mux
}

func setupManager(t *testing.T, f *fakePOS, cfg config.SyncConfig) (*Manager, *gorm.DB, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

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
		&orderdomain.SyncCheckpoint{},
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

	appCfg := config.Config{
		API:  config.APIConfig{BaseURL: srv.URL, PageSize: 100, RequestTimeout: 5},
		Sync: cfg,
	}
	fc := clock.NewFakeClock(time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC))
	logger := zap.NewNop()

	warehouse := warehouserepo.Provide()
	orders := orderrepo.Provide()
	grid := datetimegrid.New(datetimegrid.Params{
		Repo:   warehouse,
		Config: config.Config{FiscalYearStartMonth: 7},
		Cal:    holiday.NewEnglandCalendar(),
		Logger: logger,
	})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	ledger := fact.NewLedger(fact.LedgerParams{Warehouse: warehouse, Node: node, Clock: fc})
	writer := fact.NewWriter(fact.WriterParams{Warehouse: warehouse, Logger: logger})
	metrics := restmetrics.New(restmetrics.Params{
		Orders: orders, Warehouse: warehouse, Grid: grid, Ledger: ledger, Logger: logger,
	})
	orchestrator := etl.New(etl.Params{
		Orders: orders, Grid: grid,
		Dimensions: dimension.New(dimension.Params{Warehouse: warehouse, Orders: orders, Clock: fc, Logger: logger}),
		Facts:      writer, Ledger: ledger, Metrics: metrics, Logger: logger,
	})
	publisher, err := events.NewPublisher(events.Params{Config: config.Config{}, Logger: logger})
	require.NoError(t, err)

	m := NewManager(ManagerParams{
		DB:           db,
		Client:       pos.NewClient(pos.Params{Config: appCfg, Logger: logger}),
		Orchestrator: orchestrator,
		Tracker:      checkpoint.New(checkpoint.Params{Clock: fc, Logger: logger}),
		Publisher:    publisher,
		Stats:        NewStatsStore(),
		Config:       appCfg,
		Clock:        fc,
		Logger:       logger,
	})
	return m, db, srv
}

func TestSyncRestaurantFullSync(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	f := &fakePOS{
		restaurantID: 42,
		detailCalls:  map[int64]int{},
		pages: [][]fakeOrder{
			{
				{ID: 9003, Date: day.Add(20 * time.Hour)},
				{ID: 9002, Date: day.Add(19 * time.Hour)},
				{ID: 9001, Date: day.Add(18 * time.Hour)},
			},
		},
	}
	m, db, _ := setupManager(t, f, config.SyncConfig{MaxRetries: 1, BackoffFactor: 0})

	stats, err := m.SyncRestaurant(context.Background(), config.RestaurantConfig{Name: "Soho", Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.NewOrdersSynced)
	assert.Equal(t, 0, stats.DuplicatesSkipped)
	assert.Empty(t, stats.Errors)
	assert.EqualValues(t, 9003, stats.MostRecentOrderID)

	var cp orderdomain.SyncCheckpoint
	require.NoError(t, db.First(&cp, "restaurant_id = ?", 42).Error)
	assert.EqualValues(t, 9003, cp.LastOrderID, "checkpoint lands on the newest order")
	assert.EqualValues(t, 3, cp.TotalOrdersSynced)

	var facts int64
	require.NoError(t, db.Model(&domain.FactOrder{}).Count(&facts).Error)
	assert.EqualValues(t, 3, facts)
}

func TestSyncRestaurantIncremental(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	old := make([]fakeOrder, 0, 12)
	for i := 0; i < 12; i++ {
		old = append(old, fakeOrder{ID: int64(9000 - i), Date: day.Add(time.Duration(12-i) * time.Hour)})
	}
	page := append([]fakeOrder{
		{ID: 9102, Date: day.Add(20 * time.Hour)},
		{ID: 9101, Date: day.Add(19 * time.Hour)},
	}, old...)
	f := &fakePOS{restaurantID: 42, detailCalls: map[int64]int{}, pages: [][]fakeOrder{page}}
	m, db, _ := setupManager(t, f, config.SyncConfig{MaxRetries: 1})

	// Checkpoint at the newest of the old orders.
	require.NoError(t, db.Create(&orderdomain.SyncCheckpoint{
		RestaurantID:  42,
		LastOrderID:   9000,
		LastOrderDate: day.Add(12 * time.Hour),
		LastSyncDate:  day,
	}).Error)

	stats, err := m.SyncRestaurant(context.Background(), config.RestaurantConfig{Name: "Soho", Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.NewOrdersSynced)
	assert.Equal(t, 10, stats.DuplicatesSkipped, "walk ends at the consecutive-old threshold")
	assert.Equal(t, 0, f.detailCalls[9000], "old orders are never fetched")

	var cp orderdomain.SyncCheckpoint
	require.NoError(t, db.First(&cp, "restaurant_id = ?", 42).Error)
	assert.EqualValues(t, 9102, cp.LastOrderID)
}

func TestSyncRestaurantStaleDuplicatesBeforeCheckpoint(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	// Eleven stale orders ahead of the checkpointed one; the walk must not
	// stop before reaching it.
	page := make([]fakeOrder, 0, 13)
	for i := 0; i < 11; i++ {
		page = append(page, fakeOrder{ID: int64(8000 - i), Date: day.Add(6 * time.Hour)})
	}
	page = append(page,
		fakeOrder{ID: 7000, Date: day.Add(5 * time.Hour)}, // the checkpoint order
		fakeOrder{ID: 6999, Date: day.Add(4 * time.Hour)},
	)
	f := &fakePOS{restaurantID: 42, detailCalls: map[int64]int{}, pages: [][]fakeOrder{page}}
	m, db, _ := setupManager(t, f, config.SyncConfig{MaxRetries: 1})

	require.NoError(t, db.Create(&orderdomain.SyncCheckpoint{
		RestaurantID:  42,
		LastOrderID:   7000,
		LastOrderDate: day.Add(10 * time.Hour),
		LastSyncDate:  day,
	}).Error)

	stats, err := m.SyncRestaurant(context.Background(), config.RestaurantConfig{Name: "Soho", Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.NewOrdersSynced)
	assert.Equal(t, 13, stats.OrdersSeen, "stale duplicates before the checkpoint do not end the walk")
}

func TestSyncRestaurantRespectsMaxPages(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	f := &fakePOS{
		restaurantID: 42,
		detailCalls:  map[int64]int{},
		pages: [][]fakeOrder{
			{{ID: 9002, Date: day.Add(20 * time.Hour)}},
			{{ID: 9001, Date: day.Add(19 * time.Hour)}},
		},
	}
	m, _, _ := setupManager(t, f, config.SyncConfig{MaxRetries: 1, MaxPages: 1})

	stats, err := m.SyncRestaurant(context.Background(), config.RestaurantConfig{Name: "Soho", Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PagesProcessed)
	assert.Equal(t, 1, stats.NewOrdersSynced)
}

func TestSyncRestaurantSkipDuplicateChecks(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	f := &fakePOS{
		restaurantID: 42,
		detailCalls:  map[int64]int{},
		pages:        [][]fakeOrder{{{ID: 9001, Date: day.Add(18 * time.Hour)}}},
	}
	m, db, _ := setupManager(t, f, config.SyncConfig{MaxRetries: 1, SkipDuplicateChecks: true})

	require.NoError(t, db.Create(&orderdomain.SyncCheckpoint{
		RestaurantID:  42,
		LastOrderID:   9001,
		LastOrderDate: day.Add(18 * time.Hour),
		LastSyncDate:  day,
	}).Error)

	stats, err := m.SyncRestaurant(context.Background(), config.RestaurantConfig{Name: "Soho", Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.NewOrdersSynced, "checkpointed order reprocessed on forced backfill")
	assert.Equal(t, 1, f.detailCalls[9001])
}

func TestSyncRestaurantForcedBackfillRebuildsDailyMetrics(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	f := &fakePOS{
		restaurantID: 42,
		detailCalls:  map[int64]int{},
		pages:        [][]fakeOrder{{{ID: 9001, Date: day.Add(18 * time.Hour)}}},
	}
	m, db, _ := setupManager(t, f, config.SyncConfig{MaxRetries: 1, SkipDuplicateChecks: true})
	ctx := context.Background()

	_, err := m.SyncRestaurant(ctx, config.RestaurantConfig{Name: "Soho", Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)

	// Corrupt the stored aggregate. The order is now in the ledger, which
	// gates the usual rebuild.
	var row domain.FactRestaurantMetrics
	require.NoError(t, db.First(&row).Error)
	require.NoError(t, db.Model(&row).Update("total_orders", 999).Error)

	_, err = m.SyncRestaurant(ctx, config.RestaurantConfig{Name: "Soho", Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, 1, row.TotalOrders, "forced backfill recomputes the day")

	var count int64
	require.NoError(t, db.Model(&domain.FactRestaurantMetrics{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
