package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dineflow/ordersync/internal/order/domain"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&domain.Restaurant{},
		&domain.Order{},
		&domain.Payment{},
	))
	return db
}

func TestUpsertOverwritesExistingRow(t *testing.T) {
	db := setupDB(t)
	r := Provide()
	ctx := context.Background()

	require.NoError(t, r.UpsertRestaurant(ctx, db, &domain.Restaurant{ID: 42, Name: "Soho"}))
	require.NoError(t, r.UpsertRestaurant(ctx, db, &domain.Restaurant{ID: 42, Name: "Soho Kitchen", MenuID: 5}))

	var row domain.Restaurant
	require.NoError(t, db.First(&row, "id = ?", 42).Error)
	assert.Equal(t, "Soho Kitchen", row.Name)
	assert.EqualValues(t, 5, row.MenuID)

	var count int64
	require.NoError(t, db.Model(&domain.Restaurant{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestFindOrderNotFound(t *testing.T) {
	db := setupDB(t)
	r := Provide()

	_, err := r.FindOrder(context.Background(), db, 9001)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrdersForDayBoundaries(t *testing.T) {
	db := setupDB(t)
	r := Provide()
	ctx := context.Background()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	for i, at := range []time.Time{
		day.Add(-time.Second),       // previous day
		day,                         // midnight inclusive
		day.Add(23*time.Hour + 59*time.Minute),
		day.Add(24 * time.Hour),     // next day exclusive
	} {
		require.NoError(t, db.Create(&domain.Order{
			ID: int64(i + 1), RestaurantID: 42, CustomerID: 77, CreationDate: at,
		}).Error)
	}
	// Another restaurant on the same day.
	require.NoError(t, db.Create(&domain.Order{
		ID: 99, RestaurantID: 7, CustomerID: 77, CreationDate: day.Add(time.Hour),
	}).Error)

	orders, err := r.OrdersForDay(ctx, db, 42, day)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.EqualValues(t, 2, orders[0].ID)
	assert.EqualValues(t, 3, orders[1].ID)
}

func TestCustomerStats(t *testing.T) {
	db := setupDB(t)
	r := Provide()
	ctx := context.Background()

	stats, err := r.CustomerStats(ctx, db, 77)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.TotalOrders)
	assert.Nil(t, stats.FirstOrderDate)

	first := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&domain.Order{ID: 1, CustomerID: 77, Total: 10, CreationDate: first}).Error)
	require.NoError(t, db.Create(&domain.Order{ID: 2, CustomerID: 77, Total: 25, CreationDate: last}).Error)
	require.NoError(t, db.Create(&domain.Order{ID: 3, CustomerID: 88, Total: 999, CreationDate: last}).Error)

	stats, err = r.CustomerStats(ctx, db, 77)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalOrders)
	assert.Equal(t, 35.0, stats.TotalSpent)
	assert.Equal(t, 17.5, stats.AvgOrderValue)
	require.NotNil(t, stats.FirstOrderDate)
	assert.Equal(t, first, stats.FirstOrderDate.UTC())
	assert.Equal(t, last, stats.LastOrderDate.UTC())
}

func TestCustomerDayTotals(t *testing.T) {
	db := setupDB(t)
	r := Provide()
	ctx := context.Background()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	orders, spend, err := r.CustomerDayTotals(ctx, db, 77, day)
	require.NoError(t, err)
	assert.Equal(t, 0, orders)
	assert.Equal(t, 0.0, spend)

	require.NoError(t, db.Create(&domain.Order{ID: 1, CustomerID: 77, Total: 12.5, CreationDate: day.Add(10 * time.Hour)}).Error)
	require.NoError(t, db.Create(&domain.Order{ID: 2, CustomerID: 77, Total: 7.5, CreationDate: day.Add(20 * time.Hour)}).Error)
	require.NoError(t, db.Create(&domain.Order{ID: 3, CustomerID: 77, Total: 99, CreationDate: day.AddDate(0, 0, 1)}).Error)

	orders, spend, err = r.CustomerDayTotals(ctx, db, 77, day)
	require.NoError(t, err)
	assert.Equal(t, 2, orders)
	assert.Equal(t, 20.0, spend)
}

func TestPreviousOrderDate(t *testing.T) {
	db := setupDB(t)
	r := Provide()
	ctx := context.Background()

	at := time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)
	prev, err := r.PreviousOrderDate(ctx, db, 77, at)
	require.NoError(t, err)
	assert.Nil(t, prev)

	earlier := at.AddDate(0, 0, -10)
	require.NoError(t, db.Create(&domain.Order{ID: 1, CustomerID: 77, CreationDate: earlier}).Error)
	require.NoError(t, db.Create(&domain.Order{ID: 2, CustomerID: 77, CreationDate: at}).Error)

	prev, err = r.PreviousOrderDate(ctx, db, 77, at)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, earlier, prev.UTC())
}

func TestFindPaymentsByOrder(t *testing.T) {
	db := setupDB(t)
	r := Provide()
	ctx := context.Background()

	require.NoError(t, db.Create(&domain.Payment{ID: 502, OrderID: 9001, Amount: 5}).Error)
	require.NoError(t, db.Create(&domain.Payment{ID: 501, OrderID: 9001, Amount: 10}).Error)
	require.NoError(t, db.Create(&domain.Payment{ID: 503, OrderID: 9002, Amount: 7}).Error)

	payments, err := r.FindPaymentsByOrder(ctx, db, 9001)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.EqualValues(t, 501, payments[0].ID, "ordered by id")
	assert.EqualValues(t, 502, payments[1].ID)
}
