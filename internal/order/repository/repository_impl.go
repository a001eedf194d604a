package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dineflow/ordersync/internal/order/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// merge emulates upsert-by-primary-key: insert, or overwrite every column
// when the business key already exists.
func merge(ctx context.Context, db *gorm.DB, value any) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(value).Error
}

func (r *repo) UpsertRestaurant(ctx context.Context, db *gorm.DB, rec *domain.Restaurant) error {
	return merge(ctx, db, rec)
}

func (r *repo) UpsertCustomer(ctx context.Context, db *gorm.DB, rec *domain.Customer) error {
	return merge(ctx, db, rec)
}

func (r *repo) UpsertCustomerAddress(ctx context.Context, db *gorm.DB, rec *domain.CustomerAddress) error {
	return merge(ctx, db, rec)
}

func (r *repo) UpsertPromotion(ctx context.Context, db *gorm.DB, rec *domain.Promotion) error {
	return merge(ctx, db, rec)
}

func (r *repo) UpsertOrder(ctx context.Context, db *gorm.DB, rec *domain.Order) error {
	return merge(ctx, db, rec)
}

func (r *repo) UpsertPayment(ctx context.Context, db *gorm.DB, rec *domain.Payment) error {
	return merge(ctx, db, rec)
}

func (r *repo) FindOrder(ctx context.Context, db *gorm.DB, id int64) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repo) FindPaymentsByOrder(ctx context.Context, db *gorm.DB, orderID int64) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) OrdersForDay(ctx context.Context, db *gorm.DB, restaurantID int64, dayStart time.Time) ([]domain.Order, error) {
	var orders []domain.Order
	err := db.WithContext(ctx).
		Where("restaurant_id = ? AND creation_date >= ? AND creation_date < ?",
			restaurantID, dayStart, dayStart.Add(24*time.Hour)).
		Order("creation_date, id").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) CustomerStats(ctx context.Context, db *gorm.DB, customerID int64) (domain.CustomerOrderStats, error) {
	var row struct {
		TotalOrders    int64
		TotalSpent     *float64
		FirstOrderDate *time.Time
		LastOrderDate  *time.Time
	}
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("COUNT(id) AS total_orders, SUM(total) AS total_spent, MIN(creation_date) AS first_order_date, MAX(creation_date) AS last_order_date").
		Where("customer_id = ?", customerID).
		Scan(&row).Error
	if err != nil {
		return domain.CustomerOrderStats{}, err
	}

	stats := domain.CustomerOrderStats{
		TotalOrders:    row.TotalOrders,
		FirstOrderDate: row.FirstOrderDate,
		LastOrderDate:  row.LastOrderDate,
	}
	if row.TotalSpent != nil {
		stats.TotalSpent = *row.TotalSpent
	}
	if stats.TotalOrders > 0 {
		stats.AvgOrderValue = stats.TotalSpent / float64(stats.TotalOrders)
	}
	return stats, nil
}

func (r *repo) CustomerDayTotals(ctx context.Context, db *gorm.DB, customerID int64, dayStart time.Time) (int, float64, error) {
	var row struct {
		Orders int
		Spend  *float64
	}
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("COUNT(id) AS orders, SUM(total) AS spend").
		Where("customer_id = ? AND creation_date >= ? AND creation_date < ?",
			customerID, dayStart, dayStart.Add(24*time.Hour)).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	spend := 0.0
	if row.Spend != nil {
		spend = *row.Spend
	}
	return row.Orders, spend, nil
}

func (r *repo) PreviousOrderDate(ctx context.Context, db *gorm.DB, customerID int64, before time.Time) (*time.Time, error) {
	var row struct {
		CreationDate *time.Time
	}
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("MAX(creation_date) AS creation_date").
		Where("customer_id = ? AND creation_date < ?", customerID, before).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return row.CreationDate, nil
}
