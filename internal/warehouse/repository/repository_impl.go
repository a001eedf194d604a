package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/dineflow/ordersync/internal/warehouse/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func first[T any](ctx context.Context, db *gorm.DB, conds string, args ...any) (*T, error) {
	var row T
	err := db.WithContext(ctx).Where(conds, args...).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

/* ================= datetime grid ================= */

func (r *repo) GridRange(ctx context.Context, db *gorm.DB) (*time.Time, *time.Time, error) {
	var row struct {
		Min *time.Time
		Max *time.Time
	}
	err := db.WithContext(ctx).
		Model(&domain.DimDateTime{}).
		Select("MIN(datetime) AS min, MAX(datetime) AS max").
		Scan(&row).Error
	if err != nil {
		return nil, nil, err
	}
	return row.Min, row.Max, nil
}

func (r *repo) GridKeyAt(ctx context.Context, db *gorm.DB, at time.Time) (int64, error) {
	var row domain.DimDateTime
	err := db.WithContext(ctx).
		Select("datetime_key").
		Where("datetime = ?", at).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, domain.ErrGridKeyMissing
	}
	if err != nil {
		return 0, err
	}
	return row.DateTimeKey, nil
}

func (r *repo) CreateGridRows(ctx context.Context, db *gorm.DB, rows []domain.DimDateTime) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(rows, 1000).Error
}

/* ================= dimensions ================= */

func (r *repo) FindRestaurantDim(ctx context.Context, db *gorm.DB, restaurantID int64) (*domain.DimRestaurant, error) {
	return first[domain.DimRestaurant](ctx, db, "restaurant_id = ?", restaurantID)
}

func (r *repo) CreateRestaurantDim(ctx context.Context, db *gorm.DB, row *domain.DimRestaurant) error {
	return db.WithContext(ctx).Create(row).Error
}

func (r *repo) SaveRestaurantDim(ctx context.Context, db *gorm.DB, row *domain.DimRestaurant) error {
	return db.WithContext(ctx).Save(row).Error
}

func (r *repo) FindCustomerDim(ctx context.Context, db *gorm.DB, customerID, restaurantKey int64) (*domain.DimCustomer, error) {
	return first[domain.DimCustomer](ctx, db, "customer_id = ? AND restaurant_key = ?", customerID, restaurantKey)
}

func (r *repo) CreateCustomerDim(ctx context.Context, db *gorm.DB, row *domain.DimCustomer) error {
	return db.WithContext(ctx).Create(row).Error
}

func (r *repo) SaveCustomerDim(ctx context.Context, db *gorm.DB, row *domain.DimCustomer) error {
	return db.WithContext(ctx).Save(row).Error
}

func (r *repo) FindPromotionDim(ctx context.Context, db *gorm.DB, promotionID, restaurantKey int64) (*domain.DimPromotion, error) {
	return first[domain.DimPromotion](ctx, db, "promotion_id = ? AND restaurant_key = ?", promotionID, restaurantKey)
}

func (r *repo) CreatePromotionDim(ctx context.Context, db *gorm.DB, row *domain.DimPromotion) error {
	return db.WithContext(ctx).Create(row).Error
}

func (r *repo) FindPaymentMethodDim(ctx context.Context, db *gorm.DB, methodID, restaurantID int64) (*domain.DimPaymentMethod, error) {
	return first[domain.DimPaymentMethod](ctx, db, "payment_method_id = ? AND restaurant_id = ?", methodID, restaurantID)
}

func (r *repo) CreatePaymentMethodDim(ctx context.Context, db *gorm.DB, row *domain.DimPaymentMethod) error {
	return db.WithContext(ctx).Create(row).Error
}

/* ================= facts ================= */

func (r *repo) FindOrderFact(ctx context.Context, db *gorm.DB, orderID int64) (*domain.FactOrder, error) {
	return first[domain.FactOrder](ctx, db, "order_id = ?", orderID)
}

func (r *repo) CreateOrderFact(ctx context.Context, db *gorm.DB, row *domain.FactOrder) error {
	return db.WithContext(ctx).Create(row).Error
}

func (r *repo) FindPaymentFact(ctx context.Context, db *gorm.DB, paymentID int64) (*domain.FactPayment, error) {
	return first[domain.FactPayment](ctx, db, "payment_id = ?", paymentID)
}

func (r *repo) CreatePaymentFact(ctx context.Context, db *gorm.DB, row *domain.FactPayment) error {
	return db.WithContext(ctx).Create(row).Error
}

func (r *repo) FindCustomerMetricsFact(ctx context.Context, db *gorm.DB, orderID int64) (*domain.FactCustomerMetrics, error) {
	return first[domain.FactCustomerMetrics](ctx, db, "order_id = ?", orderID)
}

func (r *repo) CreateCustomerMetricsFact(ctx context.Context, db *gorm.DB, row *domain.FactCustomerMetrics) error {
	return db.WithContext(ctx).Create(row).Error
}

func (r *repo) SaveCustomerMetricsFact(ctx context.Context, db *gorm.DB, row *domain.FactCustomerMetrics) error {
	return db.WithContext(ctx).Save(row).Error
}

func (r *repo) FindRestaurantMetricsFact(ctx context.Context, db *gorm.DB, restaurantKey, dateTimeKey int64) (*domain.FactRestaurantMetrics, error) {
	return first[domain.FactRestaurantMetrics](ctx, db, "restaurant_key = ? AND datetime_key = ?", restaurantKey, dateTimeKey)
}

func (r *repo) CreateRestaurantMetricsFact(ctx context.Context, db *gorm.DB, row *domain.FactRestaurantMetrics) error {
	return db.WithContext(ctx).Create(row).Error
}

func (r *repo) SaveRestaurantMetricsFact(ctx context.Context, db *gorm.DB, row *domain.FactRestaurantMetrics) error {
	return db.WithContext(ctx).Save(row).Error
}

/* ================= processed-order ledger ================= */

func (r *repo) IsOrderProcessed(ctx context.Context, db *gorm.DB, orderID int64, factType string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.ProcessedOrder{}).
		Where("order_id = ? AND fact_type = ?", orderID, factType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) UnprocessedOrders(ctx context.Context, db *gorm.DB, orderIDs []int64, factType string) ([]int64, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}

	var processed []int64
	err := db.WithContext(ctx).
		Model(&domain.ProcessedOrder{}).
		Where("order_id IN ? AND fact_type = ?", orderIDs, factType).
		Pluck("order_id", &processed).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(processed))
	for _, id := range processed {
		seen[id] = struct{}{}
	}

	out := make([]int64, 0, len(orderIDs))
	for _, id := range orderIDs {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *repo) MarkOrdersProcessed(ctx context.Context, db *gorm.DB, rows []domain.ProcessedOrder) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&rows).Error
}

func (r *repo) ResetProcessed(ctx context.Context, db *gorm.DB, orderIDs []int64, factType string) error {
	if len(orderIDs) == 0 {
		return nil
	}
	stmt := db.WithContext(ctx).Where("order_id IN ?", orderIDs)
	if factType != "" {
		stmt = stmt.Where("fact_type = ?", factType)
	}
	return stmt.Delete(&domain.ProcessedOrder{}).Error
}
