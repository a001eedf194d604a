package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository is the record store for the dimensional model. Methods take the
// *gorm.DB to run against; creates flush immediately so generated surrogate
// keys are populated on return.
type Repository interface {
	// DateTime grid
	GridRange(ctx context.Context, db *gorm.DB) (min, max *time.Time, err error)
	GridKeyAt(ctx context.Context, db *gorm.DB, at time.Time) (int64, error)
	CreateGridRows(ctx context.Context, db *gorm.DB, rows []DimDateTime) error

	// Dimensions
	FindRestaurantDim(ctx context.Context, db *gorm.DB, restaurantID int64) (*DimRestaurant, error)
	CreateRestaurantDim(ctx context.Context, db *gorm.DB, row *DimRestaurant) error
	SaveRestaurantDim(ctx context.Context, db *gorm.DB, row *DimRestaurant) error

	FindCustomerDim(ctx context.Context, db *gorm.DB, customerID, restaurantKey int64) (*DimCustomer, error)
	CreateCustomerDim(ctx context.Context, db *gorm.DB, row *DimCustomer) error
	SaveCustomerDim(ctx context.Context, db *gorm.DB, row *DimCustomer) error

	FindPromotionDim(ctx context.Context, db *gorm.DB, promotionID, restaurantKey int64) (*DimPromotion, error)
	CreatePromotionDim(ctx context.Context, db *gorm.DB, row *DimPromotion) error

	FindPaymentMethodDim(ctx context.Context, db *gorm.DB, methodID, restaurantID int64) (*DimPaymentMethod, error)
	CreatePaymentMethodDim(ctx context.Context, db *gorm.DB, row *DimPaymentMethod) error

	// Facts
	FindOrderFact(ctx context.Context, db *gorm.DB, orderID int64) (*FactOrder, error)
	CreateOrderFact(ctx context.Context, db *gorm.DB, row *FactOrder) error

	FindPaymentFact(ctx context.Context, db *gorm.DB, paymentID int64) (*FactPayment, error)
	CreatePaymentFact(ctx context.Context, db *gorm.DB, row *FactPayment) error

	FindCustomerMetricsFact(ctx context.Context, db *gorm.DB, orderID int64) (*FactCustomerMetrics, error)
	CreateCustomerMetricsFact(ctx context.Context, db *gorm.DB, row *FactCustomerMetrics) error
	SaveCustomerMetricsFact(ctx context.Context, db *gorm.DB, row *FactCustomerMetrics) error

	FindRestaurantMetricsFact(ctx context.Context, db *gorm.DB, restaurantKey, dateTimeKey int64) (*FactRestaurantMetrics, error)
	CreateRestaurantMetricsFact(ctx context.Context, db *gorm.DB, row *FactRestaurantMetrics) error
	SaveRestaurantMetricsFact(ctx context.Context, db *gorm.DB, row *FactRestaurantMetrics) error

	// Processed-order ledger
	IsOrderProcessed(ctx context.Context, db *gorm.DB, orderID int64, factType string) (bool, error)
	UnprocessedOrders(ctx context.Context, db *gorm.DB, orderIDs []int64, factType string) ([]int64, error)
	MarkOrdersProcessed(ctx context.Context, db *gorm.DB, rows []ProcessedOrder) error
	ResetProcessed(ctx context.Context, db *gorm.DB, orderIDs []int64, factType string) error
}
