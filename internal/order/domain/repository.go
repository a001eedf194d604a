package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository is the transactional record store for the operational entities.
// Every method takes the *gorm.DB it must run against so the caller owns the
// transaction boundary.
type Repository interface {
	UpsertRestaurant(ctx context.Context, db *gorm.DB, r *Restaurant) error
	UpsertCustomer(ctx context.Context, db *gorm.DB, c *Customer) error
	UpsertCustomerAddress(ctx context.Context, db *gorm.DB, a *CustomerAddress) error
	UpsertPromotion(ctx context.Context, db *gorm.DB, p *Promotion) error
	UpsertOrder(ctx context.Context, db *gorm.DB, o *Order) error
	UpsertPayment(ctx context.Context, db *gorm.DB, p *Payment) error

	FindOrder(ctx context.Context, db *gorm.DB, id int64) (*Order, error)
	FindPaymentsByOrder(ctx context.Context, db *gorm.DB, orderID int64) ([]Payment, error)

	// OrdersForDay returns a restaurant's orders with creation date in
	// [dayStart, dayStart+24h).
	OrdersForDay(ctx context.Context, db *gorm.DB, restaurantID int64, dayStart time.Time) ([]Order, error)

	// CustomerStats aggregates a customer's full order history.
	CustomerStats(ctx context.Context, db *gorm.DB, customerID int64) (CustomerOrderStats, error)

	// CustomerDayTotals returns the customer's order count and spend for the
	// day starting at dayStart.
	CustomerDayTotals(ctx context.Context, db *gorm.DB, customerID int64, dayStart time.Time) (int, float64, error)

	// PreviousOrderDate returns the creation date of the customer's most
	// recent order strictly before the given instant, or nil.
	PreviousOrderDate(ctx context.Context, db *gorm.DB, customerID int64, before time.Time) (*time.Time, error)
}
