// Package dimension resolves operational entities to warehouse dimension rows,
// creating rows on first sight and refreshing mutable attributes in place.
package dimension

import (
	"context"
	"math"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dineflow/ordersync/internal/clock"
	orderdomain "github.com/dineflow/ordersync/internal/order/domain"
	"github.com/dineflow/ordersync/internal/warehouse/domain"
)

// Customer segments, assigned from lifetime order history.
const (
	SegmentVIP        = "VIP"
	SegmentRegular    = "Regular"
	SegmentOccasional = "Occasional"
	SegmentNew        = "New"

	vipOrderThreshold        = 24
	vipAvgValueThreshold     = 50.0
	regularOrderThreshold    = 12
	occasionalOrderThreshold = 3
)

// Payment method type codes as sent by the POS API.
const (
	PaymentTypeDigital = 1
	PaymentTypeCash    = 2
	PaymentTypeCard    = 4
)

// Module wires the dimension resolver.
var Module = fx.Module("dimension",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Warehouse domain.Repository
	Orders    orderdomain.Repository
	Clock     clock.Clock
	Logger    *zap.Logger
}

// Resolver maps operational records onto dimension rows.
type Resolver struct {
	warehouse domain.Repository
	orders    orderdomain.Repository
	clock     clock.Clock
	log       *zap.Logger
}

func New(p Params) *Resolver {
	return &Resolver{
		warehouse: p.Warehouse,
		orders:    p.Orders,
		clock:     p.Clock,
		log:       p.Logger.Named("dimension"),
	}
}

// Restaurant returns the dimension row for a restaurant, creating it on first
// sight. A renamed restaurant has its row updated in place.
func (r *Resolver) Restaurant(ctx context.Context, db *gorm.DB, src *orderdomain.Restaurant) (*domain.DimRestaurant, error) {
	row, err := r.warehouse.FindRestaurantDim(ctx, db, src.ID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &domain.DimRestaurant{
			RestaurantID:   src.ID,
			RestaurantName: src.Name,
			IsActive:       true,
			EffectiveDate:  r.clock.Now(),
			IsCurrent:      true,
		}
		if err := r.warehouse.CreateRestaurantDim(ctx, db, row); err != nil {
			return nil, err
		}
		r.log.Info("created restaurant dimension",
			zap.Int64("restaurant_id", src.ID),
			zap.Int64("restaurant_key", row.RestaurantKey),
		)
		return row, nil
	}

	if row.RestaurantName != src.Name {
		row.RestaurantName = src.Name
		if err := r.warehouse.SaveRestaurantDim(ctx, db, row); err != nil {
			return nil, err
		}
	}
	return row, nil
}

// Customer returns the dimension row for a customer within a restaurant scope.
// Both profile attributes and lifetime order metrics are recomputed from the
// operational store on every call, so a replayed order converges to the same
// row state.
func (r *Resolver) Customer(ctx context.Context, db *gorm.DB, src *orderdomain.Customer, restaurantKey int64) (*domain.DimCustomer, error) {
	stats, err := r.orders.CustomerStats(ctx, db, src.ID)
	if err != nil {
		return nil, err
	}

	now := r.clock.Now()
	row, err := r.warehouse.FindCustomerDim(ctx, db, src.ID, restaurantKey)
	if err != nil {
		return nil, err
	}

	created := row == nil
	if created {
		row = &domain.DimCustomer{
			CustomerID:    src.ID,
			RestaurantKey: restaurantKey,
			EffectiveDate: now,
			IsCurrent:     true,
		}
	}

	row.FullName = src.FullName
	row.Email = src.Email
	row.Mobile = src.Mobile
	row.BirthDate = src.BirthDate
	row.AgeGroup = AgeGroup(src.BirthDate, now)
	row.IsEmailMarketingAllowed = src.IsEmailMarketingAllowed
	row.IsSmsMarketingAllowed = src.IsSmsMarketingAllowed

	row.LifetimeOrderCount = stats.TotalOrders
	row.LifetimeOrderValue = round2(stats.TotalSpent)
	row.AverageOrderValue = round2(stats.AvgOrderValue)
	row.FirstOrderDate = stats.FirstOrderDate
	row.LastOrderDate = stats.LastOrderDate
	row.CustomerSegment = Segment(stats.TotalOrders, stats.AvgOrderValue)
	row.CustomerTenureDays = tenureDays(stats.FirstOrderDate, stats.LastOrderDate, now)

	if created {
		if err := r.warehouse.CreateCustomerDim(ctx, db, row); err != nil {
			return nil, err
		}
		return row, nil
	}
	return row, r.warehouse.SaveCustomerDim(ctx, db, row)
}

// Promotion returns the dimension row for a promotion within a restaurant
// scope, creating it on first sight. Promotion rows are never updated.
func (r *Resolver) Promotion(ctx context.Context, db *gorm.DB, src *orderdomain.Promotion, restaurantKey int64) (*domain.DimPromotion, error) {
	row, err := r.warehouse.FindPromotionDim(ctx, db, src.ID, restaurantKey)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return row, nil
	}

	row = &domain.DimPromotion{
		PromotionID:          src.ID,
		RestaurantKey:        restaurantKey,
		PromotionName:        src.Name,
		PromotionDescription: src.Description,
		PromotionType:        src.PromotionType,
		BenefitType:          src.BenefitType,
		DiscountType:         src.DiscountType,
		DiscountAmount:       src.DiscountAmount,
		MinSubtotal:          src.MinSubTotal,
		CouponCode:           src.CouponCode,
		IsFirstOrderOnly:     src.OnlyFirstOrder,
		IsOncePerCustomer:    src.OncePerCustomer,
		CompanyID:            src.CompanyID,
	}
	return row, r.warehouse.CreatePromotionDim(ctx, db, row)
}

// PaymentMethod returns the dimension row for a payment method within a
// restaurant, creating it on first sight with the cash/card/digital flags
// derived from the method type code.
func (r *Resolver) PaymentMethod(ctx context.Context, db *gorm.DB, src *orderdomain.Payment) (*domain.DimPaymentMethod, error) {
	row, err := r.warehouse.FindPaymentMethodDim(ctx, db, src.PaymentMethodID, src.RestaurantID)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return row, nil
	}

	row = &domain.DimPaymentMethod{
		PaymentMethodID:     src.PaymentMethodID,
		RestaurantID:        src.RestaurantID,
		PaymentMethodName:   src.PaymentMethodName,
		PaymentMethodType:   src.PaymentMethodType,
		RequiresExtraCharge: src.ExtraCharge > 0,
		IsDigital:           src.PaymentMethodType == PaymentTypeDigital,
		IsCard:              src.PaymentMethodType == PaymentTypeCard,
		IsCash:              src.PaymentMethodType == PaymentTypeCash,
	}
	return row, r.warehouse.CreatePaymentMethodDim(ctx, db, row)
}

// Segment classifies a customer by lifetime order count and average spend.
func Segment(totalOrders int64, avgOrderValue float64) string {
	switch {
	case totalOrders >= vipOrderThreshold && avgOrderValue >= vipAvgValueThreshold:
		return SegmentVIP
	case totalOrders >= regularOrderThreshold:
		return SegmentRegular
	case totalOrders >= occasionalOrderThreshold:
		return SegmentOccasional
	default:
		return SegmentNew
	}
}

// AgeGroup buckets a birth date into a reporting cohort as of a reference
// instant.
func AgeGroup(birthDate *time.Time, at time.Time) string {
	if birthDate == nil {
		return "Unknown"
	}
	age := at.Year() - birthDate.Year()
	if at.YearDay() < birthDate.YearDay() {
		age--
	}
	switch {
	case age < 0:
		return "Unknown"
	case age < 18:
		return "<18"
	case age < 25:
		return "18-24"
	case age < 35:
		return "25-34"
	case age < 45:
		return "35-44"
	case age < 55:
		return "45-54"
	default:
		return "55+"
	}
}

// tenureDays measures the span of the customer's order history, from first
// order to last (or to now when there is no later order).
func tenureDays(firstOrder, lastOrder *time.Time, now time.Time) int {
	if firstOrder == nil {
		return 0
	}
	end := now
	if lastOrder != nil {
		end = *lastOrder
	}
	days := int(end.Sub(*firstOrder).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
