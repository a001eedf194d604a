// Package domain holds the dimensional model: dimension rows addressed by
// surrogate key, fact rows keyed by the source record's business id, and the
// processed-order ledger that gates aggregate recomputation.
package domain

import "time"

// DimDateTime is one grid slot of the time dimension. Rows are immutable once
// written; the grid only ever appends.
type DimDateTime struct {
	DateTimeKey int64     `gorm:"column:datetime_key;primaryKey;autoIncrement" json:"datetime_key"`
	DateTime    time.Time `gorm:"column:datetime;uniqueIndex;not null" json:"datetime"`
	Date        time.Time `gorm:"index;not null" json:"date"`
	Year        int       `gorm:"not null" json:"year"`
	Quarter     int       `gorm:"not null" json:"quarter"`
	Month       int       `gorm:"not null" json:"month"`
	Week        int       `gorm:"not null" json:"week"`
	Day         int       `gorm:"not null" json:"day"`
	Hour        int       `gorm:"not null" json:"hour"`
	Minute      int       `gorm:"not null" json:"minute"`
	DayOfWeek   int       `gorm:"not null" json:"day_of_week"` // 1=Monday .. 7=Sunday
	IsWeekend   bool      `gorm:"not null" json:"is_weekend"`
	IsHoliday   bool      `gorm:"not null" json:"is_holiday"`

	DayPart        string `gorm:"size:20;not null" json:"day_part"`
	IsPeakHour     bool   `gorm:"not null" json:"is_peak_hour"`
	IsBusinessHour bool   `gorm:"not null" json:"is_business_hour"`

	FiscalYear    int `gorm:"not null" json:"fiscal_year"`
	FiscalQuarter int `gorm:"not null" json:"fiscal_quarter"`
	FiscalMonth   int `gorm:"not null" json:"fiscal_month"`

	YearMonth      int    `gorm:"not null" json:"year_month"`       // e.g. 202001
	MonthName      string `gorm:"size:10;not null" json:"month_name"`
	DayName        string `gorm:"size:10;not null" json:"day_name"`
	YearMonthLabel string `gorm:"size:7;not null" json:"year_month_label"` // e.g. "2020-01"
}

func (DimDateTime) TableName() string { return "dim_datetime" }

// DimCustomer carries Type-2 columns but is maintained Type-1: the current row
// is updated in place and never expired.
type DimCustomer struct {
	CustomerKey   int64      `gorm:"primaryKey;autoIncrement" json:"customer_key"`
	RestaurantKey int64      `gorm:"index:idx_dim_customer_scope,priority:2;not null" json:"restaurant_key"`
	CustomerID    int64      `gorm:"index:idx_dim_customer_scope,priority:1;not null" json:"customer_id"`
	FullName      string     `gorm:"size:255" json:"full_name"`
	Email         string     `gorm:"size:255" json:"email"`
	Mobile        string     `gorm:"size:20" json:"mobile"`
	BirthDate     *time.Time `json:"birth_date,omitempty"`
	AgeGroup      string     `gorm:"size:20" json:"age_group"`

	EffectiveDate  time.Time  `gorm:"not null" json:"effective_date"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	IsCurrent      bool       `gorm:"not null" json:"is_current"`

	IsEmailMarketingAllowed bool `json:"is_email_marketing_allowed"`
	IsSmsMarketingAllowed   bool `json:"is_sms_marketing_allowed"`

	LifetimeOrderCount int64      `json:"lifetime_order_count"`
	LifetimeOrderValue float64    `json:"lifetime_order_value"`
	AverageOrderValue  float64    `json:"average_order_value"`
	FirstOrderDate     *time.Time `json:"first_order_date,omitempty"`
	LastOrderDate      *time.Time `json:"last_order_date,omitempty"`
	CustomerSegment    string     `gorm:"size:50" json:"customer_segment"`
	CustomerTenureDays int        `json:"customer_tenure_days"`
}

func (DimCustomer) TableName() string { return "dim_customer" }

type DimRestaurant struct {
	RestaurantKey  int64  `gorm:"primaryKey;autoIncrement" json:"restaurant_key"`
	RestaurantID   int64  `gorm:"uniqueIndex;not null" json:"restaurant_id"`
	RestaurantName string `gorm:"size:255" json:"restaurant_name"`
	IsActive       bool   `gorm:"not null;default:true" json:"is_active"`

	EffectiveDate  time.Time  `gorm:"not null" json:"effective_date"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	IsCurrent      bool       `gorm:"not null" json:"is_current"`
}

func (DimRestaurant) TableName() string { return "dim_restaurant" }

// DimPromotion rows are created once and never mutated.
type DimPromotion struct {
	PromotionKey         int64   `gorm:"primaryKey;autoIncrement" json:"promotion_key"`
	PromotionID          int64   `gorm:"index:idx_dim_promotion_scope,priority:1;not null" json:"promotion_id"`
	RestaurantKey        int64   `gorm:"index:idx_dim_promotion_scope,priority:2;not null" json:"restaurant_key"`
	PromotionName        string  `gorm:"size:255" json:"promotion_name"`
	PromotionDescription string  `gorm:"size:255" json:"promotion_description"`
	PromotionType        int     `json:"promotion_type"`
	BenefitType          int     `json:"benefit_type"`
	DiscountType         int     `json:"discount_type"`
	DiscountAmount       float64 `json:"discount_amount"`
	MinSubtotal          float64 `json:"min_subtotal"`
	CouponCode           string  `gorm:"size:255" json:"coupon_code"`
	IsFirstOrderOnly     bool    `json:"is_first_order_only"`
	IsOncePerCustomer    bool    `json:"is_once_per_customer"`
	CompanyID            int64   `json:"company_id"`
}

func (DimPromotion) TableName() string { return "dim_promotion" }

// DimPaymentMethod rows are created once per (method, restaurant) and never
// mutated.
type DimPaymentMethod struct {
	PaymentMethodKey    int64  `gorm:"primaryKey;autoIncrement" json:"payment_method_key"`
	PaymentMethodID     int64  `gorm:"index:idx_dim_payment_method_scope,priority:1;not null" json:"payment_method_id"`
	RestaurantID        int64  `gorm:"index:idx_dim_payment_method_scope,priority:2;not null" json:"restaurant_id"`
	PaymentMethodName   string `gorm:"size:255" json:"payment_method_name"`
	PaymentMethodType   int    `json:"payment_method_type"`
	RequiresExtraCharge bool   `json:"requires_extra_charge"`
	IsDigital           bool   `json:"is_digital"`
	IsCard              bool   `json:"is_card"`
	IsCash              bool   `json:"is_cash"`
}

func (DimPaymentMethod) TableName() string { return "dim_payment_method" }

type FactOrder struct {
	OrderKey int64 `gorm:"primaryKey;autoIncrement" json:"order_key"`
	OrderID  int64 `gorm:"uniqueIndex;not null" json:"order_id"`

	DateTimeKey   int64  `gorm:"column:datetime_key;not null;index:idx_fact_orders_restaurant_datetime,priority:2" json:"datetime_key"`
	CustomerKey   int64  `gorm:"not null;index" json:"customer_key"`
	RestaurantKey int64  `gorm:"not null;index:idx_fact_orders_restaurant_datetime,priority:1" json:"restaurant_key"`
	PromotionKey  *int64 `json:"promotion_key,omitempty"`

	OrderStatus  int `gorm:"not null" json:"order_status"`
	DeliveryType int `gorm:"not null" json:"delivery_type"`
	OrderMethod  int `gorm:"not null" json:"order_method"`

	SubTotal      float64 `gorm:"not null" json:"sub_total"`
	DeliveryFee   float64 `json:"delivery_fee"`
	ServiceCharge float64 `json:"service_charge"`
	TotalDiscount float64 `json:"total_discount"`
	Total         float64 `gorm:"not null" json:"total"`

	UsedPoints         int  `json:"used_points"`
	IsPromotionApplied bool `gorm:"not null;default:false" json:"is_promotion_applied"`
}

func (FactOrder) TableName() string { return "fact_orders" }

type FactPayment struct {
	PaymentKey int64 `gorm:"primaryKey;autoIncrement" json:"payment_key"`
	PaymentID  int64 `gorm:"uniqueIndex;not null" json:"payment_id"`

	OrderKey         int64 `gorm:"not null;index" json:"order_key"`
	DateTimeKey      int64 `gorm:"column:datetime_key;not null" json:"datetime_key"`
	PaymentMethodKey int64 `gorm:"not null" json:"payment_method_key"`
	RestaurantKey    int64 `gorm:"not null;index" json:"restaurant_key"`

	SubTotal    float64 `gorm:"not null" json:"sub_total"`
	ExtraCharge float64 `json:"extra_charge"`
	Discount    float64 `json:"discount"`
	Tax         float64 `json:"tax"`
	Tip         float64 `json:"tip"`
	TotalAmount float64 `gorm:"not null" json:"total_amount"`

	PaymentStatus int `gorm:"not null" json:"payment_status"`
}

func (FactPayment) TableName() string { return "fact_payments" }

// FactCustomerMetrics is one per-order snapshot of a customer's activity. A
// replay with corrected numbers overwrites the measures in place.
type FactCustomerMetrics struct {
	MetricKey int64 `gorm:"primaryKey;autoIncrement" json:"metric_key"`
	OrderID   int64 `gorm:"uniqueIndex;not null" json:"order_id"`

	CustomerKey   int64 `gorm:"not null;index" json:"customer_key"`
	DateTimeKey   int64 `gorm:"column:datetime_key;not null" json:"datetime_key"`
	RestaurantKey int64 `gorm:"not null;index" json:"restaurant_key"`

	DailyOrders int     `json:"daily_orders"`
	DailySpend  float64 `json:"daily_spend"`
	PointsUsed  int     `json:"points_used"`

	RunningOrderCount    int64   `json:"running_order_count"`
	RunningTotalSpend    float64 `json:"running_total_spend"`
	RunningAvgOrderValue float64 `json:"running_avg_order_value"`
	DaysSinceLastOrder   int     `json:"days_since_last_order"`
	OrderFrequencyDays   float64 `json:"order_frequency_days"`
}

func (FactCustomerMetrics) TableName() string { return "fact_customer_metrics" }

// FactRestaurantMetrics holds one row per (restaurant, day); recomputation
// overwrites the row rather than appending.
type FactRestaurantMetrics struct {
	MetricKey     int64 `gorm:"primaryKey;autoIncrement" json:"metric_key"`
	RestaurantKey int64 `gorm:"uniqueIndex:uq_restaurant_date,priority:1;not null" json:"restaurant_key"`
	DateTimeKey   int64 `gorm:"column:datetime_key;uniqueIndex:uq_restaurant_date,priority:2;not null" json:"datetime_key"`

	TotalOrders   int     `json:"total_orders"`
	TotalRevenue  float64 `json:"total_revenue"`
	AvgOrderValue float64 `json:"avg_order_value"`

	BeforePeakOrders int `json:"before_peak_orders"`
	PeakOrders       int `json:"peak_orders"`
	AfterPeakOrders  int `json:"after_peak_orders"`

	DeliveryOrders int `json:"delivery_orders"`
	PickupOrders   int `json:"pickup_orders"`

	CashPayments    int `json:"cash_payments"`
	CardPayments    int `json:"card_payments"`
	DigitalPayments int `json:"digital_payments"`

	OrdersWithPromotion int     `json:"orders_with_promotion"`
	TotalDiscountAmount float64 `json:"total_discount_amount"`

	PeakHourOrders int  `json:"peak_hour_orders"`
	PeakHour       *int `json:"peak_hour,omitempty"` // 0-23
}

func (FactRestaurantMetrics) TableName() string { return "fact_restaurant_metrics" }

// Fact types tracked by the processed-order ledger.
const (
	FactTypeOrders            = "orders"
	FactTypePayments          = "payments"
	FactTypeCustomerMetrics   = "customer_metrics"
	FactTypeRestaurantMetrics = "restaurant_metrics"
)

// ProcessedOrder marks an (order, fact type) pair as applied. Existence is the
// whole signal.
type ProcessedOrder struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	OrderID       int64     `gorm:"uniqueIndex:uq_processed_order_type,priority:1;not null" json:"order_id"`
	FactType      string    `gorm:"uniqueIndex:uq_processed_order_type,priority:2;size:50;not null" json:"fact_type"`
	ProcessedDate time.Time `gorm:"not null" json:"processed_date"`
}

func (ProcessedOrder) TableName() string { return "fact_processed_orders" }
