// Package domain holds the operational (OLTP) record set: the entities synced
// verbatim from the POS API, keyed by their external business ids.
package domain

import "time"

type Restaurant struct {
	ID     int64  `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"size:255" json:"name"`
	MenuID int64  `json:"menu_id"`
}

func (Restaurant) TableName() string { return "restaurants" }

type Customer struct {
	ID                      int64      `gorm:"primaryKey" json:"id"`
	FullName                string     `gorm:"size:255" json:"full_name"`
	Email                   string     `gorm:"size:255" json:"email"`
	Mobile                  string     `gorm:"size:20" json:"mobile"`
	BirthDate               *time.Time `json:"birth_date,omitempty"`
	IsEmailMarketingAllowed bool       `json:"is_email_marketing_allowed"`
	IsSmsMarketingAllowed   bool       `json:"is_sms_marketing_allowed"`
	Points                  int        `json:"points"`
	Status                  int        `json:"status"`
	CreationDate            *time.Time `json:"creation_date,omitempty"`
	OrderCount              int        `json:"order_count"`
	RestaurantID            int64      `gorm:"index:idx_customers_restaurant" json:"restaurant_id"`
}

func (Customer) TableName() string { return "customers" }

type CustomerAddress struct {
	ID           int64   `gorm:"primaryKey" json:"id"`
	CustomerID   int64   `gorm:"index" json:"customer_id"`
	AddressType  int     `json:"address_type"`
	Street1      string  `gorm:"size:255" json:"street1"`
	Street2      string  `gorm:"size:255" json:"street2"`
	CityTownName string  `gorm:"size:255" json:"city_town_name"`
	PostalCode   string  `gorm:"size:20" json:"postal_code"`
	Phone        string  `gorm:"size:20" json:"phone"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RestaurantID int64   `gorm:"index" json:"restaurant_id"`
}

func (CustomerAddress) TableName() string { return "customer_addresses" }

type Promotion struct {
	ID              int64   `gorm:"primaryKey" json:"id"`
	CompanyID       int64   `json:"company_id"`
	ExternalID      int64   `json:"external_id"`
	PromotionType   int     `json:"promotion_type"`
	BenefitType     int     `json:"benefit_type"`
	Name            string  `gorm:"size:255" json:"name"`
	Description     string  `gorm:"size:255" json:"description"`
	OncePerCustomer bool    `json:"once_per_customer"`
	OnlyFirstOrder  bool    `json:"only_first_order"`
	MinSubTotal     float64 `json:"min_sub_total"`
	DiscountType    int     `json:"discount_type"`
	DiscountAmount  float64 `json:"discount_amount"`
	CouponCode      string  `gorm:"size:255" json:"coupon_code"`
	RestaurantID    int64   `gorm:"index" json:"restaurant_id"`
}

func (Promotion) TableName() string { return "promotions" }

// Order method and delivery type codes as sent by the POS API.
const (
	OrderMethodDelivery = 1

	DeliveryTypeDelivery = 1
	DeliveryTypePickup   = 2
)

type Order struct {
	ID                 int64      `gorm:"primaryKey" json:"id"`
	RestaurantID       int64      `gorm:"index:idx_orders_restaurant_date,priority:1" json:"restaurant_id"`
	CustomerID         int64      `gorm:"index" json:"customer_id"`
	CustomerAddressID  *int64     `json:"customer_address_id,omitempty"`
	DeliveryType       int        `json:"delivery_type"`
	OrderMethod        int        `json:"order_method"`
	SubTotal           float64    `json:"sub_total"`
	DeliveryFee        float64    `json:"delivery_fee"`
	ServiceCharge      float64    `json:"service_charge"`
	Total              float64    `json:"total"`
	Status             int        `json:"status"`
	CreationDate       time.Time  `gorm:"index:idx_orders_restaurant_date,priority:2" json:"creation_date"`
	PaymentStatus      int        `json:"payment_status"`
	NumberOfOrders     int        `json:"number_of_orders"`
	Phone              string     `gorm:"size:15" json:"phone"`
	OrderDate          *time.Time `json:"order_date,omitempty"`
	PromotionID        *int64     `json:"promotion_id,omitempty"`
	LineItemDiscount   float64    `json:"line_item_discount"`
	Discount           float64    `json:"discount"`
	DeliveryOptionType *int       `json:"delivery_option_type,omitempty"`
	Tip                float64    `json:"tip"`
	UsedPoints         int        `json:"used_points"`
	TotalPaid          float64    `json:"total_paid"`
	TotalBalance       float64    `json:"total_balance"`

	Payments []Payment `gorm:"-" json:"payments,omitempty"`
}

func (Order) TableName() string { return "orders" }

type Payment struct {
	ID                int64   `gorm:"primaryKey" json:"id"`
	OrderID           int64   `gorm:"index" json:"order_id"`
	PaymentMethodID   int64   `json:"payment_method_id"`
	PaymentMethodType int     `json:"payment_method_type"`
	ExtraCharge       float64 `json:"extra_charge"`
	SubTotal          float64 `json:"sub_total"`
	Discount          float64 `json:"discount"`
	Tax               float64 `json:"tax"`
	Amount            float64 `json:"amount"`
	Status            int     `json:"status"`
	Tip               float64 `json:"tip"`
	PaymentMethodName string  `gorm:"size:255" json:"payment_method_name"`
	RestaurantID      int64   `gorm:"index" json:"restaurant_id"`
}

func (Payment) TableName() string { return "payments" }

// SyncCheckpoint is the last-synced-order marker per restaurant. The
// (LastOrderDate, LastOrderID) pair is monotonically non-decreasing under
// lexicographic order; the tracker never lets it regress.
type SyncCheckpoint struct {
	RestaurantID      int64     `gorm:"primaryKey" json:"restaurant_id"`
	RestaurantName    string    `gorm:"size:255" json:"restaurant_name"`
	LastOrderID       int64     `gorm:"not null" json:"last_order_id"`
	LastOrderDate     time.Time `gorm:"not null" json:"last_order_date"`
	LastSyncDate      time.Time `gorm:"not null" json:"last_sync_date"`
	TotalOrdersSynced int64     `json:"total_orders_synced"`
}

func (SyncCheckpoint) TableName() string { return "order_sync_tracker" }

// CustomerOrderStats is the aggregate of a customer's order history used to
// maintain the customer dimension.
type CustomerOrderStats struct {
	TotalOrders    int64
	TotalSpent     float64
	AvgOrderValue  float64
	FirstOrderDate *time.Time
	LastOrderDate  *time.Time
}
