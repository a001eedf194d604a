package pos

import (
	"bytes"
	"strconv"

	"github.com/dineflow/ordersync/internal/order/domain"
)

// OrderSummary is one entry of the paginated order list, newest first.
type OrderSummary struct {
	ID           int64      `json:"ID"`
	CreationDate VendorTime `json:"CreationDate"`
	Total        float64    `json:"Total"`
	Status       int        `json:"Status"`
}

type listResponse struct {
	Data      []OrderSummary `json:"Data"`
	ErrorCode int            `json:"ErrorCode"`
	Message   string         `json:"Message"`
}

type detailResponse struct {
	Data      *OrderDetail `json:"Data"`
	ErrorCode int          `json:"ErrorCode"`
	Message   string       `json:"Message"`
}

// OrderDetail is the full order payload with its embedded entities.
type OrderDetail struct {
	ID                 int64      `json:"ID"`
	DeliveryType       int        `json:"DeliveryType"`
	OrderMethod        int        `json:"OrderMethod"`
	SubTotal           float64    `json:"SubTotal"`
	DeliveryFee        float64    `json:"DeliveryFee"`
	ServiceCharge      float64    `json:"ServiceCharge"`
	Total              float64    `json:"Total"`
	Status             int        `json:"Status"`
	CreationDate       VendorTime `json:"CreationDate"`
	PaymentStatus      int        `json:"PaymentStatus"`
	NumberOfOrders     int        `json:"NumberOfOrders"`
	Phone              string     `json:"Phone"`
	OrderDate          VendorTime `json:"OrderDate"`
	LineItemDiscount   float64    `json:"LineItemDiscount"`
	Discount           float64    `json:"Discount"`
	DeliveryOptionType *int       `json:"DeliveryOptionType"`
	Tip                float64    `json:"Tip"`
	UsedPoints         int        `json:"UsedPoints"`
	TotalPaid          float64    `json:"TotalPaid"`
	TotalBalance       float64    `json:"TotalBalance"`

	Restaurant      RestaurantPayload       `json:"Restaurant"`
	Customer        CustomerPayload         `json:"Customer"`
	CustomerAddress *CustomerAddressPayload `json:"CustomerAddress"`
	Promotion       *PromotionPayload       `json:"Promotion"`
	Payments        []PaymentPayload        `json:"Payments"`
}

type RestaurantPayload struct {
	ID     int64  `json:"ID"`
	Name   string `json:"Name"`
	MenuID int64  `json:"MenuID"`
}

type CustomerPayload struct {
	ID                      int64      `json:"ID"`
	FullName                string     `json:"FullName"`
	Email                   string     `json:"Email"`
	Mobile                  string     `json:"Mobile"`
	BirthDate               VendorTime `json:"BirthDate"`
	IsEmailMarketingAllowed bool       `json:"IsEmailMarketingAllowed"`
	IsSmsMarketingAllowed   bool       `json:"IsSmsMarketingAllowed"`
	Points                  int        `json:"Points"`
	Status                  int        `json:"Status"`
	CreationDate            VendorTime `json:"CreationDate"`
}

type CustomerAddressPayload struct {
	ID           int64   `json:"ID"`
	CustomerID   int64   `json:"CustomerID"`
	AddressType  int     `json:"AddressType"`
	Street1      string  `json:"Street1"`
	Street2      string  `json:"Street2"`
	CityTownName string  `json:"CityTownName"`
	PostalCode   string  `json:"PostalCode"`
	Phone        string  `json:"Phone"`
	Latitude     float64 `json:"Latitude"`
	Longitude    float64 `json:"Longitude"`
}

type PromotionPayload struct {
	ID              int64   `json:"ID"`
	CompanyID       int64   `json:"CompanyID"`
	ExternalID      FlexID  `json:"ExternalID"`
	PromotionType   int     `json:"PromotionType"`
	BenefitType     int     `json:"BenefitType"`
	Name            string  `json:"Name"`
	Description     string  `json:"Description"`
	OncePerCustomer bool    `json:"OncePerCustomer"`
	OnlyFirstOrder  bool    `json:"OnlyFirstOrder"`
	MinSubTotal     float64 `json:"MinSubTotal"`
	DiscountType    int     `json:"DiscountType"`
	DiscountAmount  float64 `json:"DiscountAmount"`
	CouponCode      string  `json:"CouponCode"`
}

type PaymentPayload struct {
	ID                int64   `json:"ID"`
	OrderID           int64   `json:"OrderID"`
	PaymentMethodID   int64   `json:"PaymentMethodID"`
	PaymentMethodType int     `json:"PaymentMethodType"`
	ExtraCharge       float64 `json:"ExtraCharge"`
	SubTotal          float64 `json:"SubTotal"`
	Discount          float64 `json:"Discount"`
	Tax               float64 `json:"Tax"`
	Amount            float64 `json:"Amount"`
	Status            int     `json:"Status"`
	Tip               float64 `json:"Tip"`
	PaymentMethodName string  `json:"PaymentMethodName"`
}

// FlexID tolerates the API sending an id as a number, a numeric string, or
// free text. Anything non-numeric decodes to zero.
type FlexID int64

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || len(data) == 0 {
		*f = 0
		return nil
	}
	s := string(data)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexID(n)
	return nil
}

// Restaurant maps the embedded restaurant payload onto the operational model.
func (d *OrderDetail) RestaurantModel() *domain.Restaurant {
	return &domain.Restaurant{
		ID:     d.Restaurant.ID,
		Name:   d.Restaurant.Name,
		MenuID: d.Restaurant.MenuID,
	}
}

// CustomerModel maps the embedded customer payload. The order count comes
// from the order payload, not the customer record.
func (d *OrderDetail) CustomerModel() *domain.Customer {
	return &domain.Customer{
		ID:                      d.Customer.ID,
		FullName:                d.Customer.FullName,
		Email:                   d.Customer.Email,
		Mobile:                  d.Customer.Mobile,
		BirthDate:               d.Customer.BirthDate.Ptr(),
		IsEmailMarketingAllowed: d.Customer.IsEmailMarketingAllowed,
		IsSmsMarketingAllowed:   d.Customer.IsSmsMarketingAllowed,
		Points:                  d.Customer.Points,
		Status:                  d.Customer.Status,
		CreationDate:            d.Customer.CreationDate.Ptr(),
		OrderCount:              d.NumberOfOrders,
		RestaurantID:            d.Restaurant.ID,
	}
}

func (d *OrderDetail) AddressModel() *domain.CustomerAddress {
	if d.CustomerAddress == nil {
		return nil
	}
	a := d.CustomerAddress
	return &domain.CustomerAddress{
		ID:           a.ID,
		CustomerID:   a.CustomerID,
		AddressType:  a.AddressType,
		Street1:      a.Street1,
		Street2:      a.Street2,
		CityTownName: a.CityTownName,
		PostalCode:   a.PostalCode,
		Phone:        a.Phone,
		Latitude:     a.Latitude,
		Longitude:    a.Longitude,
		RestaurantID: d.Restaurant.ID,
	}
}

func (d *OrderDetail) PromotionModel() *domain.Promotion {
	if d.Promotion == nil {
		return nil
	}
	p := d.Promotion
	return &domain.Promotion{
		ID:              p.ID,
		CompanyID:       p.CompanyID,
		ExternalID:      int64(p.ExternalID),
		PromotionType:   p.PromotionType,
		BenefitType:     p.BenefitType,
		Name:            p.Name,
		Description:     p.Description,
		OncePerCustomer: p.OncePerCustomer,
		OnlyFirstOrder:  p.OnlyFirstOrder,
		MinSubTotal:     p.MinSubTotal,
		DiscountType:    p.DiscountType,
		DiscountAmount:  p.DiscountAmount,
		CouponCode:      p.CouponCode,
		RestaurantID:    d.Restaurant.ID,
	}
}

func (d *OrderDetail) OrderModel() *domain.Order {
	o := &domain.Order{
		ID:                 d.ID,
		RestaurantID:       d.Restaurant.ID,
		CustomerID:         d.Customer.ID,
		DeliveryType:       d.DeliveryType,
		OrderMethod:        d.OrderMethod,
		SubTotal:           d.SubTotal,
		DeliveryFee:        d.DeliveryFee,
		ServiceCharge:      d.ServiceCharge,
		Total:              d.Total,
		Status:             d.Status,
		CreationDate:       d.CreationDate.Time,
		PaymentStatus:      d.PaymentStatus,
		NumberOfOrders:     d.NumberOfOrders,
		Phone:              d.Phone,
		OrderDate:          d.OrderDate.Ptr(),
		LineItemDiscount:   d.LineItemDiscount,
		Discount:           d.Discount,
		DeliveryOptionType: d.DeliveryOptionType,
		Tip:                d.Tip,
		UsedPoints:         d.UsedPoints,
		TotalPaid:          d.TotalPaid,
		TotalBalance:       d.TotalBalance,
	}
	if d.Promotion != nil {
		id := d.Promotion.ID
		o.PromotionID = &id
	}
	if d.OrderMethod == domain.OrderMethodDelivery && d.CustomerAddress != nil {
		id := d.CustomerAddress.ID
		o.CustomerAddressID = &id
	}
	return o
}

func (d *OrderDetail) PaymentModels() []domain.Payment {
	out := make([]domain.Payment, 0, len(d.Payments))
	for _, p := range d.Payments {
		out = append(out, domain.Payment{
			ID:                p.ID,
			OrderID:           d.ID,
			PaymentMethodID:   p.PaymentMethodID,
			PaymentMethodType: p.PaymentMethodType,
			ExtraCharge:       p.ExtraCharge,
			SubTotal:          p.SubTotal,
			Discount:          p.Discount,
			Tax:               p.Tax,
			Amount:            p.Amount,
			Status:            p.Status,
			Tip:               p.Tip,
			PaymentMethodName: p.PaymentMethodName,
			RestaurantID:      d.Restaurant.ID,
		})
	}
	return out
}
