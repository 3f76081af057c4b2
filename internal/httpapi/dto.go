package httpapi

import (
	"fmt"
	"strings"
	"time"

	cartdomain "github.com/Ahmedbennaya/fini-storefront/internal/cart/domain"
	checkout "github.com/Ahmedbennaya/fini-storefront/internal/checkout/service"
	orderdomain "github.com/Ahmedbennaya/fini-storefront/internal/order/domain"
)

type CartLineDTO struct {
	ProductID    int64   `json:"product_id"`
	Name         string  `json:"name"`
	UnitPrice    float64 `json:"unit_price"`
	ImageRef     string  `json:"image_ref"`
	Quantity     int     `json:"quantity"`
	StockCeiling int     `json:"stock_ceiling"`
}

type CartResponseDTO struct {
	Lines     []CartLineDTO `json:"lines"`
	ItemCount int           `json:"item_count"`
	Subtotal  float64       `json:"subtotal"`
	Notice    string        `json:"notice,omitempty"`
}

func toCartResponse(cart *cartdomain.Cart, notice string) CartResponseDTO {
	lines := make([]CartLineDTO, len(cart.Lines))
	for i, l := range cart.Lines {
		lines[i] = CartLineDTO{
			ProductID:    l.ProductID,
			Name:         l.Name,
			UnitPrice:    l.UnitPrice,
			ImageRef:     l.ImageRef,
			Quantity:     l.Quantity,
			StockCeiling: l.StockCeiling,
		}
	}
	return CartResponseDTO{
		Lines:     lines,
		ItemCount: cart.ItemCount(),
		Subtotal:  cart.Subtotal(),
		Notice:    notice,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type AddressDTO struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

func (a AddressDTO) toDomain() orderdomain.Address {
	return orderdomain.Address{
		FullName:   a.FullName,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

type CheckoutRequestDTO struct {
	ShippingAddress AddressDTO  `json:"shipping_address"`
	BillingAddress  *AddressDTO `json:"billing_address,omitempty"`
	ShippingMethod  string      `json:"shipping_method"`
	PaymentMethod   string      `json:"payment_method"`
}

func (r CheckoutRequestDTO) toDomain() *checkout.Request {
	req := &checkout.Request{
		ShippingAddress: r.ShippingAddress.toDomain(),
		ShippingMethod:  orderdomain.ShippingMethod(strings.ToUpper(r.ShippingMethod)),
		PaymentMethod:   orderdomain.PaymentMethod(strings.ToUpper(r.PaymentMethod)),
	}
	if r.BillingAddress != nil {
		billing := r.BillingAddress.toDomain()
		req.BillingAddress = &billing
	}
	return req
}

type CheckoutResponseDTO struct {
	OrderID         string  `json:"order_id"`
	Status          string  `json:"status"`
	Total           float64 `json:"total"`
	Currency        string  `json:"currency"`
	PaymentIntentID string  `json:"payment_intent_id,omitempty"`
	ClientSecret    string  `json:"client_secret,omitempty"`
}

func toCheckoutResponse(res *checkout.Result) CheckoutResponseDTO {
	return CheckoutResponseDTO{
		OrderID:         res.OrderID.String(),
		Status:          res.Status.String(),
		Total:           res.Total,
		Currency:        res.Currency,
		PaymentIntentID: res.PaymentIntentID,
		ClientSecret:    res.ClientSecret,
	}
}

type OrderLineDTO struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type OrderDTO struct {
	ID              string         `json:"id"`
	Status          string         `json:"status"`
	Total           float64        `json:"total"`
	Currency        string         `json:"currency"`
	ShippingMethod  string         `json:"shipping_method"`
	ShippingAddress AddressDTO     `json:"shipping_address"`
	BillingAddress  *AddressDTO    `json:"billing_address,omitempty"`
	Lines           []OrderLineDTO `json:"lines"`
	CreatedAt       time.Time      `json:"created_at"`
}

func toOrderDTO(order *orderdomain.Order) OrderDTO {
	lines := make([]OrderLineDTO, len(order.Lines))
	for i, l := range order.Lines {
		lines[i] = OrderLineDTO{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPriceAtPurchase,
		}
	}
	dto := OrderDTO{
		ID:              order.ID.String(),
		Status:          order.Status.String(),
		Total:           order.Total,
		Currency:        order.Currency,
		ShippingMethod:  string(order.ShippingMethod),
		ShippingAddress: toAddressDTO(order.ShippingAddress),
		Lines:           lines,
		CreatedAt:       order.CreatedAt,
	}
	if order.BillingAddress != nil {
		billing := toAddressDTO(*order.BillingAddress)
		dto.BillingAddress = &billing
	}
	return dto
}

func toAddressDTO(a orderdomain.Address) AddressDTO {
	return AddressDTO{
		FullName:   a.FullName,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

type ProductDTO struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	SalePrice   *float64 `json:"sale_price,omitempty"`
	Stock       int      `json:"stock"`
	ImageURL    string   `json:"image_url"`
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

func parseStatus(s string) (orderdomain.Status, error) {
	status := orderdomain.Status(strings.ToUpper(s))
	switch status {
	case orderdomain.StatusPending, orderdomain.StatusProcessing,
		orderdomain.StatusCompleted, orderdomain.StatusCancelled:
		return status, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}
