package domain

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	// StatusPending is set at creation, before payment is confirmed.
	StatusPending Status = "PENDING"
	// StatusProcessing means payment is confirmed (or not needed) and the
	// order is being prepared.
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) String() string {
	return string(s)
}

// CanTransitionTo encodes the order lifecycle. Completed and cancelled
// are terminal. Completion requires the order to have been processing.
func CanTransitionTo(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusCancelled
	case StatusProcessing:
		return to == StatusCompleted || to == StatusCancelled
	default:
		return false
	}
}

type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "STANDARD"
	ShippingExpress  ShippingMethod = "EXPRESS"
)

type PaymentMethod string

const (
	PaymentCard           PaymentMethod = "CARD"
	PaymentCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

type Address struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

// OrderLine snapshots the unit price at purchase time so historical
// orders stay accurate when catalog prices move. Immutable after creation.
type OrderLine struct {
	OrderID             uuid.UUID `json:"order_id"`
	ProductID           int64     `json:"product_id"`
	Name                string    `json:"name"`
	Quantity            int       `json:"quantity"`
	UnitPriceAtPurchase float64   `json:"unit_price_at_purchase"`
}

type Order struct {
	ID              uuid.UUID
	UserID          string
	Status          Status
	Total           float64
	Currency        string
	ShippingMethod  ShippingMethod
	ShippingAddress Address
	BillingAddress  *Address
	PaymentIntentID *string
	Lines           []OrderLine
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderEvent is an outbox row: a fact about an order waiting to be
// published to the message broker.
type OrderEvent struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Payload   []byte
	Processed bool
	CreatedAt time.Time
}
