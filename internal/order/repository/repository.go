package repository

import (
	"context"
	"errors"

	"github.com/Ahmedbennaya/fini-storefront/internal/order/domain"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrIllegalTransition means the order was not in the expected status
	// when a transition was attempted.
	ErrIllegalTransition = errors.New("illegal order status transition")
)

// OrderRepository mirrors the persistence contract the checkout sequence
// is written against: order creation and line creation are separate
// calls, so the sequence owns the compensating delete when line creation
// fails after the order row exists.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	CreateOrderLines(ctx context.Context, orderID uuid.UUID, lines []domain.OrderLine) error
	// DeleteOrder removes an order and any of its lines. Used only to
	// compensate a failed line write on a still-pending order.
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	SetPaymentIntent(ctx context.Context, orderID uuid.UUID, intentID string) error
	// MarkOrderPlaced flips a pending order to processing and appends the
	// order-placed outbox event in the same transaction.
	MarkOrderPlaced(ctx context.Context, orderID uuid.UUID) error
	TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to domain.Status) error
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
}

// EventSource is the outbox side of the repository, consumed by the
// publisher poller.
type EventSource interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OrderEvent, error)
	MarkEventProcessed(ctx context.Context, eventID uuid.UUID) error
}
