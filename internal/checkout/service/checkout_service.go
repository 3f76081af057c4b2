// Package service drives the order submission sequence: cart validation,
// address persistence, order and line creation, and the payment branch.
// Each network step completes before the next starts; there are no
// automatic retries, a failed submission leaves the cart intact so the
// user can simply try again.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cartdomain "github.com/Ahmedbennaya/fini-storefront/internal/cart/domain"
	"github.com/Ahmedbennaya/fini-storefront/internal/cart/store"
	"github.com/Ahmedbennaya/fini-storefront/internal/order/domain"
	"github.com/Ahmedbennaya/fini-storefront/internal/order/repository"
	"github.com/Ahmedbennaya/fini-storefront/internal/payment"
	"github.com/Ahmedbennaya/fini-storefront/internal/profile"
	"github.com/google/uuid"
)

const (
	currency = "TND"

	standardShippingFee   = 7.0
	expressShippingFee    = 15.0
	freeShippingThreshold = 300.0
)

// CartStore is the slice of the cart store checkout needs.
type CartStore interface {
	Get(ctx context.Context, userID string) (*cartdomain.Cart, error)
	ReconcileStock(ctx context.Context, userID string) (*cartdomain.Cart, []store.Notice, bool, error)
	Clear(ctx context.Context, userID string) error
}

type Request struct {
	ShippingAddress domain.Address
	BillingAddress  *domain.Address
	ShippingMethod  domain.ShippingMethod
	PaymentMethod   domain.PaymentMethod
}

type Result struct {
	OrderID         uuid.UUID
	Status          domain.Status
	Total           float64
	Currency        string
	PaymentIntentID string // empty for cash on delivery
	ClientSecret    string // handed to the provider-hosted payment flow
}

type CheckoutService interface {
	PlaceOrder(ctx context.Context, userID string, req *Request) (*Result, error)
	ConfirmPayment(ctx context.Context, userID string, orderID uuid.UUID) (*Result, error)
}

type CheckoutServiceImpl struct {
	orders    repository.OrderRepository
	carts     CartStore
	addresses profile.AddressRepository
	gateway   payment.Gateway

	inFlight sync.Map // userID -> struct{}, the double-submit guard
}

func NewCheckoutService(
	orders repository.OrderRepository,
	carts CartStore,
	addresses profile.AddressRepository,
	gateway payment.Gateway,
) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		orders:    orders,
		carts:     carts,
		addresses: addresses,
		gateway:   gateway,
	}
}

// PlaceOrder runs the submission sequence for one user interaction. At
// most one submission per user is in flight at a time; a second call
// while the first is running fails with ErrCheckoutInFlight.
func (s *CheckoutServiceImpl) PlaceOrder(ctx context.Context, userID string, req *Request) (*Result, error) {
	if _, loaded := s.inFlight.LoadOrStore(userID, struct{}{}); loaded {
		return nil, ErrCheckoutInFlight
	}
	defer s.inFlight.Delete(userID)

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	// Re-check live stock before writing anything. Add-time stock
	// snapshots can be stale; if the cart had to be adjusted the user
	// re-reviews it instead of us silently ordering fewer items.
	cart, notices, changed, err := s.carts.ReconcileStock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-validate stock: %w", err)
	}
	if changed {
		return nil, &StockChangedError{Notices: notices}
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	// Address persistence is a convenience, not a correctness
	// requirement: a failure is logged and the sequence continues.
	if err := s.addresses.UpsertDefaultAddress(ctx, userID, req.ShippingAddress); err != nil {
		slog.WarnContext(ctx, "failed to save default address", "user_id", userID, "error", err)
	}

	total := cart.Subtotal() + shippingFee(req.ShippingMethod, cart.Subtotal())
	order := &domain.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          domain.StatusPending,
		Total:           total,
		Currency:        currency,
		ShippingMethod:  req.ShippingMethod,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	lines := make([]domain.OrderLine, len(cart.Lines))
	for i, cartLine := range cart.Lines {
		lines[i] = domain.OrderLine{
			OrderID:             order.ID,
			ProductID:           cartLine.ProductID,
			Name:                cartLine.Name,
			Quantity:            cartLine.Quantity,
			UnitPriceAtPurchase: cartLine.UnitPrice,
		}
	}

	if err := s.orders.CreateOrderLines(ctx, order.ID, lines); err != nil {
		// Compensate: a pending order with no lines must not linger.
		if delErr := s.orders.DeleteOrder(ctx, order.ID); delErr != nil {
			slog.ErrorContext(ctx, "failed to compensate orphaned order",
				"order_id", order.ID, "error", delErr)
		}
		return nil, fmt.Errorf("failed to create order lines: %w", err)
	}

	switch req.PaymentMethod {
	case domain.PaymentCashOnDelivery:
		return s.placeDeferred(ctx, userID, order, total)
	default:
		return s.initOnlinePayment(ctx, order, total)
	}
}

// placeDeferred handles payment methods with no online handshake: the
// order goes straight to processing and the cart is cleared.
func (s *CheckoutServiceImpl) placeDeferred(ctx context.Context, userID string, order *domain.Order, total float64) (*Result, error) {
	if err := s.orders.MarkOrderPlaced(ctx, order.ID); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	s.clearCart(ctx, userID)
	return &Result{
		OrderID:  order.ID,
		Status:   domain.StatusProcessing,
		Total:    total,
		Currency: currency,
	}, nil
}

// initOnlinePayment asks the gateway for a payment intent and leaves the
// order pending until ConfirmPayment. The cart survives so a declined
// or abandoned payment loses nothing.
func (s *CheckoutServiceImpl) initOnlinePayment(ctx context.Context, order *domain.Order, total float64) (*Result, error) {
	intent, err := s.gateway.CreateIntent(ctx, total, currency)
	if err != nil {
		return nil, &PaymentInitError{OrderID: order.ID.String(), Err: err}
	}

	if err := s.orders.SetPaymentIntent(ctx, order.ID, intent.ID); err != nil {
		return nil, fmt.Errorf("failed to record payment intent: %w", err)
	}

	return &Result{
		OrderID:         order.ID,
		Status:          domain.StatusPending,
		Total:           total,
		Currency:        currency,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
	}, nil
}

// ConfirmPayment is the gateway success callback: the pending order
// moves to processing and the cart is finally cleared.
func (s *CheckoutServiceImpl) ConfirmPayment(ctx context.Context, userID string, orderID uuid.UUID) (*Result, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	if order.PaymentIntentID == nil {
		return nil, fmt.Errorf("order %s has no payment intent to confirm", orderID)
	}

	if err := s.orders.MarkOrderPlaced(ctx, orderID); err != nil {
		return nil, fmt.Errorf("failed to confirm order: %w", err)
	}
	s.clearCart(ctx, userID)

	return &Result{
		OrderID:         order.ID,
		Status:          domain.StatusProcessing,
		Total:           order.Total,
		Currency:        order.Currency,
		PaymentIntentID: *order.PaymentIntentID,
	}, nil
}

func (s *CheckoutServiceImpl) clearCart(ctx context.Context, userID string) {
	// The order is already durable at this point, so a failed cart clear
	// only risks the user seeing stale cart contents.
	if err := s.carts.Clear(ctx, userID); err != nil {
		slog.ErrorContext(ctx, "failed to clear cart after order placement", "user_id", userID, "error", err)
	}
}

func shippingFee(method domain.ShippingMethod, subtotal float64) float64 {
	if method == domain.ShippingExpress {
		return expressShippingFee
	}
	if subtotal >= freeShippingThreshold {
		return 0
	}
	return standardShippingFee
}

func validateRequest(req *Request) error {
	switch req.ShippingMethod {
	case domain.ShippingStandard, domain.ShippingExpress:
	default:
		return fmt.Errorf("%w: shipping method %q", ErrInvalidMethod, req.ShippingMethod)
	}
	switch req.PaymentMethod {
	case domain.PaymentCard, domain.PaymentCashOnDelivery:
	default:
		return fmt.Errorf("%w: payment method %q", ErrInvalidMethod, req.PaymentMethod)
	}
	if err := validateAddress(&req.ShippingAddress); err != nil {
		return err
	}
	if req.BillingAddress != nil {
		return validateAddress(req.BillingAddress)
	}
	return nil
}

func validateAddress(a *domain.Address) error {
	if a.FullName == "" || a.Line1 == "" || a.City == "" || a.PostalCode == "" || a.Country == "" {
		return ErrInvalidAddress
	}
	return nil
}
