package service

import (
	"context"
	"sync"

	cartdomain "github.com/Ahmedbennaya/fini-storefront/internal/cart/domain"
	"github.com/Ahmedbennaya/fini-storefront/internal/cart/store"
	"github.com/Ahmedbennaya/fini-storefront/internal/order/domain"
	"github.com/Ahmedbennaya/fini-storefront/internal/order/repository"
	"github.com/Ahmedbennaya/fini-storefront/internal/payment"
	"github.com/google/uuid"
)

// mockOrderRepo implements repository.OrderRepository, recording every
// write so tests can assert on the exact sequence of calls.
type mockOrderRepo struct {
	m sync.Mutex

	CreateOrderErr   error
	CreateLinesErr   error
	DeleteOrderErr   error
	SetIntentErr     error
	MarkPlacedErr    error
	TransitionErr    error
	GetOrderResponse *domain.Order
	GetOrderErr      error

	CreatedOrder   *domain.Order
	CreatedLines   []domain.OrderLine
	DeletedOrderID *uuid.UUID
	IntentOrderID  *uuid.UUID
	IntentID       string
	PlacedOrderID  *uuid.UUID

	CreateOrderCalls int
	CreateLinesCalls int
}

func (m *mockOrderRepo) CreateOrder(_ context.Context, order *domain.Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.CreateOrderCalls++
	if m.CreateOrderErr != nil {
		return m.CreateOrderErr
	}
	m.CreatedOrder = order
	return nil
}

func (m *mockOrderRepo) CreateOrderLines(_ context.Context, _ uuid.UUID, lines []domain.OrderLine) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.CreateLinesCalls++
	if m.CreateLinesErr != nil {
		return m.CreateLinesErr
	}
	m.CreatedLines = lines
	return nil
}

func (m *mockOrderRepo) DeleteOrder(_ context.Context, orderID uuid.UUID) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.DeleteOrderErr != nil {
		return m.DeleteOrderErr
	}
	m.DeletedOrderID = &orderID
	return nil
}

func (m *mockOrderRepo) SetPaymentIntent(_ context.Context, orderID uuid.UUID, intentID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.SetIntentErr != nil {
		return m.SetIntentErr
	}
	m.IntentOrderID = &orderID
	m.IntentID = intentID
	return nil
}

func (m *mockOrderRepo) MarkOrderPlaced(_ context.Context, orderID uuid.UUID) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.MarkPlacedErr != nil {
		return m.MarkPlacedErr
	}
	m.PlacedOrderID = &orderID
	if m.CreatedOrder != nil && m.CreatedOrder.ID == orderID {
		m.CreatedOrder.Status = domain.StatusProcessing
	}
	return nil
}

func (m *mockOrderRepo) TransitionStatus(_ context.Context, _ uuid.UUID, _, _ domain.Status) error {
	return m.TransitionErr
}

func (m *mockOrderRepo) GetOrderByID(_ context.Context, _ uuid.UUID) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.GetOrderErr != nil {
		return nil, m.GetOrderErr
	}
	if m.GetOrderResponse != nil {
		return m.GetOrderResponse, nil
	}
	if m.CreatedOrder != nil {
		return m.CreatedOrder, nil
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepo) ListOrdersByUserID(_ context.Context, _ string) ([]*domain.Order, error) {
	return nil, nil
}

// mockCartStore serves a fixed cart and records reconcile/clear calls.
type mockCartStore struct {
	m sync.Mutex

	Cart             *cartdomain.Cart
	GetErr           error
	ReconcileNotices []store.Notice
	ReconcileChanged bool
	ReconcileErr     error
	ClearErr         error

	Cleared        bool
	ReconcileCalls int

	// ReconcileHook, when set, runs inside ReconcileStock. Used to stage
	// cart adjustments.
	ReconcileHook func(c *cartdomain.Cart)

	// GetHook, when set, runs inside Get. Used to race a second
	// submission against an in-flight one.
	GetHook func()
}

func (m *mockCartStore) Get(_ context.Context, _ string) (*cartdomain.Cart, error) {
	if m.GetHook != nil {
		m.GetHook()
	}
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Cart, nil
}

func (m *mockCartStore) ReconcileStock(_ context.Context, _ string) (*cartdomain.Cart, []store.Notice, bool, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.ReconcileCalls++
	if m.ReconcileErr != nil {
		return nil, nil, false, m.ReconcileErr
	}
	if m.ReconcileHook != nil {
		m.ReconcileHook(m.Cart)
	}
	return m.Cart, m.ReconcileNotices, m.ReconcileChanged, nil
}

func (m *mockCartStore) Clear(_ context.Context, _ string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.Cleared = true
	m.Cart = &cartdomain.Cart{UserID: m.Cart.UserID}
	return nil
}

type mockAddressRepo struct {
	UpsertErr    error
	SavedUserID  string
	SavedAddress *domain.Address
	UpsertCalled bool
}

func (m *mockAddressRepo) UpsertDefaultAddress(_ context.Context, userID string, address domain.Address) error {
	m.UpsertCalled = true
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.SavedUserID = userID
	m.SavedAddress = &address
	return nil
}

func (m *mockAddressRepo) GetDefaultAddress(_ context.Context, _ string) (*domain.Address, error) {
	return m.SavedAddress, nil
}

type mockGateway struct {
	Intent      *payment.Intent
	Err         error
	CreateCalls int
}

func (m *mockGateway) CreateIntent(_ context.Context, amount float64, currency string) (*payment.Intent, error) {
	m.CreateCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	intent := *m.Intent
	intent.Amount = amount
	intent.Currency = currency
	return &intent, nil
}
