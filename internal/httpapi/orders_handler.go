package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	orderdomain "github.com/Ahmedbennaya/fini-storefront/internal/order/domain"
	orderrepo "github.com/Ahmedbennaya/fini-storefront/internal/order/repository"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// OrderDirectory is what the handler needs from the order repository.
type OrderDirectory interface {
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*orderdomain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*orderdomain.Order, error)
	TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to orderdomain.Status) error
}

type OrdersHandler struct {
	orders  OrderDirectory
	timeout time.Duration
}

func NewOrdersHandler(orders OrderDirectory, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())

	orders, err := h.orders.ListOrdersByUserID(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list orders")
		return
	}

	dtos := make([]OrderDTO, len(orders))
	for i, order := range orders {
		dtos[i] = toOrderDTO(order)
	}
	respondJSON(w, http.StatusOK, dtos)
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a valid UUID")
		return
	}

	order, err := h.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, orderrepo.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "order not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load order")
		return
	}

	// Orders are owner-scoped; leak nothing about other users' orders.
	if order.UserID != userID {
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}

	respondJSON(w, http.StatusOK, toOrderDTO(order))
}

// UpdateStatus is the admin back-office transition (completing or
// cancelling an order). The state machine is enforced here and again by
// the repository's guarded update.
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a valid UUID")
		return
	}

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	target, err := parseStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_status", err.Error())
		return
	}

	order, err := h.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, orderrepo.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "order not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load order")
		return
	}

	if !orderdomain.CanTransitionTo(order.Status, target) {
		respondError(w, http.StatusConflict, "illegal_transition",
			"cannot transition from "+order.Status.String()+" to "+target.String())
		return
	}

	if err := h.orders.TransitionStatus(ctx, orderID, order.Status, target); err != nil {
		if errors.Is(err, orderrepo.ErrIllegalTransition) {
			respondError(w, http.StatusConflict, "illegal_transition", "order status changed concurrently")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update order status")
		return
	}

	order.Status = target
	respondJSON(w, http.StatusOK, toOrderDTO(order))
}
