package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	checkout "github.com/Ahmedbennaya/fini-storefront/internal/checkout/service"
	orderrepo "github.com/Ahmedbennaya/fini-storefront/internal/order/repository"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type CheckoutHandler struct {
	service checkout.CheckoutService
	timeout time.Duration
}

func NewCheckoutHandler(service checkout.CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		timeout: timeout,
	}
}

func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())

	var dto CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	result, err := h.service.PlaceOrder(ctx, userID, dto.toDomain())
	if err != nil {
		handleCheckoutError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCheckoutResponse(result))
}

func (h *CheckoutHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a valid UUID")
		return
	}

	result, err := h.service.ConfirmPayment(ctx, userID, orderID)
	if err != nil {
		handleCheckoutError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCheckoutResponse(result))
}

func handleCheckoutError(w http.ResponseWriter, err error) {
	var stockErr *checkout.StockChangedError
	var payErr *checkout.PaymentInitError

	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "cart_empty", "your cart is empty")
	case errors.Is(err, checkout.ErrCheckoutInFlight):
		respondError(w, http.StatusConflict, "checkout_in_progress", "a checkout is already in progress")
	case errors.Is(err, checkout.ErrInvalidAddress), errors.Is(err, checkout.ErrInvalidMethod):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.As(err, &stockErr):
		respondError(w, http.StatusConflict, "stock_changed", stockErr.Error())
	case errors.As(err, &payErr):
		respondError(w, http.StatusBadGateway, "payment_failed", payErr.Error())
	case errors.Is(err, orderrepo.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", "order not found")
	case errors.Is(err, orderrepo.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", "order is not in a confirmable state")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "checkout failed")
	}
}
