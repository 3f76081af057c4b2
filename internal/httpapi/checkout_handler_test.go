package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	checkout "github.com/Ahmedbennaya/fini-storefront/internal/checkout/service"
	orderdomain "github.com/Ahmedbennaya/fini-storefront/internal/order/domain"
	orderrepo "github.com/Ahmedbennaya/fini-storefront/internal/order/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutServiceMock struct {
	result *checkout.Result
	err    error

	gotUserID string
	gotReq    *checkout.Request
}

func (m *checkoutServiceMock) PlaceOrder(_ context.Context, userID string, req *checkout.Request) (*checkout.Result, error) {
	m.gotUserID = userID
	m.gotReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *checkoutServiceMock) ConfirmPayment(_ context.Context, userID string, _ uuid.UUID) (*checkout.Result, error) {
	m.gotUserID = userID
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func validCheckoutBody() []byte {
	body, _ := json.Marshal(CheckoutRequestDTO{
		ShippingAddress: AddressDTO{
			FullName:   "Amina Ben Salah",
			Line1:      "12 Avenue Habib Bourguiba",
			City:       "Tunis",
			PostalCode: "1001",
			Country:    "TN",
		},
		ShippingMethod: "standard",
		PaymentMethod:  "cash_on_delivery",
	})
	return body
}

func TestPlaceOrder_Success(t *testing.T) {
	orderID := uuid.New()
	mock := &checkoutServiceMock{result: &checkout.Result{
		OrderID:  orderID,
		Status:   orderdomain.StatusProcessing,
		Total:    32.0,
		Currency: "TND",
	}}
	handler := NewCheckoutHandler(mock, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.PlaceOrder(recorder, authedRequest("POST", "/api/v1/checkout", validCheckoutBody()))

	require.Equal(t, http.StatusCreated, recorder.Code)
	var resp CheckoutResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, orderID.String(), resp.OrderID)
	assert.Equal(t, "PROCESSING", resp.Status)
	assert.Equal(t, 32.0, resp.Total)
	assert.Empty(t, resp.PaymentIntentID)

	// Method strings are normalised before hitting the service.
	assert.Equal(t, "user123", mock.gotUserID)
	assert.Equal(t, orderdomain.ShippingStandard, mock.gotReq.ShippingMethod)
	assert.Equal(t, orderdomain.PaymentCashOnDelivery, mock.gotReq.PaymentMethod)
}

func TestPlaceOrder_CardReturnsClientSecret(t *testing.T) {
	mock := &checkoutServiceMock{result: &checkout.Result{
		OrderID:         uuid.New(),
		Status:          orderdomain.StatusPending,
		Total:           40.0,
		Currency:        "TND",
		PaymentIntentID: "pi_abc",
		ClientSecret:    "secret_abc",
	}}
	handler := NewCheckoutHandler(mock, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.PlaceOrder(recorder, authedRequest("POST", "/api/v1/checkout", validCheckoutBody()))

	require.Equal(t, http.StatusCreated, recorder.Code)
	var resp CheckoutResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, "pi_abc", resp.PaymentIntentID)
	assert.Equal(t, "secret_abc", resp.ClientSecret)
}

func TestPlaceOrder_InvalidJSON(t *testing.T) {
	handler := NewCheckoutHandler(&checkoutServiceMock{}, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.PlaceOrder(recorder, authedRequest("POST", "/api/v1/checkout", []byte("{not json")))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestPlaceOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"empty cart", checkout.ErrEmptyCart, http.StatusBadRequest, "cart_empty"},
		{"in flight", checkout.ErrCheckoutInFlight, http.StatusConflict, "checkout_in_progress"},
		{"bad address", checkout.ErrInvalidAddress, http.StatusBadRequest, "invalid_request"},
		{"bad method", checkout.ErrInvalidMethod, http.StatusBadRequest, "invalid_request"},
		{"stock changed", &checkout.StockChangedError{}, http.StatusConflict, "stock_changed"},
		{"payment failed", &checkout.PaymentInitError{OrderID: "o1", Err: errors.New("declined")}, http.StatusBadGateway, "payment_failed"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewCheckoutHandler(&checkoutServiceMock{err: tt.err}, 5*time.Second)
			recorder := httptest.NewRecorder()

			handler.PlaceOrder(recorder, authedRequest("POST", "/api/v1/checkout", validCheckoutBody()))

			assert.Equal(t, tt.wantStatus, recorder.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestConfirmPayment_Success(t *testing.T) {
	orderID := uuid.New()
	mock := &checkoutServiceMock{result: &checkout.Result{
		OrderID:         orderID,
		Status:          orderdomain.StatusProcessing,
		Total:           40.0,
		Currency:        "TND",
		PaymentIntentID: "pi_abc",
	}}
	handler := NewCheckoutHandler(mock, 5*time.Second)
	recorder := httptest.NewRecorder()

	req := withURLParam(
		authedRequest("POST", "/api/v1/checkout/"+orderID.String()+"/confirm", nil),
		"order_id", orderID.String())
	handler.ConfirmPayment(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp CheckoutResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "PROCESSING", resp.Status)
}

func TestConfirmPayment_BadOrderID(t *testing.T) {
	handler := NewCheckoutHandler(&checkoutServiceMock{}, 5*time.Second)
	recorder := httptest.NewRecorder()

	req := withURLParam(
		authedRequest("POST", "/api/v1/checkout/not-a-uuid/confirm", nil),
		"order_id", "not-a-uuid")
	handler.ConfirmPayment(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestConfirmPayment_NotFound(t *testing.T) {
	handler := NewCheckoutHandler(&checkoutServiceMock{err: orderrepo.ErrOrderNotFound}, 5*time.Second)
	recorder := httptest.NewRecorder()

	orderID := uuid.New()
	req := withURLParam(
		authedRequest("POST", "/api/v1/checkout/"+orderID.String()+"/confirm", nil),
		"order_id", orderID.String())
	handler.ConfirmPayment(recorder, req)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
