package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Ahmedbennaya/fini-storefront/internal/cart/store"
)

var (
	ErrEmptyCart = errors.New("cart is empty, nothing to checkout")
	// ErrCheckoutInFlight means this user already has a submission running.
	ErrCheckoutInFlight = errors.New("checkout already in progress")
	ErrInvalidAddress   = errors.New("invalid shipping address")
	ErrInvalidMethod    = errors.New("unknown shipping or payment method")
)

// StockChangedError aborts a submission when the pre-flight stock check
// had to adjust the cart. The adjusted cart is already persisted; the
// user re-reviews it and submits again.
type StockChangedError struct {
	Notices []store.Notice
}

func (e *StockChangedError) Error() string {
	msgs := make([]string, len(e.Notices))
	for i := range e.Notices {
		msgs[i] = e.Notices[i].Message()
	}
	return "stock changed since items were added: " + strings.Join(msgs, "; ")
}

// PaymentInitError wraps a gateway failure after the order row exists.
// The order stays pending and the cart stays intact.
type PaymentInitError struct {
	OrderID string
	Err     error
}

func (e *PaymentInitError) Error() string {
	return fmt.Sprintf("payment initiation failed for order %s: %v", e.OrderID, e.Err)
}

func (e *PaymentInitError) Unwrap() error {
	return e.Err
}
