package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart                = errors.New("cart is empty")
	ErrDeliveryPartnerRequired  = errors.New("delivery partner required")
	ErrShippingInfoRequired     = errors.New("shipping info required")
	ErrCheckoutInProgress       = errors.New("checkout already in progress")
	ErrAuthenticationRequired   = errors.New("checkout requires an authenticated session")
	ErrPaymentInitiationFailure = errors.New("payment initiation failed")
)

// StockShortfallError is returned by the payment initiation when a line asks
// for more units than are available.
type StockShortfallError struct {
	Message   string
	Available int64
	Requested int64
}

func (e *StockShortfallError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (available %d, requested %d)", e.Message, e.Available, e.Requested)
	}
	return fmt.Sprintf("insufficient stock: available %d, requested %d", e.Available, e.Requested)
}
