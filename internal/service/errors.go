package service

import (
	"errors"
	"fmt"

	"github.com/dukerupert/pointrelais/internal/billing"
	"github.com/dukerupert/pointrelais/internal/domain"
)

// Checkout errors - use domain.EINVALID
var (
	ErrAmountTooSmall = domain.Errorf(domain.EINVALID, "", "Order total is below the minimum card payment")
	ErrInvalidOrigin  = domain.Errorf(domain.EINVALID, "", "Return URL origin is not allowed")
)

// paymentError translates a billing provider failure for op. Stripe API
// errors keep their own code so the handler can map card declines to 402.
func paymentError(op string, err error) error {
	var se *billing.StripeError
	switch {
	case errors.Is(err, billing.ErrAmountTooSmall):
		return ErrAmountTooSmall
	case errors.Is(err, billing.ErrPaymentIntentNotFound):
		return domain.WrapError(err, domain.ENOTFOUND, op, "Payment not found")
	case errors.Is(err, billing.ErrCheckoutSessionNotFound):
		return domain.WrapError(err, domain.ENOTFOUND, op, "Checkout session not found")
	case errors.As(err, &se):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return domain.Unavailable(err, op, "Payment service is unavailable")
	}
}
