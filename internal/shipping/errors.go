package shipping

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dukerupert/pointrelais/internal/validate"
)

// ============================================================================
// SHIPPING ERROR CODES
// ============================================================================
// These constants mirror domain error codes to avoid circular imports.
// The handler layer maps these to HTTP status codes.

const (
	codeInternal     = "internal"
	codeInvalid      = "invalid"
	codeUnauthorized = "unauthorized"
	codeNotImpl      = "not_implemented"
	codeUnavailable  = "unavailable"
)

// ============================================================================
// SHIPPING ERROR TYPE
// ============================================================================

// ShippingError represents a shipping-specific error with a code and message.
type ShippingError struct {
	Code    string
	Message string
}

func (e *ShippingError) Error() string {
	return e.Message
}

// ErrorCode returns the error code for HTTP status mapping.
func (e *ShippingError) ErrorCode() string {
	return e.Code
}

// ErrorMessage returns the user-facing message.
func (e *ShippingError) ErrorMessage() string {
	return e.Message
}

func newShippingError(code, message string) *ShippingError {
	return &ShippingError{Code: code, Message: message}
}

var (
	// ErrNotImplemented is returned when a provider does not support an operation.
	ErrNotImplemented = newShippingError(codeNotImpl, "Shipping method not implemented")

	// ErrMissingAPIKey is returned when the carrier credentials are missing.
	ErrMissingAPIKey = newShippingError(codeInternal, "Shipping provider API key is required")

	// ErrNilPayload is returned when a provider is handed no payload.
	ErrNilPayload = newShippingError(codeInvalid, "Shipping payload is required")

	// ErrNoRates is returned when the carrier offers no rate for a shipment.
	ErrNoRates = newShippingError(codeUnavailable, "No shipping rates available")

	// ErrInvalidOptions is returned when builder options are incomplete.
	ErrInvalidOptions = newShippingError(codeInternal, "Invalid shipping builder options")
)

// ErrInvalidAmount creates an error for invalid amount parsing.
func ErrInvalidAmount(amount string, err error) error {
	return &ShippingError{
		Code:    codeInvalid,
		Message: fmt.Sprintf("Invalid amount %q: %v", amount, err),
	}
}

// ============================================================================
// CARRIER ERRORS
// ============================================================================

// CarrierError is returned when the carrier API answers with a non-2xx status.
type CarrierError struct {
	Carrier    string
	StatusCode int
	Detail     string
}

func (e *CarrierError) Error() string {
	msg := fmt.Sprintf("%s API error (%d)", e.Carrier, e.StatusCode)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// ErrorCode maps the carrier status to an application error code.
func (e *CarrierError) ErrorCode() string {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return codeUnauthorized
	case http.StatusBadRequest:
		return codeInvalid
	}
	return codeUnavailable
}

// ErrorMessage returns the user-facing message.
func (e *CarrierError) ErrorMessage() string {
	if e.StatusCode == http.StatusUnauthorized {
		return fmt.Sprintf("%s authentication failed (401)", e.Carrier)
	}
	return e.Error()
}

// ============================================================================
// VALIDATION
// ============================================================================

// ValidationFailedError carries every field error found while building a payload,
// in a stable field order.
type ValidationFailedError struct {
	Errors []*validate.FieldError
}

func (e *ValidationFailedError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return "shipping payload validation failed: " + strings.Join(msgs, "; ")
}

// Fields returns the names of the rejected fields in report order.
func (e *ValidationFailedError) Fields() []string {
	fields := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		fields[i] = fe.Field
	}
	return fields
}
