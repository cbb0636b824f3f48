package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukerupert/pointrelais/internal/validate"
)

const genericMessage = "An internal error occurred. Please try again later."

func TestError_Error(t *testing.T) {
	carrierDown := errors.New("sendcloud: 503 service unavailable")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"message only", &Error{Code: EINVALID, Message: "unknown product"}, "unknown product"},
		{"op and message", &Error{Code: EINVALID, Op: "checkout.validate", Message: "unknown product"}, "checkout.validate: unknown product"},
		{"op message and cause", &Error{Code: EUNAVAILABLE, Op: "fulfillment.process", Message: "carrier rejected the parcel", Err: carrierDown},
			"fulfillment.process: carrier rejected the parcel: sendcloud: 503 service unavailable"},
		{"cause without op", &Error{Code: EUNAVAILABLE, Message: "carrier rejected the parcel", Err: carrierDown},
			"carrier rejected the parcel: sendcloud: 503 service unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorAccessors(t *testing.T) {
	wrapped := fmt.Errorf("webhook: %w", &Error{Code: ENOTFOUND, Op: "checkout.details", Message: "Checkout session not found"})
	internal := Internal(errors.New("json: unsupported value"), "checkout.create", "failed to encode metadata")

	tests := []struct {
		name    string
		err     error
		code    string
		message string
		op      string
	}{
		{"nil", nil, "", "", ""},
		{"wrapped domain error", wrapped, ENOTFOUND, "Checkout session not found", "checkout.details"},
		{"internal hides message", internal, EINTERNAL, genericMessage, "checkout.create"},
		{"plain error", errors.New("stripe: connection reset"), EINTERNAL, genericMessage, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.code {
				t.Errorf("ErrorCode() = %q, want %q", got, tt.code)
			}
			if got := ErrorMessage(tt.err); got != tt.message {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.message)
			}
			if got := ErrorOp(tt.err); got != tt.op {
				t.Errorf("ErrorOp() = %q, want %q", got, tt.op)
			}
		})
	}
}

func TestErrorf(t *testing.T) {
	err := Errorf(EINVALID, "checkout.validate", "unknown product: %s", "BG-99")

	var de *Error
	if !errors.As(err, &de) {
		t.Fatal("Errorf should return *Error")
	}
	if de.Code != EINVALID || de.Op != "checkout.validate" || de.Message != "unknown product: BG-99" {
		t.Errorf("got %+v", de)
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("stripe: card_declined")

	err := WrapError(cause, EPAYMENT, "checkout.create", "Card was declined")
	if ErrorCode(err) != EPAYMENT {
		t.Errorf("code = %q, want %q", ErrorCode(err), EPAYMENT)
	}
	if !errors.Is(err, cause) {
		t.Error("WrapError should keep the cause reachable")
	}

	if err := WrapError(nil, EPAYMENT, "checkout.create", "Card was declined"); err != nil {
		t.Errorf("WrapError(nil) = %v, want nil", err)
	}
}

func TestUnavailable(t *testing.T) {
	cause := errors.New("carrier timeout")
	err := Unavailable(cause, "fulfillment.process", "carrier rejected the parcel")

	if ErrorCode(err) != EUNAVAILABLE {
		t.Errorf("code = %q, want %q", ErrorCode(err), EUNAVAILABLE)
	}
	if ErrorMessage(err) != "carrier rejected the parcel" {
		t.Errorf("message = %q", ErrorMessage(err))
	}
	if !errors.Is(err, cause) {
		t.Error("Unavailable should keep the cause reachable")
	}
}

func TestFromFieldErrors(t *testing.T) {
	if err := FromFieldErrors("fulfillment.build", nil); err != nil {
		t.Errorf("FromFieldErrors(nil) = %v, want nil", err)
	}

	err := FromFieldErrors("fulfillment.build", []*validate.FieldError{
		{Field: "postal_code", Kind: validate.KindPatternMismatch, Message: "postal code invalid"},
		{Field: "email", Kind: validate.KindInvalidFormat, Message: "invalid email format"},
	})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Fields) != 2 {
		t.Fatalf("fields count = %d, want 2", len(ve.Fields))
	}
	if ve.Fields[0].Field != "postal_code" || ve.Fields[0].Kind != "pattern_mismatch" {
		t.Errorf("fields[0] = %+v", ve.Fields[0])
	}
	if ve.Fields[1].Field != "email" {
		t.Errorf("fields[1] = %+v", ve.Fields[1])
	}
	if want := "fulfillment.build: validation failed for 2 fields"; ve.Error() != want {
		t.Errorf("Error() = %q, want %q", ve.Error(), want)
	}
	if !IsValidationError(fmt.Errorf("webhook: %w", err)) {
		t.Error("IsValidationError should see through wrapping")
	}
	if IsValidationError(Internal(nil, "x", "y")) {
		t.Error("a domain error is not a validation error")
	}
}

func TestFromFieldErrors_SingleField(t *testing.T) {
	err := FromFieldErrors("checkout.validate", []*validate.FieldError{
		{Field: "to_service_point", Kind: validate.KindRequired, Message: "pickup point is required"},
	})

	if want := "checkout.validate: to_service_point: pickup point is required"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestPreDefinedErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"ErrPaymentNotSucceeded", ErrPaymentNotSucceeded, EPAYMENT},
		{"ErrSessionNotPaid", ErrSessionNotPaid, EPAYMENT},
		{"ErrMissingPaymentIntentID", ErrMissingPaymentIntentID, EINVALID},
		{"ErrMissingSessionID", ErrMissingSessionID, EINVALID},
		{"ErrMetadataTooLarge", ErrMetadataTooLarge, EINVALID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ErrorCode(tt.err) != tt.code {
				t.Errorf("%s code = %q, want %q", tt.name, ErrorCode(tt.err), tt.code)
			}
		})
	}
}
