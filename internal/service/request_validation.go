package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dukerupert/pointrelais/internal/domain"
	"github.com/dukerupert/pointrelais/internal/validate"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// newRequestValidator returns a validator that reports JSON field names and
// compares decimal amounts numerically.
func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	return v
}

// validateRequest runs the struct tags of req and converts failures into a
// *domain.ValidationError listing every rejected field.
func validateRequest(v *validator.Validate, op string, req interface{}) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Internal(err, op, "failed to validate request")
	}

	fieldErrs := make([]*validate.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fieldErrs = append(fieldErrs, &validate.FieldError{
			Field:   fieldPath(fe.Namespace()),
			Kind:    tagKind(fe.Tag()),
			Value:   fmt.Sprint(fe.Value()),
			Message: tagMessage(fe),
		})
	}
	return domain.FromFieldErrors(op, fieldErrs)
}

// fieldPath drops the root struct name: "CheckoutRequest.customer.email"
// becomes "customer.email".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func tagKind(tag string) validate.Kind {
	switch tag {
	case "required":
		return validate.KindRequired
	case "min", "max", "len":
		return validate.KindLengthInvalid
	default:
		return validate.KindInvalidFormat
	}
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "alpha":
		return "must contain letters only"
	default:
		return fmt.Sprintf("failed the '%s' rule", fe.Tag())
	}
}
