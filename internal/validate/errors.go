package validate

import (
	"errors"
	"fmt"
)

// Kind classifies why a field was rejected.
type Kind string

const (
	KindRequired        Kind = "required"         // field missing or blank
	KindInvalidFormat   Kind = "invalid_format"   // fails a structural pattern
	KindPatternMismatch Kind = "pattern_mismatch" // fails a country-specific pattern
	KindLengthInvalid   Kind = "length_invalid"   // generic length fallback failed
)

// Sentinels matched by errors.Is against any *FieldError of the same kind.
var (
	ErrRequired        = errors.New("validate: required")
	ErrInvalidFormat   = errors.New("validate: invalid format")
	ErrPatternMismatch = errors.New("validate: pattern mismatch")
	ErrLengthInvalid   = errors.New("validate: length invalid")
)

// FieldError describes a single rejected field value.
// Validators leave Field empty; callers that know the field name fill it in.
type FieldError struct {
	Field   string
	Kind    Kind
	Value   string
	Message string
}

func (e *FieldError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Unwrap exposes the kind sentinel so errors.Is(err, ErrRequired) works.
func (e *FieldError) Unwrap() error {
	switch e.Kind {
	case KindRequired:
		return ErrRequired
	case KindInvalidFormat:
		return ErrInvalidFormat
	case KindPatternMismatch:
		return ErrPatternMismatch
	case KindLengthInvalid:
		return ErrLengthInvalid
	}
	return nil
}

// WithField returns a copy of the error attributed to field.
func (e *FieldError) WithField(field string) *FieldError {
	cp := *e
	cp.Field = field
	return &cp
}

func newFieldError(kind Kind, value, format string, args ...any) *FieldError {
	return &FieldError{
		Kind:    kind,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsFieldError extracts a *FieldError from err, attributing it to field.
// Errors that are not field errors are reported as InvalidFormat.
func AsFieldError(err error, field, value string) *FieldError {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.WithField(field)
	}
	return &FieldError{Field: field, Kind: KindInvalidFormat, Value: value, Message: err.Error()}
}
