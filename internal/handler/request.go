package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dukerupert/pointrelais/internal/domain"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 64 << 10

// DecodeJSON reads a single JSON document from the request body into v.
// Malformed or oversized bodies become EINVALID errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	const op = "handler.decode"

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return domain.Errorf(domain.EINVALID, op, "Request body is empty")
		case errors.As(err, &maxErr):
			return domain.Errorf(domain.EINVALID, op, "Request body exceeds %d bytes", maxErr.Limit)
		case errors.As(err, &syntaxErr):
			return domain.Errorf(domain.EINVALID, op, "Malformed JSON at offset %d", syntaxErr.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return domain.Errorf(domain.EINVALID, op, "Malformed JSON: unexpected end of body")
		case errors.As(err, &typeErr):
			return domain.Errorf(domain.EINVALID, op, "Invalid value for field %q", typeErr.Field)
		default:
			return domain.WrapError(err, domain.EINVALID, op, fmt.Sprintf("Invalid request body: %v", err))
		}
	}

	if dec.More() {
		return domain.Errorf(domain.EINVALID, op, "Request body must contain a single JSON object")
	}
	return nil
}
