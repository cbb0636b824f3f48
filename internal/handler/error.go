package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/pointrelais/internal/domain"
)

// coded is implemented by package-local error types (shipping, billing) that
// carry a domain error code without importing the domain package.
type coded interface {
	ErrorCode() string
	ErrorMessage() string
}

// errorBody is the JSON error envelope: {"error": {...}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Fields  []domain.FieldViolation `json:"fields,omitempty"`
}

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EGONE:
		return http.StatusGone
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	case domain.ENOTIMPL:
		return http.StatusNotImplemented
	case domain.EUNAVAILABLE:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse writes err to the client. JSON clients get the error envelope,
// everyone else plain text. Internal error details are never exposed.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsValidationError(err) {
		ValidationErrorResponse(w, r, err)
		return
	}

	code, message := classify(err)
	status := ErrorCodeToHTTPStatus(code)

	logger := domain.LoggerFromContext(r.Context(), slog.Default())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"op", domain.ErrorOp(err),
			"error", err,
		)
	} else {
		logger.Debug("request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"code", code,
			"error", err,
		)
	}

	if !acceptsJSON(r) {
		http.Error(w, message, status)
		return
	}

	WriteJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// ValidationErrorResponse writes field-level errors. Errors that are not
// validation errors fall back to ErrorResponse.
func ValidationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		ErrorResponse(w, r, err)
		return
	}

	message := "Validation failed"
	if len(ve.Fields) == 1 {
		message = ve.Fields[0].Field + ": " + ve.Fields[0].Message
	}

	if !acceptsJSON(r) {
		lines := make([]string, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			lines = append(lines, f.Field+": "+f.Message)
		}
		http.Error(w, strings.Join(lines, "\n"), http.StatusBadRequest)
		return
	}

	WriteJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
		Code:    domain.EINVALID,
		Message: message,
		Fields:  ve.Fields,
	}})
}

// NotFoundResponse writes a 404.
func NotFoundResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, &domain.Error{Code: domain.ENOTFOUND, Message: "Not found"})
}

// MethodNotAllowedResponse writes a 405 with the Allow header set.
func MethodNotAllowedResponse(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	if !acceptsJSON(r) {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	WriteJSON(w, http.StatusMethodNotAllowed, errorBody{Error: errorDetail{
		Code:    "method_not_allowed",
		Message: "Method not allowed",
	}})
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// classify resolves the code and user-facing message of err.
func classify(err error) (code, message string) {
	var de *domain.Error
	if errors.As(err, &de) {
		return domain.ErrorCode(err), domain.ErrorMessage(err)
	}

	var ce coded
	if errors.As(err, &ce) {
		code = ce.ErrorCode()
		if code == domain.EINTERNAL || code == "" {
			return domain.EINTERNAL, domain.ErrorMessage(err)
		}
		return code, ce.ErrorMessage()
	}

	return domain.EINTERNAL, domain.ErrorMessage(err)
}

// acceptsJSON reports whether the client expects a JSON response.
func acceptsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasSuffix(r.URL.Path, ".json") || strings.HasPrefix(r.URL.Path, "/api/")
}
