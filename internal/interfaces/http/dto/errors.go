package dto

import (
	"net/http"

	"github.com/foodtruck/backend/internal/domain/shared"
)

// Transport error codes. Domain failures keep their own codes
// (INSUFFICIENT_CORE_RATIO, INVALID_TRANSITION, ...) and are mapped by kind.
const (
	// ErrCodeInternal is used for unexpected server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeBadRequest is used for malformed path or query parameters
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when the request body cannot be decoded
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeValidation is used when binding tags reject the payload
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeNotFound is used for unknown routes
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeForbidden is used when the actor header is missing or malformed
	ErrCodeForbidden = "ERR_FORBIDDEN"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
	ErrCodeUnavailable     = "ERR_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps transport error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeForbidden:       http.StatusForbidden,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeUnavailable:     http.StatusServiceUnavailable,
}

// ErrorKindHTTPStatus maps domain error kinds to HTTP status codes
var ErrorKindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation: http.StatusBadRequest,
	shared.KindNotFound:   http.StatusNotFound,
	shared.KindConflict:   http.StatusConflict,
	shared.KindCompliance: http.StatusUnprocessableEntity,
	shared.KindState:      http.StatusUnprocessableEntity,
	shared.KindPolicy:     http.StatusUnprocessableEntity,
	shared.KindForbidden:  http.StatusForbidden,
	shared.KindInfra:      http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for a transport error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// StatusForDomainError returns the HTTP status code for a domain error
func StatusForDomainError(err *shared.DomainError) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	if status, ok := ErrorKindHTTPStatus[err.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}
