package dto

import (
	"net/http"

	"github.com/insurance/payplan/internal/domain/payplan"
)

// Request-level error codes raised by the HTTP layer itself.
// Format: ERR_<CATEGORY>_<DESCRIPTION>
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeValidation is used when request binding fails validation
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeConfirmationRequired is used when a destructive call lacks confirm=true
	ErrCodeConfirmationRequired = "ERR_CONFIRMATION_REQUIRED"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// Domain error codes, passed through to clients unchanged
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeStoreUnavailable    = payplan.CodeStoreUnavailable
	ErrCodeValidationFailed    = payplan.CodeValidationFailed
	ErrCodePartialWriteFailure = payplan.CodePartialWriteFailure
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:             http.StatusInternalServerError,
	ErrCodeBadRequest:           http.StatusBadRequest,
	ErrCodeValidation:           http.StatusBadRequest,
	ErrCodeInvalidJSON:          http.StatusBadRequest,
	ErrCodeConfirmationRequired: http.StatusPreconditionRequired,
	ErrCodeRequestTooLarge:      http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:          http.StatusTooManyRequests,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeInvalidInput:  http.StatusBadRequest,
	ErrCodeInvalidState:  http.StatusUnprocessableEntity,

	ErrCodeStoreUnavailable:    http.StatusServiceUnavailable,
	ErrCodeValidationFailed:    http.StatusUnprocessableEntity,
	ErrCodePartialWriteFailure: http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
