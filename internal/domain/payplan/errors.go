package payplan

import "github.com/insurance/payplan/internal/domain/shared"

// Error codes raised by the reconciliation engine
const (
	CodeExtractionIncomplete = "EXTRACTION_INCOMPLETE"
	CodeStoreUnavailable     = "STORE_UNAVAILABLE"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodePartialWriteFailure  = "PARTIAL_WRITE_FAILURE"
)

// Sentinels for errors.Is checks. DomainError matches on code, so wrapped
// instances built with the helpers below compare equal to these.
var (
	// ErrExtractionIncomplete is never returned to callers; it is logged when
	// the resolver falls back to placeholder terms.
	ErrExtractionIncomplete = shared.NewDomainError(CodeExtractionIncomplete, "Financial terms could not be extracted")
	ErrStoreUnavailable     = shared.NewDomainError(CodeStoreUnavailable, "Financial store unavailable")
	ErrValidationFailed     = shared.NewDomainError(CodeValidationFailed, "Validation failed")
	ErrPartialWriteFailure  = shared.NewDomainError(CodePartialWriteFailure, "Some installments could not be saved")
)

// StoreUnavailable wraps an I/O failure talking to the store
func StoreUnavailable(op string, cause error) error {
	return shared.Wrap(CodeStoreUnavailable, "store unavailable during "+op, cause)
}

// ValidationFailed builds a validation error with a short message
func ValidationFailed(message string) error {
	return shared.NewDomainError(CodeValidationFailed, message)
}

// PartialWriteFailure reports that a batch left some rows unwritten
func PartialWriteFailure(cause error) error {
	return shared.Wrap(CodePartialWriteFailure, "schedule saved partially", cause)
}
