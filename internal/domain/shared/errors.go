package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a DomainError so callers can decide how to react
// without matching on individual codes.
type ErrorKind string

const (
	KindValidation ErrorKind = "VALIDATION"
	KindCompliance ErrorKind = "COMPLIANCE"
	KindState      ErrorKind = "STATE"
	KindPolicy     ErrorKind = "POLICY"
	KindConflict   ErrorKind = "CONFLICT"
	KindNotFound   ErrorKind = "NOT_FOUND"
	KindForbidden  ErrorKind = "FORBIDDEN"
	KindInfra      ErrorKind = "INFRASTRUCTURE"
)

// Error codes surfaced to callers
const (
	CodeInvalidInput          = "INVALID_INPUT"
	CodeInvalidQuantity       = "INVALID_QUANTITY"
	CodeInvalidPrice          = "INVALID_PRICE"
	CodeInvalidTaxRate        = "INVALID_TAX_RATE"
	CodeInvalidProduct        = "INVALID_PRODUCT"
	CodeInvalidPeriod         = "INVALID_PERIOD"
	CodeInvalidAgreement      = "INVALID_AGREEMENT"
	CodeAgreementOverlap      = "AGREEMENT_OVERLAP"
	CodeInsufficientCoreRatio = "INSUFFICIENT_CORE_RATIO"
	CodeEmptyOrder            = "EMPTY_ORDER"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeOrderNotEditable      = "ORDER_NOT_EDITABLE"
	CodeCapabilityRequired    = "CAPABILITY_REQUIRED"
	CodeNoActiveAgreement     = "NO_ACTIVE_AGREEMENT"
	CodeConcurrencyConflict   = "CONCURRENCY_CONFLICT"
	CodePersistenceTimeout    = "PERSISTENCE_TIMEOUT"
	CodeLockUnavailable       = "LOCK_UNAVAILABLE"
	CodeNotFound              = "NOT_FOUND"
	CodeAlreadyExists         = "ALREADY_EXISTS"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Kind      ErrorKind      `json:"kind"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches on code so that errors.Is works against the shared sentinels
// even when a new instance carries extra details.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of the error with an extra detail attached
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	cp := *e
	cp.Details = details
	return &cp
}

// NewDomainError creates a new domain error. The kind is derived from the code.
func NewDomainError(code, message string) *DomainError {
	kind := kindForCode(code)
	return &DomainError{
		Code:      code,
		Message:   message,
		Kind:      kind,
		Retryable: kind == KindConflict || kind == KindInfra,
	}
}

// NewValidationError reports malformed input
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindValidation}
}

// NewComplianceError reports a failed business invariant with its metric
func NewComplianceError(code, message string, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindCompliance, Details: details}
}

// NewStateError reports an operation that is illegal in the current state
func NewStateError(code, message string, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindState, Details: details}
}

// NewPolicyError reports a missing or violated policy configuration
func NewPolicyError(code, message string, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindPolicy, Details: details}
}

// NewConflictError reports a lost race. Always retryable.
func NewConflictError(message string) *DomainError {
	return &DomainError{Code: CodeConcurrencyConflict, Message: message, Kind: KindConflict, Retryable: true}
}

// NewUnavailableError reports a backing service that could not be reached.
// Always retryable.
func NewUnavailableError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindInfra, Retryable: true}
}

// NewNotFoundError reports a missing resource
func NewNotFoundError(resource string, id any) *DomainError {
	return &DomainError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Kind:    KindNotFound,
		Details: map[string]any{"resource": resource, "id": fmt.Sprint(id)},
	}
}

func kindForCode(code string) ErrorKind {
	switch code {
	case CodeInsufficientCoreRatio:
		return KindCompliance
	case CodeInvalidTransition, CodeOrderNotEditable, CodeEmptyOrder:
		return KindState
	case CodeNoActiveAgreement:
		return KindPolicy
	case CodeConcurrencyConflict, CodeAlreadyExists:
		return KindConflict
	case CodeNotFound:
		return KindNotFound
	case CodeCapabilityRequired:
		return KindForbidden
	case CodePersistenceTimeout, CodeLockUnavailable:
		return KindInfra
	default:
		return KindValidation
	}
}

// IsRetryable reports whether err (or anything it wraps) is a retryable DomainError
func IsRetryable(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}

// KindOf returns the kind of a wrapped DomainError, or empty when err is not one
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrPersistenceTimeout  = NewDomainError(CodePersistenceTimeout, "Storage did not respond in time")
	ErrEmptyOrder          = NewDomainError(CodeEmptyOrder, "Order has no lines")
	ErrOrderNotEditable    = NewDomainError(CodeOrderNotEditable, "Order lines can only be changed while the order is a draft")
	ErrNoActiveAgreement   = NewDomainError(CodeNoActiveAgreement, "No franchise agreement covers the requested date")
)
