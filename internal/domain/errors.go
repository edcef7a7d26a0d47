package domain

import (
	"errors"
	"fmt"
)

// Error types for consistent error handling across the assistant.
// Each one exposes a stable machine-readable code through ErrorCode().

// Error codes returned to callers in {"error_code": "..."}.
const (
	CodeMissingField         = "MISSING_FIELD"
	CodeInvalidCardData      = "INVALID_CARD_DATA"
	CodeInvalidPaymentMethod = "INVALID_PAYMENT_METHOD"
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeTransactionNotFound  = "TRANSACTION_NOT_FOUND"
	CodePlanNotFound         = "PLAN_NOT_FOUND"
	CodeSessionNotFound      = "SESSION_NOT_FOUND"
	CodeInvalidRefundStatus  = "INVALID_REFUND_STATUS"
	CodeInvalidRefundAmount  = "INVALID_REFUND_AMOUNT"
	CodeCardDeclined         = "CARD_DECLINED"
	CodeSimulatedError       = "SIMULATED_ERROR"
	CodeUpstreamUnavailable  = "UPSTREAM_UNAVAILABLE"
	CodeCircuitOpen          = "CIRCUIT_OPEN"
	CodeTimeout              = "TIMEOUT"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInternal             = "INTERNAL_ERROR"
)

// ErrValidation indicates a validation error (missing or malformed input).
type ErrValidation struct {
	Code    string
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

func (e *ErrValidation) ErrorCode() string {
	if e.Code == "" {
		return CodeInvalidRequest
	}
	return e.Code
}

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
	Code     string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *ErrNotFound) ErrorCode() string {
	if e.Code != "" {
		return e.Code
	}
	switch e.Resource {
	case "transaction":
		return CodeTransactionNotFound
	case "plan":
		return CodePlanNotFound
	case "session":
		return CodeSessionNotFound
	}
	return "NOT_FOUND"
}

// ErrStateConflict indicates the operation is not allowed in the resource's
// current state (ex: estorno de transação não aprovada).
type ErrStateConflict struct {
	Code          string
	TransactionID string
	Message       string
}

func (e *ErrStateConflict) Error() string {
	return e.Message
}

func (e *ErrStateConflict) ErrorCode() string { return e.Code }

// ErrDeclined indicates the card was declined by the (simulated) issuer.
// The transaction id is kept for traceability even though nothing is stored.
type ErrDeclined struct {
	TransactionID string
	Reason        string
}

func (e *ErrDeclined) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "Cartão recusado pela operadora"
}

func (e *ErrDeclined) ErrorCode() string { return CodeCardDeclined }

// ErrExternalService indicates a failure in an external service call
// (NLU oracle, notifier, gateway). Code defaults to UPSTREAM_UNAVAILABLE.
type ErrExternalService struct {
	Service string
	Code    string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

func (e *ErrExternalService) ErrorCode() string {
	if e.Code == "" {
		return CodeUpstreamUnavailable
	}
	return e.Code
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

func (e *ErrTimeout) ErrorCode() string { return CodeTimeout }

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

func (e *ErrCircuitOpen) ErrorCode() string { return CodeCircuitOpen }

// ErrUnauthorized indicates an invalid or expired session token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

func (e *ErrUnauthorized) ErrorCode() string { return CodeUnauthorized }

// ErrorCode extracts the machine-readable code of err, walking the wrap chain.
// Unknown errors map to INTERNAL_ERROR.
func ErrorCode(err error) string {
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return CodeInternal
}
