package services

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable, machine-readable kind of an engine failure
type ErrorCode string

const (
	CodeUnauthenticated     ErrorCode = "UNAUTHENTICATED"
	CodeForbidden           ErrorCode = "FORBIDDEN"
	CodeNotFound            ErrorCode = "NOT_FOUND"
	CodeInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	CodePolicyViolation     ErrorCode = "POLICY_VIOLATION"
	CodeDeadlineExceeded    ErrorCode = "DEADLINE_EXCEEDED"
	CodePreconditionFailed  ErrorCode = "PRECONDITION_FAILED"
	CodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	CodeInactive            ErrorCode = "INACTIVE"
	CodeExpired             ErrorCode = "EXPIRED"
	CodeCrossTenant         ErrorCode = "CROSS_TENANT"
	CodeConflict            ErrorCode = "CONFLICT"
	CodeValidation          ErrorCode = "VALIDATION_ERROR"
)

// EngineError represents a business rule failure the caller can act on
type EngineError struct {
	Code    ErrorCode
	Message string
}

func (e *EngineError) Error() string {
	return e.Message
}

// Is matches any EngineError with the same code, so sentinels work with errors.Is
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	return ok && t.Code == e.Code
}

var (
	ErrUnauthenticated     = &EngineError{Code: CodeUnauthenticated, Message: "authentication required"}
	ErrForbidden           = &EngineError{Code: CodeForbidden, Message: "actor is not allowed to perform this operation"}
	ErrNotFound            = &EngineError{Code: CodeNotFound, Message: "resource not found"}
	ErrInvalidTransition   = &EngineError{Code: CodeInvalidTransition, Message: "transition not allowed from current status"}
	ErrPolicyViolation     = &EngineError{Code: CodePolicyViolation, Message: "operation violates policy"}
	ErrDeadlineExceeded    = &EngineError{Code: CodeDeadlineExceeded, Message: "confirmation deadline has passed"}
	ErrPreconditionFailed  = &EngineError{Code: CodePreconditionFailed, Message: "precondition failed"}
	ErrInsufficientBalance = &EngineError{Code: CodeInsufficientBalance, Message: "insufficient credit balance"}
	ErrInactive            = &EngineError{Code: CodeInactive, Message: "credit note is inactive"}
	ErrExpired             = &EngineError{Code: CodeExpired, Message: "credit note has expired"}
	ErrCrossTenant         = &EngineError{Code: CodeCrossTenant, Message: "order belongs to a different client"}
	ErrConflict            = &EngineError{Code: CodeConflict, Message: "conflicting concurrent request"}
	ErrValidation          = &EngineError{Code: CodeValidation, Message: "invalid request"}
)

func newError(code ErrorCode, format string, args ...interface{}) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the engine error code, if err carries one
func CodeOf(err error) (ErrorCode, bool) {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Code, true
	}
	return "", false
}
