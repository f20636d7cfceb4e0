package core

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures surfaced to callers.
type ErrorType string

const (
	ErrorTypeInputValidation ErrorType = "input_validation"
	ErrorTypeBudgetExceeded  ErrorType = "budget_exceeded"
	ErrorTypeRender          ErrorType = "render"
	ErrorTypeService         ErrorType = "service"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeConflict        ErrorType = "conflict"
	ErrorTypeUnauthorized    ErrorType = "unauthorized"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{Type: errType, Message: message, Err: err}
}

func InputValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeInputValidation, message, err)
}

func BudgetExceededError(message string, err error) *DomainError {
	return NewError(ErrorTypeBudgetExceeded, message, err)
}

func RenderError(message string, err error) *DomainError {
	return NewError(ErrorTypeRender, message, err)
}

func ServiceError(message string, err error) *DomainError {
	return NewError(ErrorTypeService, message, err)
}

func NotFoundError(message string, err error) *DomainError {
	return NewError(ErrorTypeNotFound, message, err)
}

// ConflictError reports an operation that is not allowed in the current state.
func ConflictError(message string, err error) *DomainError {
	return NewError(ErrorTypeConflict, message, err)
}

func UnauthorizedError(message string, err error) *DomainError {
	return NewError(ErrorTypeUnauthorized, message, err)
}

// TypeOf returns the type of the first DomainError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}

// IsType reports whether err's chain carries a DomainError of type t.
func IsType(err error, t ErrorType) bool {
	return TypeOf(err) == t
}

// UserMessage is the human-readable text shown in notices.
func UserMessage(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		if de.Err != nil {
			return fmt.Sprintf("%s: %v", de.Message, de.Err)
		}
		return de.Message
	}
	return err.Error()
}
