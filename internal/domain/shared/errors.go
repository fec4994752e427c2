// Package shared holds the error type the domain packages report with.
package shared

import "errors"

// DomainError is a rule violation with a machine-readable code. The
// transport layers translate Code into a status.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	return errors.As(target, &t) && t.Code == e.Code
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

const (
	CodeNotFound   = "NOT_FOUND"
	CodeValidation = "VALIDATION_ERROR"
)

// ErrValidation is the category sentinel for every validation failure.
var ErrValidation = NewDomainError(CodeValidation, "Validation failed")

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
