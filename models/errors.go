package models

import (
	"errors"
	"fmt"
)

// Error codes used to classify check failures.
const (
	ErrCodeAssertion     = "ASSERTION_FAILED"
	ErrCodeCollaborator  = "COLLABORATOR_ERROR"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
)

// CheckError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type CheckError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *CheckError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

// NewCheckError creates a new CheckError.
func NewCheckError(code, message string, err error) *CheckError {
	return &CheckError{Code: code, Message: message, Err: err}
}

// Assertionf reports an expectation that was not met.
func Assertionf(format string, args ...any) *CheckError {
	return &CheckError{Code: ErrCodeAssertion, Message: fmt.Sprintf(format, args...)}
}

// NewCollaboratorError wraps a failure of the browser, the HTTP client or a store.
func NewCollaboratorError(message string, err error) *CheckError {
	return &CheckError{Code: ErrCodeCollaborator, Message: message, Err: err}
}

// NewConfigurationError reports an invalid configuration value.
func NewConfigurationError(message string, err error) *CheckError {
	return &CheckError{Code: ErrCodeConfiguration, Message: message, Err: err}
}

// IsConfigurationError reports whether any error in err's chain is a
// configuration error.
func IsConfigurationError(err error) bool {
	var ce *CheckError
	return errors.As(err, &ce) && ce.Code == ErrCodeConfiguration
}

// ErrorCode returns the code of the first CheckError in err's chain, or
// ErrCodeCollaborator for foreign errors.
func ErrorCode(err error) string {
	var ce *CheckError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeCollaborator
}
