package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Configuration errors, fatal before traversal starts
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// Role errors
	ErrRoleName   ErrorCode = "ROLE_NAME"
	ErrRoleSpec   ErrorCode = "ROLE_SPEC"
	ErrRoleLookup ErrorCode = "ROLE_LOOKUP"

	// Rule file errors, collected across the whole file before failing
	ErrRulesRead    ErrorCode = "RULES_READ"
	ErrRuleFields   ErrorCode = "RULE_FIELDS"
	ErrRuleSyntax   ErrorCode = "RULE_SYNTAX"
	ErrRuleRole     ErrorCode = "RULE_ROLE"
	ErrRuleFileMode ErrorCode = "RULE_FILE_MODE"

	// Traversal errors
	ErrRootAccess ErrorCode = "ROOT_ACCESS"
)

// PermError represents a structured error with code and details
type PermError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *PermError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *PermError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *PermError) Is(target error) bool {
	var targetErr *PermError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new PermError with the given code and message
func New(code ErrorCode, message string) *PermError {
	return &PermError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new PermError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *PermError {
	return &PermError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a PermError
func Wrap(err error, code ErrorCode, message string) *PermError {
	if err == nil {
		return nil
	}
	return &PermError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *PermError {
	if err == nil {
		return nil
	}
	return &PermError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *PermError) WithDetail(key string, value interface{}) *PermError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var permErr *PermError
	if errors.As(err, &permErr) {
		return permErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a PermError
func GetErrorCode(err error) ErrorCode {
	var permErr *PermError
	if errors.As(err, &permErr) {
		return permErr.Code
	}
	return ErrUnknown
}
