// Package errors provides structured, coded errors for Civica.
// Component boundaries convert internal failures into degraded results;
// only tenant rejections propagate to callers as errors.
package errors

import (
	"errors"
	"fmt"
)

// Error is the structured error type for Civica.
// It carries a stable code for programmatic handling plus
// context for logging and user presentation.
type Error struct {
	// Code is the unique error code (e.g., "ERR_101_TENANT_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Tenant, Provider, Cache, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, enabling errors.Is() against sentinel values.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an Error from an existing error, keeping its message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// TenantNotFound reports that no tenant exists under the given id.
func TenantNotFound(tenantID string) *Error {
	return New(ErrCodeTenantNotFound, fmt.Sprintf("tenant %q not found", tenantID), nil).
		WithDetail("tenant_id", tenantID)
}

// TenantInactive reports that the tenant exists but has been deactivated.
func TenantInactive(tenantID string) *Error {
	return New(ErrCodeTenantInactive, fmt.Sprintf("tenant %q is inactive", tenantID), nil).
		WithDetail("tenant_id", tenantID)
}

// ProviderUnavailable reports that an external model provider cannot respond.
// These errors are retryable and recovered locally per strategy.
func ProviderUnavailable(provider string, cause error) *Error {
	return New(ErrCodeProviderUnavailable, fmt.Sprintf("%s provider unavailable", provider), cause).
		WithDetail("provider", provider)
}

// CacheUnavailable reports that the cache store cannot be reached.
// The orchestrator bypasses the cache transparently on this error.
func CacheUnavailable(cause error) *Error {
	return New(ErrCodeCacheUnavailable, "cache store unavailable", cause)
}

// StoreError creates a persistence-related error.
func StoreError(message string, cause error) *Error {
	return New(ErrCodeStoreFailure, message, cause)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates an input validation error.
func ValidationError(message string, cause error) *Error {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *Error {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// CodeOf returns the code of an Error anywhere in the chain, or "" if none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsTenantRejection reports whether the error is a tenant-level rejection
// (not found or inactive), the only class surfaced to API callers.
func IsTenantRejection(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeTenantNotFound || code == ErrCodeTenantInactive
}
