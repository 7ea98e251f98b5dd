package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeAuthCancelled indicates the user cancelled the interactive login.
	ErrCodeAuthCancelled ErrorCode = "auth_cancelled"
	// ErrCodeMissingAuthorizationCode indicates the provider redirected back without a code.
	ErrCodeMissingAuthorizationCode ErrorCode = "missing_authorization_code"
	// ErrCodeTokenExchangeFailed indicates the authorization-code grant was rejected.
	ErrCodeTokenExchangeFailed ErrorCode = "token_exchange_failed"
	// ErrCodeTokenRefreshFailed indicates the refresh-token grant was rejected.
	ErrCodeTokenRefreshFailed ErrorCode = "token_refresh_failed"
	// ErrCodeProfileFetchFailed indicates profile hydration failed after authentication.
	ErrCodeProfileFetchFailed ErrorCode = "profile_fetch_failed"
	// ErrCodeStorage indicates a token-store read or write failed.
	ErrCodeStorage ErrorCode = "storage"
	// ErrCodeFetch indicates a resource request failed (network or non-2xx).
	ErrCodeFetch ErrorCode = "fetch"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// AuthCancelled creates a new AuthCancelled error.
func AuthCancelled(message string) *AppError {
	return &AppError{Code: ErrCodeAuthCancelled, Message: message}
}

// MissingAuthorizationCode creates a new MissingAuthorizationCode error.
func MissingAuthorizationCode(message string) *AppError {
	return &AppError{Code: ErrCodeMissingAuthorizationCode, Message: message}
}

// TokenExchangeFailed creates a new TokenExchangeFailed error.
func TokenExchangeFailed(message string) *AppError {
	return &AppError{Code: ErrCodeTokenExchangeFailed, Message: message}
}

// TokenRefreshFailed creates a new TokenRefreshFailed error.
func TokenRefreshFailed(message string) *AppError {
	return &AppError{Code: ErrCodeTokenRefreshFailed, Message: message}
}

// ProfileFetchFailed creates a new ProfileFetchFailed error.
func ProfileFetchFailed(message string) *AppError {
	return &AppError{Code: ErrCodeProfileFetchFailed, Message: message}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// Storage wraps a storage-layer failure.
func Storage(err error, message string) *AppError {
	return Wrap(err, ErrCodeStorage, message)
}

// FetchError is returned when a resource request fails with a non-2xx status
// or a transport-level error. Body holds the response body, parsed as JSON
// when possible, else raw text. Status is zero for transport failures.
type FetchError struct {
	Status int
	Body   string
	Cause  error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("fetch failed: status %d: %s", e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("fetch failed: status %d", e.Status)
	case e.Cause != nil:
		return fmt.Sprintf("fetch failed: %v", e.Cause)
	default:
		return "fetch failed"
	}
}

// Unwrap returns the transport-level cause, if any.
func (e *FetchError) Unwrap() error { return e.Cause }

// AsFetchError extracts a *FetchError from an error chain.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsAuthCancelled checks if an error is an AuthCancelled error.
func IsAuthCancelled(err error) bool {
	return isCode(err, ErrCodeAuthCancelled)
}

// IsMissingAuthorizationCode checks if an error is a MissingAuthorizationCode error.
func IsMissingAuthorizationCode(err error) bool {
	return isCode(err, ErrCodeMissingAuthorizationCode)
}

// IsTokenExchangeFailed checks if an error is a TokenExchangeFailed error.
func IsTokenExchangeFailed(err error) bool {
	return isCode(err, ErrCodeTokenExchangeFailed)
}

// IsTokenRefreshFailed checks if an error is a TokenRefreshFailed error.
func IsTokenRefreshFailed(err error) bool {
	return isCode(err, ErrCodeTokenRefreshFailed)
}

// IsProfileFetchFailed checks if an error is a ProfileFetchFailed error.
func IsProfileFetchFailed(err error) bool {
	return isCode(err, ErrCodeProfileFetchFailed)
}

// IsStorage checks if an error is a Storage error.
func IsStorage(err error) bool {
	return isCode(err, ErrCodeStorage)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
// FetchError values report ErrCodeFetch.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	if _, ok := AsFetchError(err); ok {
		return ErrCodeFetch
	}
	return ""
}
