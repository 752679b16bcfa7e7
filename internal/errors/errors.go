package errors

import (
	"errors"
	"fmt"
)

// Domain-specific error types
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates malformed request parameters, rejected before any I/O
	ErrInvalidInput = errors.New("invalid input")

	// ErrConnectionFailed indicates the mailbox source is unreachable.
	// Propagated as-is; retry policy belongs to the caller.
	ErrConnectionFailed = errors.New("mailbox connection failed")

	// ErrStorageFailure indicates a disk read/write error for a single file
	ErrStorageFailure = errors.New("storage failure")

	// ErrArchiveFailure indicates a corrupt or unsupported archive
	ErrArchiveFailure = errors.New("archive failure")

	// ErrConversionFailure indicates the rich converter failed; callers degrade
	// to the structural fallback instead of surfacing this
	ErrConversionFailure = errors.New("conversion failure")

	// ErrAccountNotFound indicates the mail account was not found
	ErrAccountNotFound = errors.New("account not found")

	// ErrMessageNotFound indicates the message was not found
	ErrMessageNotFound = errors.New("message not found")

	// ErrAttachmentNotFound indicates the attachment was not found
	ErrAttachmentNotFound = errors.New("attachment not found")

	// ErrCapabilityMissing indicates the account is not configured for the
	// requested capability (retrieval vs. send)
	ErrCapabilityMissing = errors.New("account capability missing")

	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal server error")
)

// Error codes for API responses
const (
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeConnectionFailed  = "CONNECTION_FAILED"
	CodeStorageFailure    = "STORAGE_FAILURE"
	CodeArchiveFailure    = "ARCHIVE_FAILURE"
	CodeConversionFailure = "CONVERSION_FAILURE"
	CodeCapabilityMissing = "CAPABILITY_MISSING"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInternalError     = "INTERNAL_ERROR"
)

// AppError represents an application error with context
type AppError struct {
	Err     error
	Message string
	Code    string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(err error, message string, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// NewConnectionError wraps a transport error from the mailbox source
func NewConnectionError(host string, err error) *AppError {
	return &AppError{
		Err:     ErrConnectionFailed,
		Message: fmt.Sprintf("mailbox source %s unreachable: %v", host, err),
		Code:    CodeConnectionFailed,
	}
}

// NewValidationError reports a malformed request parameter
func NewValidationError(message string) *AppError {
	return &AppError{
		Err:     ErrInvalidInput,
		Message: message,
		Code:    CodeInvalidInput,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrMessageNotFound) ||
		errors.Is(err, ErrAttachmentNotFound)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConnectionFailure checks if the error is a mailbox connection failure
func IsConnectionFailure(err error) bool {
	return errors.Is(err, ErrConnectionFailed)
}

// IsArchiveFailure checks if the error is an archive failure
func IsArchiveFailure(err error) bool {
	return errors.Is(err, ErrArchiveFailure)
}

// GetErrorCode returns the appropriate error code for an error
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}

	switch {
	case IsNotFound(err):
		return CodeNotFound
	case IsInvalidInput(err):
		return CodeInvalidInput
	case IsConnectionFailure(err):
		return CodeConnectionFailed
	case errors.Is(err, ErrStorageFailure):
		return CodeStorageFailure
	case IsArchiveFailure(err):
		return CodeArchiveFailure
	case errors.Is(err, ErrConversionFailure):
		return CodeConversionFailure
	case errors.Is(err, ErrCapabilityMissing):
		return CodeCapabilityMissing
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	default:
		return CodeInternalError
	}
}
