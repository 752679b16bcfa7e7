package validator

import (
	"regexp"
	"strings"

	apperrors "github.com/lgwanai/email-mcp/internal/errors"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Pagination bounds for message fetch and search
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ValidateEmail checks that the address looks like a deliverable email address
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.NewValidationError("email address is required")
	}
	if len(email) > 254 {
		return apperrors.NewValidationError("email address is too long")
	}
	if !emailRegex.MatchString(email) {
		return apperrors.NewValidationError("invalid email address format")
	}
	return nil
}

// ValidatePort checks that port is a usable TCP port number
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return apperrors.NewValidationError("port must be between 1 and 65535")
	}
	return nil
}

// NormalizePageSize clamps a requested page size into the allowed range,
// applying the default when unset
func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}
