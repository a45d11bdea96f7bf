package registry

import (
	"errors"
	"fmt"
)

// ErrAliasNotFound is returned when no alias with the requested name
// exists for the account
var ErrAliasNotFound = errors.New("alias not found")

// ValidationError reports a missing or malformed field in a request.
// Surfaced to clients as HTTP 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// AuthorizationError reports a reference to a resource owned by a
// different account. Never a silent success; surfaced as HTTP 403.
type AuthorizationError struct {
	Resource string
	ID       int64
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s %d is not owned by the calling account", e.Resource, e.ID)
}

// IsValidationError reports whether err is a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAuthorizationError reports whether err is an AuthorizationError
func IsAuthorizationError(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}
