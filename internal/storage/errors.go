package storage

import "errors"

var (
	// ErrAccountNotFound is returned when an account is not found
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateEmail is returned when an account email already exists
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrProviderKeyNotFound is returned when a provider key is not found
	ErrProviderKeyNotFound = errors.New("provider key not found")

	// ErrAliasNotFound is returned when a model alias is not found
	ErrAliasNotFound = errors.New("model alias not found")
)
