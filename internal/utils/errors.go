package utils

import (
	"strings"
)

// IsRecoverableError checks if an error is recoverable based on predefined criteria.
func IsRecoverableError(err error) bool {
	// Upstream provider failures are recoverable; the caller may retry
	// the request through a fallback alias.
	recoverableErrors := []string{
		"provider returned status",
		"provider request failed",
	}

	for _, recoverable := range recoverableErrors {
		if strings.HasPrefix(err.Error(), recoverable) {
			return true
		}
	}
	return false
}
