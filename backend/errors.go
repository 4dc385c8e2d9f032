package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials indicates the provider was built without a URL or API key.
	ErrMissingCredentials = errors.New("backend: missing base URL or API key")

	// ErrNoSession indicates no identity is currently signed in.
	ErrNoSession = errors.New("backend: no active session")
)

// Error is a non-2xx response from the provider. Message carries the
// provider's human-readable explanation and feeds the error translation
// layer in pkg/account.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: request failed with status %d", e.Status)
	}
	return e.Message
}
