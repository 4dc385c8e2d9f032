package directauth

import "errors"

var (
	ErrParsingConfig        = errors.New("failed to parse configuration")
	ErrStorageNotConfigured = errors.New("storage is not configured")
	ErrNoProfileStore       = errors.New("no profile store configured")
	ErrNotInitialized       = errors.New("client is not initialized")
	ErrDestroyed            = errors.New("client has been destroyed")
)
