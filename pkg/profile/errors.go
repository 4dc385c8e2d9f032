package profile

import "errors"

var (
	// ErrNotFound indicates no profile row exists for the identity
	ErrNotFound = errors.New("profile: not found")

	// ErrPermissionDenied indicates the row is shielded by a row-level
	// security policy. Expected on lookups performed before the identity's
	// own row exists.
	ErrPermissionDenied = errors.New("profile: permission denied")

	// ErrNotAuthenticated indicates no local identity is present
	ErrNotAuthenticated = errors.New("profile: not authenticated")

	// ErrEmptyUpdate indicates an update carried no recognized field
	ErrEmptyUpdate = errors.New("profile: no recognized fields to update")

	// ErrFailedToOpenDBConnection indicates the pool never became ready
	ErrFailedToOpenDBConnection = errors.New("profile: failed to open database connection")

	// ErrFailedToParseDBConfig indicates a malformed connection string
	ErrFailedToParseDBConfig = errors.New("profile: failed to parse database config")
)
