// Package session owns the "is a user logged in" question.
//
// It keeps a single remembered user identifier in a pluggable Store (memory
// by default, Redis for deployments that need persistence across restarts)
// and reconciles it against the backend's live session. Local storage is the
// source of truth for fast, synchronous checks; the backend session is the
// authoritative but slower source, and wins every reconciliation.
//
// The stored value must be a syntactically valid UUID. Anything else found
// in the store is treated as corrupt, purged as a side effect of the read,
// and reported as absence.
//
// Every backend call is wrapped in an operation-class time budget (5s for
// session and token fetches, 3s for the liveness probe). Timeouts and errors
// are logged and converted to zero-value returns; this package never
// propagates a backend failure to its callers.
package session
