package session

import "context"

// Store persists the single remembered user identifier. It is a dumb value
// store: validation and corruption handling live in the Manager, so a store
// faithfully returns whatever was written, including garbage planted by a
// misbehaving writer.
//
// Absence is not an error: Get returns ("", nil) when no value is stored.
type Store interface {
	// Get returns the stored value, or "" when nothing is stored.
	Get(ctx context.Context) (string, error)

	// Set overwrites the stored value.
	Set(ctx context.Context, value string) error

	// Delete removes the stored value. Deleting an absent value is a no-op.
	Delete(ctx context.Context) error
}
