package directauth

import (
	"log/slog"

	"github.com/dmitrymomot/directauth/backend"
	"github.com/dmitrymomot/directauth/pkg/profile"
	"github.com/dmitrymomot/directauth/pkg/session"
	"github.com/dmitrymomot/directauth/pkg/storage"
	"github.com/dmitrymomot/directauth/pkg/validate"
)

type options struct {
	provider       backend.AuthProvider
	identityStore  session.Store
	profileStore   profile.Store
	storageBackend storage.Backend
	policy         validate.PasswordPolicy
	log            *slog.Logger
}

// Option configures a Client at construction.
type Option func(*options)

// WithProvider injects a custom backend provider, replacing the HTTP one
// built from the configuration. Useful for testing.
func WithProvider(p backend.AuthProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithIdentityStore sets the store holding the local user identifier.
// Defaults to an in-memory store; use a Redis store for persistence across
// restarts.
func WithIdentityStore(s session.Store) Option {
	return func(o *options) {
		o.identityStore = s
	}
}

// WithProfileStore sets the store backing profile rows, typically the
// Postgres store from pkg/profile. Without one, profile reads return nil
// and provisioning is a logged no-op.
func WithProfileStore(s profile.Store) Option {
	return func(o *options) {
		o.profileStore = s
	}
}

// WithStorageBackend overrides the file storage backend, replacing the REST
// client built from the configuration.
func WithStorageBackend(b storage.Backend) Option {
	return func(o *options) {
		o.storageBackend = b
	}
}

// WithPasswordPolicy overrides the sign-up password policy.
func WithPasswordPolicy(policy validate.PasswordPolicy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithLogger sets the logger shared by every manager.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}
