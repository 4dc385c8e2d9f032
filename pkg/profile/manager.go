package profile

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/directauth/backend"
	"github.com/dmitrymomot/directauth/pkg/async"
	"github.com/dmitrymomot/directauth/pkg/event"
	"github.com/dmitrymomot/directauth/pkg/session"
)

// Manager keeps a profile row in sync with the authenticated identity,
// tolerating the row not existing yet: rows are provisioned lazily, either
// opportunistically right after sign-in or on demand when a lookup finds
// nothing.
type Manager struct {
	store    Store
	sessions *session.Manager
	provider backend.AuthProvider
	emitter  *event.Emitter
	log      *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for swallowed provisioning failures.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// New creates a profile manager.
func New(store Store, sessions *session.Manager, provider backend.AuthProvider, emitter *event.Emitter, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		sessions: sessions,
		provider: provider,
		emitter:  emitter,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the authenticated identity's profile row, or nil when no
// identity is present or the row cannot be produced. A missing row triggers
// one on-demand provisioning attempt followed by a single retry of the
// fetch. Never returns an error; failures are logged.
func (m *Manager) Get(ctx context.Context) *User {
	id, ok := m.localID(ctx)
	if !ok {
		return nil
	}

	user, err := m.store.Get(ctx, id)
	if err == nil {
		return user
	}
	if !errors.Is(err, ErrNotFound) {
		m.log.Warn("profile fetch failed", "error", err)
		return nil
	}

	if !m.CreateIfMissing(ctx) {
		return nil
	}
	user, err = m.store.Get(ctx, id)
	if err != nil {
		m.log.Warn("profile fetch failed after provisioning", "error", err)
		return nil
	}
	return user
}

// Update mutates the recognized profile fields for the authenticated
// identity. On success the row is re-fetched best-effort and a UserUpdated
// event is emitted; a failure of that follow-up does not fail the update.
func (m *Manager) Update(ctx context.Context, params UpdateParams) error {
	id, ok := m.localID(ctx)
	if !ok {
		return ErrNotAuthenticated
	}
	if params.Empty() {
		return ErrEmptyUpdate
	}

	if err := m.store.Update(ctx, id, params); err != nil {
		return err
	}

	if user, err := m.store.Get(ctx, id); err == nil {
		m.emitter.Emit(event.UserUpdated, user)
	} else {
		m.log.Warn("post-update profile fetch failed, skipping event", "error", err)
	}
	return nil
}

// EnsureProfile provisions a profile row for a freshly signed-in identity as
// a detached task: it returns immediately and must never block or fail the
// sign-in flow. Every failure inside is logged and discarded. The returned
// future reports completion for callers that want to observe it (tests).
func (m *Manager) EnsureProfile(ctx context.Context, bu *backend.User) *async.Future[bool] {
	return async.Run(ctx, func(ctx context.Context) (bool, error) {
		if bu == nil {
			return false, nil
		}
		if !m.sessions.Connected(ctx) {
			m.log.Warn("skipping profile provisioning, backend unreachable")
			return false, nil
		}

		user, err := fromBackendUser(bu)
		if err != nil {
			m.log.Warn("cannot provision profile for malformed user id", "error", err)
			return false, nil
		}

		_, err = m.store.Get(ctx, user.ID)
		if err == nil {
			return true, nil
		}
		// RLS denials are expected here: before the row exists the policy
		// has nothing to grant. Treat like not-found and insert.
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrPermissionDenied) {
			m.log.Warn("profile existence check failed", "error", err)
			return false, nil
		}

		if err := m.store.Insert(ctx, user); err != nil {
			m.log.Warn("profile provisioning failed", "error", err)
			return false, nil
		}
		return true, nil
	})
}

// CreateIfMissing provisions the profile row on demand using fresh metadata
// from the live backend session. Returns whether a usable row should now
// exist.
func (m *Manager) CreateIfMissing(ctx context.Context) bool {
	liveSession := m.sessions.Session(ctx)
	if liveSession == nil || liveSession.User == nil {
		m.log.Warn("cannot provision profile without a live session")
		return false
	}

	user, err := fromBackendUser(liveSession.User)
	if err != nil {
		m.log.Warn("cannot provision profile for malformed user id", "error", err)
		return false
	}

	if err := m.store.Insert(ctx, user); err != nil {
		m.log.Warn("on-demand profile provisioning failed", "error", err)
		return false
	}
	return true
}

func (m *Manager) localID(ctx context.Context) (uuid.UUID, bool) {
	raw, ok := m.sessions.UserID(ctx)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
