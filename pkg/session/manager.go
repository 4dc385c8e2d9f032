package session

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/directauth/backend"
	"github.com/dmitrymomot/directauth/pkg/async"
	"github.com/dmitrymomot/directauth/pkg/event"
)

// Manager reconciles the locally remembered identity with the backend's live
// session. It answers the authentication question at two speeds: instantly
// from the local store, authoritatively from the backend.
//
// No public method propagates a backend or storage failure: failures are
// logged and reported as zero values. Callers that need the reason use
// Status.
type Manager struct {
	provider backend.AuthProvider
	store    Store
	emitter  *event.Emitter
	cfg      Config
	log      *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithConfig overrides the default time budgets.
func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.cfg = cfg }
}

// WithLogger sets the logger for swallowed failures.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// New creates a session manager. The store defaults to an in-process
// MemoryStore when nil.
func New(provider backend.AuthProvider, store Store, emitter *event.Emitter, opts ...Option) *Manager {
	m := &Manager{
		provider: provider,
		store:    store,
		emitter:  emitter,
		cfg:      DefaultConfig(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = NewMemoryStore()
	}
	return m
}

// SaveUserID persists the identifier locally. Values that are not valid
// UUIDs are rejected; store failures are logged, never surfaced.
func (m *Manager) SaveUserID(ctx context.Context, id string) {
	if _, err := uuid.Parse(id); err != nil {
		m.log.Warn("refusing to store malformed user id", "error", err)
		return
	}
	if err := m.store.Set(ctx, id); err != nil {
		m.log.Warn("failed to persist user id", "error", err)
	}
}

// UserID returns the locally stored identifier. A malformed stored value is
// treated as corrupt: it is purged as a side effect and absence is reported.
func (m *Manager) UserID(ctx context.Context) (string, bool) {
	value, err := m.store.Get(ctx)
	if err != nil {
		m.log.Warn("failed to read stored user id", "error", err)
		return "", false
	}
	if value == "" {
		return "", false
	}
	if _, err := uuid.Parse(value); err != nil {
		m.log.Warn("purging corrupt stored user id", "error", err)
		if err := m.store.Delete(ctx); err != nil {
			m.log.Warn("failed to purge corrupt user id", "error", err)
		}
		return "", false
	}
	return value, true
}

// ClearUserID removes the locally stored identifier.
func (m *Manager) ClearUserID(ctx context.Context) {
	if err := m.store.Delete(ctx); err != nil {
		m.log.Warn("failed to clear stored user id", "error", err)
	}
}

// IsAuthenticated answers from local storage only. No network call is made.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	_, ok := m.UserID(ctx)
	return ok
}

// Session fetches the live backend session under the session time budget.
// Returns nil on timeout, error, or when no identity is signed in.
func (m *Manager) Session(ctx context.Context) *backend.Session {
	session, err := async.WithTimeout(ctx, m.cfg.SessionTimeout, "get session",
		func(ctx context.Context) (*backend.Session, error) {
			return m.provider.Session(ctx)
		})
	if err != nil {
		m.log.Warn("session fetch failed", "error", err)
		return nil
	}
	return session
}

// Status reports whether a user is authenticated, local-storage-first: the
// backend is consulted only when no local identity exists. On the slow path
// the failure reason is surfaced as a string.
func (m *Manager) Status(ctx context.Context) (bool, string) {
	if _, ok := m.UserID(ctx); ok {
		return true, ""
	}

	session, err := async.WithTimeout(ctx, m.cfg.SessionTimeout, "get session",
		func(ctx context.Context) (*backend.Session, error) {
			return m.provider.Session(ctx)
		})
	if err != nil {
		return false, "session check failed: " + err.Error()
	}
	if session == nil {
		return false, "no local identity and no backend session"
	}
	return true, ""
}

// HasSession is the boolean variant of Status.
func (m *Manager) HasSession(ctx context.Context) bool {
	ok, _ := m.Status(ctx)
	return ok
}

// AccessToken returns the live access token, or "" on any failure.
func (m *Manager) AccessToken(ctx context.Context) string {
	session := m.Session(ctx)
	if session == nil {
		return ""
	}
	return session.AccessToken
}

// ValidateAndSync reconciles local storage against the backend session. The
// backend is authoritative: a live session whose user differs from the
// stored id overwrites it, and an absent session clears a stale id. Returns
// whether a valid session exists after reconciliation.
func (m *Manager) ValidateAndSync(ctx context.Context) bool {
	session := m.Session(ctx)

	if session == nil || session.User == nil {
		if _, ok := m.UserID(ctx); ok {
			m.log.Info("clearing stale local identity, backend reports no session")
			m.ClearUserID(ctx)
		}
		return false
	}

	stored, _ := m.UserID(ctx)
	if stored != session.User.ID {
		m.SaveUserID(ctx, session.User.ID)
	}
	return true
}

// Connected probes backend liveness under the probe time budget. A reachable
// backend with no session still counts as connected.
func (m *Manager) Connected(ctx context.Context) bool {
	_, err := async.WithTimeout(ctx, m.cfg.ProbeTimeout, "connection test",
		func(ctx context.Context) (*backend.Session, error) {
			return m.provider.Session(ctx)
		})
	if err != nil {
		m.log.Warn("connection probe failed", "error", err)
		return false
	}
	return true
}

// HandleAuth persists the identifier and then emits the Login event carrying
// the freshly fetched session. Ordering matters: listeners reacting to Login
// must already observe the stored id.
func (m *Manager) HandleAuth(ctx context.Context, userID string) {
	m.SaveUserID(ctx, userID)
	m.emitter.Emit(event.Login, m.Session(ctx))
}

// HandleSignOut clears the identifier and then emits Logout with a nil
// session. A call finding no stored identity is a no-op: one sign-out can
// reach the manager twice, through the provider's change notification and
// through the direct path, and listeners must observe a single Logout.
func (m *Manager) HandleSignOut(ctx context.Context) {
	if _, ok := m.UserID(ctx); !ok {
		return
	}
	m.ClearUserID(ctx)
	m.emitter.Emit(event.Logout, nil)
}
