package profile_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/directauth/backend"
	"github.com/dmitrymomot/directauth/backend/backendtest"
	"github.com/dmitrymomot/directauth/pkg/event"
	"github.com/dmitrymomot/directauth/pkg/profile"
	"github.com/dmitrymomot/directauth/pkg/session"
)

var userID = uuid.MustParse("11111111-1111-1111-1111-111111111111")

// fakeStore is an in-memory profile.Store with optional error injection.
type fakeStore struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*profile.User
	getErr  error
	inserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[uuid.UUID]*profile.User)}
}

func (s *fakeStore) Get(ctx context.Context, id uuid.UUID) (*profile.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	user, ok := s.rows[id]
	if !ok {
		return nil, profile.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *fakeStore) Insert(ctx context.Context, user *profile.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if _, exists := s.rows[user.ID]; !exists {
		clone := *user
		s.rows[user.ID] = &clone
	}
	return nil
}

func (s *fakeStore) Update(ctx context.Context, id uuid.UUID, params profile.UpdateParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.rows[id]
	if !ok {
		return profile.ErrNotFound
	}
	if params.DisplayName != nil {
		user.DisplayName = params.DisplayName
	}
	if params.FirstName != nil {
		user.FirstName = params.FirstName
	}
	if params.Role != nil {
		user.Role = *params.Role
	}
	return nil
}

func liveSessionProvider(id uuid.UUID) *backendtest.Provider {
	return &backendtest.Provider{
		SessionFunc: func(ctx context.Context) (*backend.Session, error) {
			return &backend.Session{
				AccessToken: "token",
				User: &backend.User{
					ID:       id.String(),
					Email:    "user@example.com",
					Metadata: map[string]string{"first_name": "Jane"},
				},
			}, nil
		},
	}
}

func newManager(store profile.Store, provider *backendtest.Provider) (*profile.Manager, *session.Manager, *event.Emitter) {
	emitter := event.New()
	sessions := session.New(provider, nil, emitter)
	return profile.New(store, sessions, provider, emitter), sessions, emitter
}

func TestManager_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("nil without local identity", func(t *testing.T) {
		m, _, _ := newManager(newFakeStore(), &backendtest.Provider{})
		assert.Nil(t, m.Get(ctx))
	})

	t.Run("returns existing row", func(t *testing.T) {
		store := newFakeStore()
		store.rows[userID] = &profile.User{ID: userID, Email: "user@example.com", Role: "admin"}

		m, sessions, _ := newManager(store, liveSessionProvider(userID))
		sessions.SaveUserID(ctx, userID.String())

		user := m.Get(ctx)
		require.NotNil(t, user)
		assert.Equal(t, "admin", user.Role)
	})

	t.Run("missing row is auto-provisioned and retried once", func(t *testing.T) {
		store := newFakeStore()
		m, sessions, _ := newManager(store, liveSessionProvider(userID))
		sessions.SaveUserID(ctx, userID.String())

		user := m.Get(ctx)
		require.NotNil(t, user)
		assert.Equal(t, userID, user.ID)
		assert.Equal(t, "user@example.com", user.Email)
		assert.Equal(t, profile.DefaultRole, user.Role)
		require.NotNil(t, user.FirstName)
		assert.Equal(t, "Jane", *user.FirstName)
		assert.Equal(t, 1, store.inserts)
	})

	t.Run("unexpected store error yields nil", func(t *testing.T) {
		store := newFakeStore()
		store.getErr = errors.New("connection refused")

		m, sessions, _ := newManager(store, liveSessionProvider(userID))
		sessions.SaveUserID(ctx, userID.String())

		assert.Nil(t, m.Get(ctx))
		assert.Zero(t, store.inserts)
	})
}

func TestManager_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("requires authentication", func(t *testing.T) {
		m, _, _ := newManager(newFakeStore(), &backendtest.Provider{})
		err := m.Update(ctx, profile.UpdateParams{DisplayName: ptr("New Name")})
		assert.ErrorIs(t, err, profile.ErrNotAuthenticated)
	})

	t.Run("rejects empty update", func(t *testing.T) {
		m, sessions, _ := newManager(newFakeStore(), liveSessionProvider(userID))
		sessions.SaveUserID(ctx, userID.String())

		err := m.Update(ctx, profile.UpdateParams{})
		assert.ErrorIs(t, err, profile.ErrEmptyUpdate)
	})

	t.Run("success emits UserUpdated with the fresh row", func(t *testing.T) {
		store := newFakeStore()
		store.rows[userID] = &profile.User{ID: userID, Email: "user@example.com", Role: "user"}

		m, sessions, emitter := newManager(store, liveSessionProvider(userID))
		sessions.SaveUserID(ctx, userID.String())

		var payload any
		emitter.On(event.UserUpdated, func(p any) { payload = p })

		require.NoError(t, m.Update(ctx, profile.UpdateParams{DisplayName: ptr("JD")}))

		updated, ok := payload.(*profile.User)
		require.True(t, ok, "payload must be the re-fetched user")
		require.NotNil(t, updated.DisplayName)
		assert.Equal(t, "JD", *updated.DisplayName)
	})

	t.Run("update of missing row surfaces ErrNotFound", func(t *testing.T) {
		m, sessions, _ := newManager(newFakeStore(), liveSessionProvider(userID))
		sessions.SaveUserID(ctx, userID.String())

		err := m.Update(ctx, profile.UpdateParams{DisplayName: ptr("JD")})
		assert.ErrorIs(t, err, profile.ErrNotFound)
	})
}

func TestManager_EnsureProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts missing row", func(t *testing.T) {
		store := newFakeStore()
		m, _, _ := newManager(store, liveSessionProvider(userID))

		created, err := m.EnsureProfile(ctx, &backend.User{
			ID:       userID.String(),
			Email:    "user@example.com",
			Metadata: map[string]string{"first_name": "Jane"},
		}).Await()
		require.NoError(t, err)
		assert.True(t, created)

		row, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, profile.DefaultRole, row.Role)
	})

	t.Run("existing row is left alone", func(t *testing.T) {
		store := newFakeStore()
		store.rows[userID] = &profile.User{ID: userID, Email: "user@example.com", Role: "admin"}

		m, _, _ := newManager(store, liveSessionProvider(userID))
		ok, err := m.EnsureProfile(ctx, &backend.User{ID: userID.String(), Email: "user@example.com"}).Await()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Zero(t, store.inserts)
	})

	t.Run("rls denial on existence check still inserts", func(t *testing.T) {
		store := newFakeStore()
		store.getErr = profile.ErrPermissionDenied

		m, _, _ := newManager(store, liveSessionProvider(userID))
		created, err := m.EnsureProfile(ctx, &backend.User{ID: userID.String(), Email: "user@example.com"}).Await()
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, 1, store.inserts)
	})

	t.Run("malformed backend id is swallowed", func(t *testing.T) {
		m, _, _ := newManager(newFakeStore(), liveSessionProvider(userID))
		created, err := m.EnsureProfile(ctx, &backend.User{ID: "garbage", Email: "x@y.com"}).Await()
		require.NoError(t, err, "provisioning failures never propagate")
		assert.False(t, created)
	})

	t.Run("nil user is a no-op", func(t *testing.T) {
		m, _, _ := newManager(newFakeStore(), &backendtest.Provider{})
		created, err := m.EnsureProfile(ctx, nil).Await()
		require.NoError(t, err)
		assert.False(t, created)
	})
}

func ptr(s string) *string { return &s }
