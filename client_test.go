package directauth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/directauth"
	"github.com/dmitrymomot/directauth/backend"
	"github.com/dmitrymomot/directauth/backend/backendtest"
	"github.com/dmitrymomot/directauth/pkg/account"
	"github.com/dmitrymomot/directauth/pkg/event"
	"github.com/dmitrymomot/directauth/pkg/profile"
	"github.com/dmitrymomot/directauth/pkg/session"
)

var testUserID = uuid.MustParse("be0e1746-2a35-44d5-9a0e-2194890ae776")

func sessionForUser(id uuid.UUID) *backend.Session {
	return &backend.Session{
		AccessToken: "access-token",
		User: &backend.User{
			ID:       id.String(),
			Email:    "user@example.com",
			Metadata: map[string]string{"first_name": "Jane"},
		},
	}
}

// profileStore is an in-memory profile.Store for façade-level tests.
type profileStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*profile.User
}

func newProfileStore() *profileStore {
	return &profileStore{rows: make(map[uuid.UUID]*profile.User)}
}

func (s *profileStore) Get(ctx context.Context, id uuid.UUID) (*profile.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.rows[id]
	if !ok {
		return nil, profile.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *profileStore) Insert(ctx context.Context, user *profile.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[user.ID]; !exists {
		clone := *user
		s.rows[user.ID] = &clone
	}
	return nil
}

func (s *profileStore) Update(ctx context.Context, id uuid.UUID, params profile.UpdateParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.rows[id]
	if !ok {
		return profile.ErrNotFound
	}
	if params.DisplayName != nil {
		user.DisplayName = params.DisplayName
	}
	return nil
}

func unreachableProvider() *backendtest.Provider {
	return &backendtest.Provider{
		SessionFunc: func(ctx context.Context) (*backend.Session, error) {
			return nil, errors.New("connection refused")
		},
	}
}

func TestClient_OfflineMode(t *testing.T) {
	ctx := context.Background()

	t.Run("missing credentials degrade to offline", func(t *testing.T) {
		client := directauth.New(directauth.Config{})
		defer client.Destroy()

		client.Initialize(ctx)
		assert.False(t, client.IsReady())
		assert.True(t, client.IsOffline())
	})

	t.Run("failed probe degrades to offline", func(t *testing.T) {
		client := directauth.New(directauth.Config{}, directauth.WithProvider(unreachableProvider()))
		defer client.Destroy()

		client.Initialize(ctx)
		assert.True(t, client.IsOffline())
	})

	t.Run("network operations short-circuit without a network attempt", func(t *testing.T) {
		provider := unreachableProvider()
		client := directauth.New(directauth.Config{}, directauth.WithProvider(provider))
		defer client.Destroy()

		client.Initialize(ctx)
		require.True(t, client.IsOffline())
		baseline := provider.TotalCalls()

		err := client.SignIn(ctx, "user@example.com", "password1")
		require.Error(t, err)
		assert.Equal(t, "Cannot sign in while in offline mode", err.Error())

		var authErr *account.Error
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, account.KindOffline, authErr.Kind)

		assert.Error(t, client.SignUp(ctx, account.SignUpParams{Email: "a@b.co", Password: "password1"}))
		assert.Error(t, client.ResetPassword(ctx, "user@example.com"))
		_, err = client.SignInWithOAuth(ctx, "google", "")
		assert.Error(t, err)
		assert.Error(t, client.UpdateUser(ctx, profile.UpdateParams{}))
		assert.Nil(t, client.User(ctx))
		_, err = client.ListFiles(ctx, "")
		assert.Error(t, err)

		assert.Equal(t, baseline, provider.TotalCalls(), "offline mode must not touch the network")
	})

	t.Run("offline is sticky until reinitialize", func(t *testing.T) {
		healthy := false
		provider := &backendtest.Provider{
			SessionFunc: func(ctx context.Context) (*backend.Session, error) {
				if !healthy {
					return nil, errors.New("connection refused")
				}
				return nil, nil
			},
		}

		client := directauth.New(directauth.Config{}, directauth.WithProvider(provider))
		defer client.Destroy()

		client.Initialize(ctx)
		require.True(t, client.IsOffline())

		healthy = true
		client.Initialize(ctx)
		assert.True(t, client.IsOffline(), "initialize does not clear sticky offline")

		client.Reinitialize(ctx)
		assert.True(t, client.IsReady())
		assert.False(t, client.IsOffline())
	})
}

func TestClient_Initialize(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent once ready", func(t *testing.T) {
		provider := &backendtest.Provider{}
		client := directauth.New(directauth.Config{}, directauth.WithProvider(provider))
		defer client.Destroy()

		client.Initialize(ctx)
		require.True(t, client.IsReady())
		probes := provider.Calls("session")

		client.Initialize(ctx)
		assert.Equal(t, probes, provider.Calls("session"), "repeat initialize is a no-op")
	})

	t.Run("detects an existing session and emits login", func(t *testing.T) {
		provider := &backendtest.Provider{
			SessionFunc: func(ctx context.Context) (*backend.Session, error) {
				return sessionForUser(testUserID), nil
			},
		}

		client := directauth.New(directauth.Config{}, directauth.WithProvider(provider))
		defer client.Destroy()

		var loginPayload any
		logins := 0
		client.On(event.Login, func(p any) {
			logins++
			loginPayload = p
		})

		client.Initialize(ctx)
		require.True(t, client.IsReady())

		id, ok := client.UserID(ctx)
		require.True(t, ok)
		assert.Equal(t, testUserID.String(), id)

		assert.Equal(t, 1, logins)
		sess, ok := loginPayload.(*backend.Session)
		require.True(t, ok)
		assert.Equal(t, testUserID.String(), sess.User.ID)
	})

	t.Run("no session means no login event", func(t *testing.T) {
		client := directauth.New(directauth.Config{}, directauth.WithProvider(&backendtest.Provider{}))
		defer client.Destroy()

		logins := 0
		client.On(event.Login, func(any) { logins++ })

		client.Initialize(ctx)
		require.True(t, client.IsReady())
		assert.Zero(t, logins)

		_, ok := client.UserID(ctx)
		assert.False(t, ok)
	})
}

func TestClient_SignInFlow(t *testing.T) {
	ctx := context.Background()

	provider := &backendtest.Provider{}
	provider.SignInFunc = func(ctx context.Context, creds backend.Credentials) (*backend.Session, error) {
		sess := sessionForUser(testUserID)
		provider.Emit(backend.AuthChange{Event: backend.SignedIn, Session: sess})
		return sess, nil
	}

	store := newProfileStore()
	client := directauth.New(directauth.Config{},
		directauth.WithProvider(provider),
		directauth.WithProfileStore(store))
	defer client.Destroy()

	var idAtEmit string
	client.On(event.Login, func(any) {
		idAtEmit, _ = client.UserID(ctx)
	})

	client.Initialize(ctx)
	require.True(t, client.IsReady())

	require.NoError(t, client.SignIn(ctx, "user@example.com", "password1"))

	assert.True(t, client.IsAuthenticated(ctx))
	assert.Equal(t, testUserID.String(), idAtEmit, "identity is persisted before the login event fires")

	// Provisioning runs detached from the sign-in path.
	require.Eventually(t, func() bool {
		user := client.User(ctx)
		return user != nil && user.ID == testUserID
	}, time.Second, 10*time.Millisecond, "profile row is auto-provisioned after sign-in")

	user := client.User(ctx)
	require.NotNil(t, user)
	assert.Equal(t, "user@example.com", user.Email)
	assert.Equal(t, profile.DefaultRole, user.Role)
}

func TestClient_SignOut(t *testing.T) {
	ctx := context.Background()

	t.Run("clears local state and emits logout", func(t *testing.T) {
		provider := &backendtest.Provider{
			SessionFunc: func(ctx context.Context) (*backend.Session, error) {
				return sessionForUser(testUserID), nil
			},
		}

		client := directauth.New(directauth.Config{}, directauth.WithProvider(provider))
		defer client.Destroy()

		client.Initialize(ctx)
		require.True(t, client.IsAuthenticated(ctx))

		logouts := 0
		client.On(event.Logout, func(any) { logouts++ })

		client.SignOut(ctx)

		assert.False(t, client.IsAuthenticated(ctx))
		assert.Equal(t, 1, logouts)
		assert.Equal(t, 1, provider.Calls("sign_out"))
	})

	t.Run("proceeds in offline mode", func(t *testing.T) {
		identity := session.NewMemoryStore()
		require.NoError(t, identity.Set(ctx, testUserID.String()))

		client := directauth.New(directauth.Config{},
			directauth.WithProvider(unreachableProvider()),
			directauth.WithIdentityStore(identity))
		defer client.Destroy()

		client.Initialize(ctx)
		require.True(t, client.IsOffline())
		require.True(t, client.IsAuthenticated(ctx))

		logouts := 0
		client.On(event.Logout, func(any) { logouts++ })

		client.SignOut(ctx)

		assert.False(t, client.IsAuthenticated(ctx), "local state is cleared even offline")
		assert.Equal(t, 1, logouts)
	})
}

// Drives the default HTTP provider end to end: the provider's own SignedOut
// dispatch and the account service's direct clearing must collapse into a
// single Logout emission.
func TestClient_SignOutWithHTTPProvider(t *testing.T) {
	ctx := context.Background()

	r := chi.NewRouter()
	r.Post("/auth/v1/token", func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewEncoder(w).Encode(backend.Session{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			TokenType:    "bearer",
			ExpiresIn:    3600,
			User:         &backend.User{ID: testUserID.String(), Email: "user@example.com"},
		})
	})
	r.Post("/auth/v1/logout", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	client := directauth.New(directauth.Config{BackendURL: srv.URL, BackendKey: "anon-key"})
	defer client.Destroy()

	client.Initialize(ctx)
	require.True(t, client.IsReady())

	logins := 0
	logouts := 0
	client.On(event.Login, func(any) { logins++ })
	client.On(event.Logout, func(any) { logouts++ })

	require.NoError(t, client.SignIn(ctx, "user@example.com", "password1"))
	require.True(t, client.IsAuthenticated(ctx))

	client.SignOut(ctx)

	assert.False(t, client.IsAuthenticated(ctx))
	assert.Equal(t, 1, logins)
	assert.Equal(t, 1, logouts, "one sign-out must emit exactly one logout")
}

func TestClient_IdentityStoreWiring(t *testing.T) {
	ctx := context.Background()

	t.Run("bad redis URL falls back to in-memory identity", func(t *testing.T) {
		provider := &backendtest.Provider{
			SessionFunc: func(ctx context.Context) (*backend.Session, error) {
				return sessionForUser(testUserID), nil
			},
		}

		client := directauth.New(directauth.Config{RedisURL: "not-a-redis-url"},
			directauth.WithProvider(provider))
		defer client.Destroy()

		client.Initialize(ctx)
		require.True(t, client.IsReady())

		id, ok := client.UserID(ctx)
		require.True(t, ok, "identity persists in the fallback store")
		assert.Equal(t, testUserID.String(), id)
	})

	t.Run("injected store wins over redis config", func(t *testing.T) {
		identity := session.NewMemoryStore()
		require.NoError(t, identity.Set(ctx, testUserID.String()))

		client := directauth.New(
			directauth.Config{RedisURL: "redis://localhost:6379/0"},
			directauth.WithProvider(&backendtest.Provider{}),
			directauth.WithIdentityStore(identity))
		defer client.Destroy()

		id, ok := client.UserID(ctx)
		require.True(t, ok)
		assert.Equal(t, testUserID.String(), id)
	})
}

func TestClient_SessionStatus(t *testing.T) {
	ctx := context.Background()

	client := directauth.New(directauth.Config{}, directauth.WithProvider(&backendtest.Provider{}))
	defer client.Destroy()
	client.Initialize(ctx)

	ok, reason := client.SessionStatus(ctx)
	assert.False(t, ok)
	assert.NotEmpty(t, reason)
}

func TestClient_Storage(t *testing.T) {
	ctx := context.Background()

	client := directauth.New(directauth.Config{}, directauth.WithProvider(&backendtest.Provider{}))
	defer client.Destroy()
	client.Initialize(ctx)
	require.True(t, client.IsReady())

	err := client.UploadContent(ctx, "a.txt", []byte("x"), "text/plain")
	assert.ErrorIs(t, err, directauth.ErrStorageNotConfigured)

	_, err = client.DownloadFile(ctx, "a.txt")
	assert.ErrorIs(t, err, directauth.ErrStorageNotConfigured)
}

func TestClient_Lifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("operations fail before initialize", func(t *testing.T) {
		client := directauth.New(directauth.Config{}, directauth.WithProvider(&backendtest.Provider{}))
		defer client.Destroy()

		err := client.SignIn(ctx, "user@example.com", "password1")
		assert.ErrorIs(t, err, directauth.ErrNotInitialized)
	})

	t.Run("destroy is idempotent and terminal", func(t *testing.T) {
		client := directauth.New(directauth.Config{}, directauth.WithProvider(&backendtest.Provider{}))
		client.Initialize(ctx)

		client.Destroy()
		client.Destroy()

		assert.False(t, client.IsReady())
		err := client.SignIn(ctx, "user@example.com", "password1")
		assert.ErrorIs(t, err, directauth.ErrDestroyed)
	})

	t.Run("shutdown signs out then destroys", func(t *testing.T) {
		provider := &backendtest.Provider{
			SessionFunc: func(ctx context.Context) (*backend.Session, error) {
				return sessionForUser(testUserID), nil
			},
		}

		client := directauth.New(directauth.Config{}, directauth.WithProvider(provider))
		client.Initialize(ctx)
		require.True(t, client.IsAuthenticated(ctx))

		client.Shutdown(ctx)

		assert.Equal(t, 1, provider.Calls("sign_out"))
		assert.False(t, client.IsReady())
	})
}
