package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/directauth/backend"
	"github.com/dmitrymomot/directauth/backend/backendtest"
	"github.com/dmitrymomot/directauth/pkg/account"
	"github.com/dmitrymomot/directauth/pkg/event"
	"github.com/dmitrymomot/directauth/pkg/session"
)

const userID = "11111111-1111-1111-1111-111111111111"

func newService(provider *backendtest.Provider, opts ...account.Option) (*account.Service, *session.Manager) {
	sessions := session.New(provider, nil, event.New())
	return account.New(provider, sessions, opts...), sessions
}

func authKind(t *testing.T, err error) account.Kind {
	t.Helper()
	var authErr *account.Error
	require.ErrorAs(t, err, &authErr)
	return authErr.Kind
}

func TestService_SignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		provider := &backendtest.Provider{
			SignInFunc: func(ctx context.Context, creds backend.Credentials) (*backend.Session, error) {
				assert.Equal(t, "a@b.com", creds.Email, "email lowercased and trimmed")
				return &backend.Session{AccessToken: "t", User: &backend.User{ID: userID}}, nil
			},
		}
		svc, _ := newService(provider)

		err := svc.SignIn(ctx, account.SignInParams{Email: "  A@B.com ", Password: "secret1"})
		assert.NoError(t, err)
	})

	t.Run("missing fields fail before any network call", func(t *testing.T) {
		provider := &backendtest.Provider{}
		svc, _ := newService(provider)

		err := svc.SignIn(ctx, account.SignInParams{Email: "", Password: "secret1"})
		assert.Equal(t, account.KindValidation, authKind(t, err))

		err = svc.SignIn(ctx, account.SignInParams{Email: "a@b.com", Password: ""})
		assert.Equal(t, account.KindValidation, authKind(t, err))

		err = svc.SignIn(ctx, account.SignInParams{Email: "not-an-email", Password: "secret1"})
		assert.Equal(t, account.KindValidation, authKind(t, err))

		assert.Zero(t, provider.TotalCalls())
	})

	t.Run("backend error is translated", func(t *testing.T) {
		provider := &backendtest.Provider{
			SignInFunc: func(ctx context.Context, creds backend.Credentials) (*backend.Session, error) {
				return nil, &backend.Error{Status: 400, Message: "Invalid login credentials"}
			},
		}
		svc, _ := newService(provider)

		err := svc.SignIn(ctx, account.SignInParams{Email: "a@b.com", Password: "wrong-pass"})
		assert.Equal(t, account.KindInvalidCredentials, authKind(t, err))
		assert.Equal(t, "Invalid email or password", err.Error())
	})

	t.Run("hanging backend resolves with timeout", func(t *testing.T) {
		block := make(chan struct{})
		defer close(block)

		provider := &backendtest.Provider{
			SignInFunc: func(ctx context.Context, creds backend.Credentials) (*backend.Session, error) {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-block:
					return nil, nil
				}
			},
		}
		svc, _ := newService(provider, account.WithConfig(account.Config{
			MutationTimeout: 30 * time.Millisecond,
			SignOutTimeout:  30 * time.Millisecond,
		}))

		start := time.Now()
		err := svc.SignIn(ctx, account.SignInParams{Email: "a@b.com", Password: "secret1"})
		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, account.KindTimeout, authKind(t, err))
		assert.Equal(t, "Request timeout", err.Error())
	})
}

func TestService_SignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("sanitized metadata reaches the backend", func(t *testing.T) {
		provider := &backendtest.Provider{
			SignUpFunc: func(ctx context.Context, data backend.SignUpData) (*backend.Session, error) {
				assert.Equal(t, "new@example.com", data.Email)
				assert.Equal(t, map[string]string{
					"first_name":   "Jane",
					"display_name": "JD",
				}, data.Metadata)
				return nil, nil
			},
		}
		svc, _ := newService(provider)

		err := svc.SignUp(ctx, account.SignUpParams{
			Email:       " New@Example.com ",
			Password:    "secret1",
			FirstName:   " <Jane> ",
			DisplayName: "JD",
		})
		assert.NoError(t, err)
	})

	t.Run("short password rejected", func(t *testing.T) {
		provider := &backendtest.Provider{}
		svc, _ := newService(provider)

		err := svc.SignUp(ctx, account.SignUpParams{Email: "a@b.com", Password: "abc"})
		assert.Equal(t, account.KindValidation, authKind(t, err))
		assert.Contains(t, err.Error(), "at least 6 characters")
		assert.Zero(t, provider.TotalCalls())
	})

	t.Run("oversized name rejected", func(t *testing.T) {
		long := make([]byte, account.MaxNameLength+1)
		for i := range long {
			long[i] = 'x'
		}
		svc, _ := newService(&backendtest.Provider{})

		err := svc.SignUp(ctx, account.SignUpParams{Email: "a@b.com", Password: "secret1", FirstName: string(long)})
		assert.Equal(t, account.KindValidation, authKind(t, err))
	})

	t.Run("duplicate registration translated", func(t *testing.T) {
		provider := &backendtest.Provider{
			SignUpFunc: func(ctx context.Context, data backend.SignUpData) (*backend.Session, error) {
				return nil, &backend.Error{Status: 422, Message: "User already registered"}
			},
		}
		svc, _ := newService(provider)

		err := svc.SignUp(ctx, account.SignUpParams{Email: "a@b.com", Password: "secret1"})
		assert.Equal(t, account.KindAlreadyRegistered, authKind(t, err))
		assert.Equal(t, "An account with this email already exists", err.Error())
	})
}

func TestService_ResetPassword(t *testing.T) {
	ctx := context.Background()

	provider := &backendtest.Provider{
		ResetPasswordFunc: func(ctx context.Context, email, redirectTo string) error {
			assert.Equal(t, "a@b.com", email)
			assert.Equal(t, "https://app.test", redirectTo)
			return nil
		},
	}
	svc, _ := newService(provider, account.WithSiteURL("https://app.test"))

	assert.NoError(t, svc.ResetPassword(ctx, " A@B.com "))

	err := svc.ResetPassword(ctx, "bad-email")
	assert.Equal(t, account.KindValidation, authKind(t, err))
}

func TestService_SignInWithOAuth(t *testing.T) {
	ctx := context.Background()

	t.Run("allowed provider with explicit redirect", func(t *testing.T) {
		provider := &backendtest.Provider{
			OAuthURLFunc: func(ctx context.Context, name, redirectTo string) (string, error) {
				assert.Equal(t, "github", name)
				assert.Equal(t, "https://app.test/cb", redirectTo)
				return "https://backend.test/authorize?provider=github", nil
			},
		}
		svc, _ := newService(provider)

		url, err := svc.SignInWithOAuth(ctx, "github", "https://app.test/cb")
		require.NoError(t, err)
		assert.Contains(t, url, "provider=github")
	})

	t.Run("site URL is the fallback redirect", func(t *testing.T) {
		provider := &backendtest.Provider{
			OAuthURLFunc: func(ctx context.Context, name, redirectTo string) (string, error) {
				assert.Equal(t, "https://app.test", redirectTo)
				return "ok", nil
			},
		}
		svc, _ := newService(provider, account.WithSiteURL("https://app.test"))

		_, err := svc.SignInWithOAuth(ctx, "google", "")
		assert.NoError(t, err)
	})

	t.Run("unknown provider rejected", func(t *testing.T) {
		provider := &backendtest.Provider{}
		svc, _ := newService(provider)

		_, err := svc.SignInWithOAuth(ctx, "myspace", "https://app.test/cb")
		assert.Equal(t, account.KindValidation, authKind(t, err))
		assert.Zero(t, provider.TotalCalls())
	})

	t.Run("no resolvable redirect rejected", func(t *testing.T) {
		svc, _ := newService(&backendtest.Provider{})

		_, err := svc.SignInWithOAuth(ctx, "google", "")
		assert.Equal(t, account.KindValidation, authKind(t, err))
	})
}

func TestService_SignOutUnconditional(t *testing.T) {
	ctx := context.Background()

	provider := &backendtest.Provider{
		SignOutFunc: func(ctx context.Context) error {
			return errors.New("network is down")
		},
	}
	svc, sessions := newService(provider)
	sessions.SaveUserID(ctx, userID)

	svc.SignOut(ctx)

	_, ok := sessions.UserID(ctx)
	assert.False(t, ok, "local state cleared even though backend sign-out failed")
	assert.Equal(t, 1, provider.Calls("sign_out"))
}

func TestValidOAuthProvider(t *testing.T) {
	for _, p := range []string{"google", "github", "discord", "facebook"} {
		assert.True(t, account.ValidOAuthProvider(p), p)
	}
	for _, p := range []string{"", "twitter", "GOOGLE"} {
		assert.False(t, account.ValidOAuthProvider(p), p)
	}
}

func TestNewDirectOAuth(t *testing.T) {
	adapter, err := account.NewDirectOAuth("github", "client-id", "client-secret", "https://app.test/cb", []string{"user:email"})
	require.NoError(t, err)
	assert.Equal(t, "github", adapter.Provider())

	url := adapter.AuthURL("state-123")
	assert.Contains(t, url, "github.com")
	assert.Contains(t, url, "state=state-123")
	assert.Contains(t, url, "client_id=client-id")

	_, err = account.NewDirectOAuth("myspace", "id", "", "https://app.test/cb", nil)
	assert.Error(t, err)

	_, err = account.NewDirectOAuth("google", "", "", "", nil)
	assert.Error(t, err)
}
