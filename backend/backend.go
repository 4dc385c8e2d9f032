package backend

import (
	"context"
	"time"
)

// Session is the provider-issued token bundle. It is read on demand and
// never cached beyond a single call by the consuming managers; the provider
// implementation owns refresh.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *User  `json:"user,omitempty"`
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired() bool {
	if s == nil || s.ExpiresAt == 0 {
		return false
	}
	return time.Now().Unix() >= s.ExpiresAt
}

// User is the provider's view of an authenticated identity.
type User struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"user_metadata,omitempty"`
}

// ChangeEvent identifies an auth state transition reported by the provider.
type ChangeEvent string

const (
	SignedIn       ChangeEvent = "SIGNED_IN"
	SignedOut      ChangeEvent = "SIGNED_OUT"
	TokenRefreshed ChangeEvent = "TOKEN_REFRESHED"
)

// AuthChange is delivered to OnAuthChange subscribers whenever the provider's
// session state changes, including changes the application did not initiate
// (OAuth redirect completion, background token refresh).
type AuthChange struct {
	Event   ChangeEvent
	Session *Session
}

// Credentials carries a password sign-in request.
type Credentials struct {
	Email    string
	Password string
}

// SignUpData carries a registration request. Metadata travels to the provider
// verbatim and comes back on the User.
type SignUpData struct {
	Email    string
	Password string
	Metadata map[string]string
}

// AuthProvider abstracts the hosted platform's auth surface behind a minimal,
// provider-agnostic interface. Implementations own all protocol details and
// must be safe for concurrent use.
type AuthProvider interface {
	// SignInWithPassword exchanges credentials for a session.
	SignInWithPassword(ctx context.Context, creds Credentials) (*Session, error)

	// SignUp registers a new identity. Depending on provider settings the
	// returned session may be nil (email confirmation pending).
	SignUp(ctx context.Context, data SignUpData) (*Session, error)

	// SignOut revokes the current session on the provider side.
	SignOut(ctx context.Context) error

	// ResetPassword triggers the provider's password recovery email.
	ResetPassword(ctx context.Context, email, redirectTo string) error

	// OAuthURL returns the authorization URL that initiates the provider's
	// OAuth redirect flow. Completion is observed via OnAuthChange.
	OAuthURL(ctx context.Context, provider, redirectTo string) (string, error)

	// Session returns the live session, or nil when no identity is signed in.
	Session(ctx context.Context) (*Session, error)

	// OnAuthChange subscribes to auth state transitions. The returned
	// function removes the subscription.
	OnAuthChange(fn func(AuthChange)) (unsubscribe func())
}
