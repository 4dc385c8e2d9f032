package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/directauth/backend"
	"github.com/dmitrymomot/directauth/pkg/async"
	"github.com/dmitrymomot/directauth/pkg/sanitize"
	"github.com/dmitrymomot/directauth/pkg/session"
	"github.com/dmitrymomot/directauth/pkg/validate"
)

// MaxNameLength caps free-text profile fields carried in sign-up metadata.
const MaxNameLength = 100

// Config holds the time budgets for auth mutations.
type Config struct {
	// MutationTimeout bounds sign-in, sign-up, reset, and OAuth initiation (default: 10s)
	MutationTimeout time.Duration `env:"DIRECTAUTH_AUTH_TIMEOUT" envDefault:"10s"`

	// SignOutTimeout bounds the best-effort backend sign-out (default: 5s)
	SignOutTimeout time.Duration `env:"DIRECTAUTH_SIGNOUT_TIMEOUT" envDefault:"5s"`
}

// DefaultConfig returns the default time budgets.
func DefaultConfig() Config {
	return Config{
		MutationTimeout: 10 * time.Second,
		SignOutTimeout:  5 * time.Second,
	}
}

// Service executes the auth verbs: it validates and sanitizes input before
// delegating to the backend, and converts backend failures into
// user-presentable *Error values. It holds no state of its own beyond its
// dependencies.
type Service struct {
	provider backend.AuthProvider
	sessions *session.Manager
	policy   validate.PasswordPolicy
	siteURL  string
	cfg      Config
	log      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPasswordPolicy replaces the default length-only password check.
func WithPasswordPolicy(policy validate.PasswordPolicy) Option {
	return func(s *Service) {
		if policy != nil {
			s.policy = policy
		}
	}
}

// WithSiteURL sets the application origin used as the fallback OAuth
// redirect target.
func WithSiteURL(siteURL string) Option {
	return func(s *Service) { s.siteURL = siteURL }
}

// WithConfig overrides the default time budgets.
func WithConfig(cfg Config) Option {
	return func(s *Service) { s.cfg = cfg }
}

// WithLogger sets the logger for suppressed sign-out failures.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates an account service.
func New(provider backend.AuthProvider, sessions *session.Manager, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		sessions: sessions,
		policy:   validate.MinLengthPolicy(6),
		cfg:      DefaultConfig(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignInParams carries a password sign-in request.
type SignInParams struct {
	Email    string
	Password string
}

// SignIn validates and sanitizes credentials, then performs the backend
// sign-in under the mutation time budget. The returned error, if any, is a
// *Error safe to render.
func (s *Service) SignIn(ctx context.Context, params SignInParams) error {
	if err := validate.Apply(
		validate.RequiredString("email", params.Email),
		validate.RequiredString("password", params.Password),
		validate.ValidEmail("email", sanitize.TrimToLower(params.Email)),
	); err != nil {
		return validationError(err)
	}

	email := sanitize.NormalizeEmail(params.Email)

	_, err := async.WithTimeout(ctx, s.cfg.MutationTimeout, "sign in",
		func(ctx context.Context) (*backend.Session, error) {
			return s.provider.SignInWithPassword(ctx, backend.Credentials{
				Email:    email,
				Password: params.Password,
			})
		})
	if err != nil {
		return Translate(err)
	}
	return nil
}

// SignUpParams carries a registration request. Name fields are optional.
type SignUpParams struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	DisplayName string
}

// SignUp validates and sanitizes the registration data, then performs the
// backend sign-up under the mutation time budget. Name fields travel as
// provider metadata and come back on the profile row.
func (s *Service) SignUp(ctx context.Context, params SignUpParams) error {
	if err := validate.Apply(
		validate.RequiredString("email", params.Email),
		validate.ValidEmail("email", sanitize.TrimToLower(params.Email)),
		validate.StrongPassword("password", params.Password, s.policy),
		validate.MaxLenString("first_name", params.FirstName, MaxNameLength),
		validate.MaxLenString("last_name", params.LastName, MaxNameLength),
		validate.MaxLenString("display_name", params.DisplayName, MaxNameLength),
	); err != nil {
		return validationError(err)
	}

	metadata := map[string]string{}
	for key, value := range map[string]string{
		"first_name":   sanitize.Name(params.FirstName),
		"last_name":    sanitize.Name(params.LastName),
		"display_name": sanitize.Name(params.DisplayName),
	} {
		if value != "" {
			metadata[key] = value
		}
	}

	_, err := async.WithTimeout(ctx, s.cfg.MutationTimeout, "sign up",
		func(ctx context.Context) (*backend.Session, error) {
			return s.provider.SignUp(ctx, backend.SignUpData{
				Email:    sanitize.NormalizeEmail(params.Email),
				Password: params.Password,
				Metadata: metadata,
			})
		})
	if err != nil {
		return Translate(err)
	}
	return nil
}

// ResetPassword triggers the backend's password recovery email.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	if err := validate.Apply(
		validate.RequiredString("email", email),
		validate.ValidEmail("email", sanitize.TrimToLower(email)),
	); err != nil {
		return validationError(err)
	}

	_, err := async.WithTimeout(ctx, s.cfg.MutationTimeout, "reset password",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.provider.ResetPassword(ctx, sanitize.NormalizeEmail(email), s.siteURL)
		})
	if err != nil {
		return Translate(err)
	}
	return nil
}

// SignInWithOAuth validates the provider against the allow-list, resolves
// the redirect target (explicit argument, else the configured site URL), and
// returns the authorization URL that initiates the flow. Success means the
// flow was initiated; completion is observed asynchronously through the
// backend's auth-change subscription.
func (s *Service) SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	if !ValidOAuthProvider(provider) {
		return "", &Error{Kind: KindValidation, Message: "Unsupported sign-in provider: " + provider}
	}

	redirect := redirectTo
	if redirect == "" {
		redirect = s.siteURL
	}
	if redirect == "" {
		return "", &Error{Kind: KindValidation, Message: "No redirect URL available for OAuth sign-in"}
	}

	authURL, err := async.WithTimeout(ctx, s.cfg.MutationTimeout, "oauth sign in",
		func(ctx context.Context) (string, error) {
			return s.provider.OAuthURL(ctx, provider, redirect)
		})
	if err != nil {
		return "", Translate(err)
	}
	return authURL, nil
}

// SignOut signs out on the backend best-effort and always clears local
// session state. It never returns an error: local logout must succeed even
// when the network call fails.
func (s *Service) SignOut(ctx context.Context) {
	if _, err := async.WithTimeout(ctx, s.cfg.SignOutTimeout, "sign out",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.provider.SignOut(ctx)
		}); err != nil {
		s.log.Warn("backend sign-out failed, clearing local state anyway", "error", err)
	}

	s.sessions.HandleSignOut(ctx)
}

func validationError(err error) error {
	var ve validate.Error
	if errors.As(err, &ve) {
		return &Error{Kind: KindValidation, Message: ve.Message, Err: err}
	}
	return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
}
