package directauth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/directauth/backend"
	"github.com/dmitrymomot/directauth/pkg/account"
	"github.com/dmitrymomot/directauth/pkg/event"
	"github.com/dmitrymomot/directauth/pkg/profile"
	"github.com/dmitrymomot/directauth/pkg/session"
	"github.com/dmitrymomot/directauth/pkg/storage"
)

type state int

const (
	stateUninitialized state = iota
	stateInitializing
	stateReady
	stateOffline
	stateDestroyed
)

// Client is the façade coordinating the session, account, profile, and
// storage managers over one backend connection. Its lifecycle is
// uninitialized, initializing, then ready or offline; offline is sticky
// until Reinitialize. All methods are safe for concurrent use.
type Client struct {
	mu    sync.Mutex
	state state

	cfg Config
	log *slog.Logger

	provider    backend.AuthProvider
	providerErr error

	emitter  *event.Emitter
	sessions *session.Manager
	accounts *account.Service
	profiles *profile.Manager
	files    storage.Backend

	unsubscribe func()
}

// New wires a client from the configuration. Construction never fails:
// missing credentials or a bad backend URL leave the client able to run
// only in offline mode, which Initialize reports via IsOffline.
func New(cfg Config, opts ...Option) *Client {
	o := &options{log: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	c := &Client{
		cfg:     cfg,
		log:     o.log,
		emitter: event.New(event.WithLogger(o.log)),
	}

	provider := o.provider
	if provider == nil {
		p, err := backend.NewHTTPProvider(cfg.BackendURL, cfg.BackendKey)
		if err != nil {
			c.providerErr = err
			provider = unavailableProvider{err: err}
		} else {
			provider = p
		}
	}
	c.provider = provider

	c.sessions = session.New(provider, c.identityStore(o), c.emitter, session.WithLogger(o.log))

	accountOpts := []account.Option{account.WithLogger(o.log)}
	if cfg.SiteURL != "" {
		accountOpts = append(accountOpts, account.WithSiteURL(cfg.SiteURL))
	}
	if o.policy != nil {
		accountOpts = append(accountOpts, account.WithPasswordPolicy(o.policy))
	}
	c.accounts = account.New(provider, c.sessions, accountOpts...)

	profileStore := o.profileStore
	if profileStore == nil {
		profileStore = nullProfileStore{}
	}
	c.profiles = profile.New(profileStore, c.sessions, provider, c.emitter, profile.WithLogger(o.log))

	c.files = o.storageBackend
	if c.files == nil && cfg.BackendURL != "" && cfg.AppSlug != "" {
		sc, err := storage.NewClient(cfg.BackendURL, cfg.AppSlug, func(ctx context.Context) string {
			return c.sessions.AccessToken(ctx)
		}, storage.WithLogger(o.log))
		if err != nil {
			o.log.Warn("storage client unavailable", "error", err)
		} else {
			c.files = sc
		}
	}

	// Established once for the client's lifetime. Externally triggered
	// transitions (OAuth completion, token refresh failure) reach local
	// state through this subscription without polling.
	c.unsubscribe = provider.OnAuthChange(c.onAuthChange)

	return c
}

// identityStore resolves where the remembered user identifier lives: an
// injected store, Redis under the configured identity key, or process
// memory. Redis wiring failures fall back to memory so construction cannot
// fail.
func (c *Client) identityStore(o *options) session.Store {
	if o.identityStore != nil {
		return o.identityStore
	}
	if c.cfg.RedisURL == "" {
		return nil
	}

	redisOpts, err := redis.ParseURL(c.cfg.RedisURL)
	if err != nil {
		c.log.Warn("invalid redis URL, keeping identity in memory", "error", err)
		return nil
	}

	key := c.cfg.IdentityKey
	if key == "" {
		key = defaultIdentityKey
	}
	store, err := session.NewRedisStore(redis.NewClient(redisOpts), key)
	if err != nil {
		c.log.Warn("redis identity store unavailable, keeping identity in memory", "error", err)
		return nil
	}
	return store
}

func (c *Client) onAuthChange(change backend.AuthChange) {
	ctx := context.Background()
	switch change.Event {
	case backend.SignedIn:
		if change.Session == nil || change.Session.User == nil {
			return
		}
		c.sessions.HandleAuth(ctx, change.Session.User.ID)
		c.profiles.EnsureProfile(ctx, change.Session.User)
	case backend.SignedOut:
		c.sessions.HandleSignOut(ctx)
	}
}

// Initialize brings the client into the ready state: connectivity probe,
// existing-session detection, and reconciliation against the backend. Any
// failure degrades to offline mode instead of propagating; a login event is
// emitted when a valid session is found. Calling it again once ready is a
// no-op.
func (c *Client) Initialize(ctx context.Context) {
	c.mu.Lock()
	if c.state == stateReady || c.state == stateInitializing || c.state == stateDestroyed {
		c.mu.Unlock()
		return
	}
	c.state = stateInitializing
	c.mu.Unlock()

	ready := c.bringUp(ctx)

	c.mu.Lock()
	if ready {
		c.state = stateReady
	} else {
		c.state = stateOffline
	}
	c.mu.Unlock()
}

func (c *Client) bringUp(ctx context.Context) bool {
	if c.providerErr != nil {
		c.log.Warn("entering offline mode, backend client unavailable", "error", c.providerErr)
		return false
	}
	if !c.sessions.Connected(ctx) {
		c.log.Warn("entering offline mode, connectivity probe failed")
		return false
	}

	if c.sessions.ValidateAndSync(ctx) {
		if id, ok := c.sessions.UserID(ctx); ok {
			c.sessions.HandleAuth(ctx, id)
		}
	}
	return true
}

// Reinitialize clears sticky offline mode and runs the initialization
// sequence again.
func (c *Client) Reinitialize(ctx context.Context) {
	c.mu.Lock()
	if c.state == stateDestroyed {
		c.mu.Unlock()
		return
	}
	c.state = stateUninitialized
	c.mu.Unlock()

	c.Initialize(ctx)
}

// IsReady reports whether the client completed initialization online.
func (c *Client) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateReady
}

// IsOffline reports whether the client degraded to offline mode.
func (c *Client) IsOffline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateOffline
}

// guard rejects network-bound operations unless the client is ready. The
// offline rejection carries a user-facing message naming the action.
func (c *Client) guard(action string) error {
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()

	switch st {
	case stateReady:
		return nil
	case stateOffline:
		return &account.Error{
			Kind:    account.KindOffline,
			Message: fmt.Sprintf("Cannot %s while in offline mode", action),
		}
	case stateDestroyed:
		return ErrDestroyed
	default:
		return ErrNotInitialized
	}
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	if err := c.guard("sign in"); err != nil {
		return err
	}
	return c.accounts.SignIn(ctx, account.SignInParams{Email: email, Password: password})
}

// SignUp registers a new account.
func (c *Client) SignUp(ctx context.Context, params account.SignUpParams) error {
	if err := c.guard("sign up"); err != nil {
		return err
	}
	return c.accounts.SignUp(ctx, params)
}

// ResetPassword requests a password reset email.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	if err := c.guard("reset password"); err != nil {
		return err
	}
	return c.accounts.ResetPassword(ctx, email)
}

// SignInWithOAuth returns the authorization URL to redirect the user to.
func (c *Client) SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	if err := c.guard("sign in with OAuth"); err != nil {
		return "", err
	}
	return c.accounts.SignInWithOAuth(ctx, provider, redirectTo)
}

// SignOut always proceeds, including in offline mode, so local state can
// always be cleared. Backend failures are logged, never surfaced.
func (c *Client) SignOut(ctx context.Context) {
	c.mu.Lock()
	destroyed := c.state == stateDestroyed
	c.mu.Unlock()
	if destroyed {
		return
	}
	c.accounts.SignOut(ctx)
}

// IsAuthenticated answers from local state only, without network access.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	return c.sessions.IsAuthenticated(ctx)
}

// UserID returns the locally stored user identifier. Available offline.
func (c *Client) UserID(ctx context.Context) (string, bool) {
	return c.sessions.UserID(ctx)
}

// SessionStatus reports authentication state, local-first, with a failure
// reason when unauthenticated.
func (c *Client) SessionStatus(ctx context.Context) (bool, string) {
	return c.sessions.Status(ctx)
}

// User returns the authenticated identity's profile row, or nil when the
// client is not ready or no profile can be produced.
func (c *Client) User(ctx context.Context) *profile.User {
	if err := c.guard("get user"); err != nil {
		c.log.Warn("user lookup rejected", "error", err)
		return nil
	}
	return c.profiles.Get(ctx)
}

// UpdateUser mutates the authenticated identity's profile fields.
func (c *Client) UpdateUser(ctx context.Context, params profile.UpdateParams) error {
	if err := c.guard("update user"); err != nil {
		return err
	}
	return c.profiles.Update(ctx, params)
}

// UploadFile uploads a file to the application storage namespace.
func (c *Client) UploadFile(ctx context.Context, path string, r io.Reader, contentType string) error {
	if err := c.storageGuard("upload files"); err != nil {
		return err
	}
	return c.files.Upload(ctx, path, r, contentType)
}

// UploadContent uploads in-memory content.
func (c *Client) UploadContent(ctx context.Context, path string, content []byte, contentType string) error {
	if err := c.storageGuard("upload files"); err != nil {
		return err
	}
	return c.files.UploadContent(ctx, path, content, contentType)
}

// DownloadFile fetches the raw content of a stored file.
func (c *Client) DownloadFile(ctx context.Context, path string) ([]byte, error) {
	if err := c.storageGuard("download files"); err != nil {
		return nil, err
	}
	return c.files.Download(ctx, path)
}

// ListFiles returns the stored objects under the optional prefix.
func (c *Client) ListFiles(ctx context.Context, prefix string) ([]storage.Object, error) {
	if err := c.storageGuard("list files"); err != nil {
		return nil, err
	}
	return c.files.List(ctx, prefix)
}

// FileInfo returns the metadata of one stored file.
func (c *Client) FileInfo(ctx context.Context, path string) (*storage.Object, error) {
	if err := c.storageGuard("get file info"); err != nil {
		return nil, err
	}
	return c.files.Info(ctx, path)
}

// DeleteFile removes one stored file.
func (c *Client) DeleteFile(ctx context.Context, path string) error {
	if err := c.storageGuard("delete files"); err != nil {
		return err
	}
	return c.files.Delete(ctx, path)
}

func (c *Client) storageGuard(action string) error {
	if err := c.guard(action); err != nil {
		return err
	}
	if c.files == nil {
		return ErrStorageNotConfigured
	}
	return nil
}

// On registers a listener for login, logout, or user_updated events.
// Available in every state.
func (c *Client) On(evt event.Type, fn event.Listener) event.Registration {
	return c.emitter.On(evt, fn)
}

// Off removes a previously registered listener.
func (c *Client) Off(reg event.Registration) {
	c.emitter.Off(reg)
}

// Destroy tears the client down synchronously. Each teardown step is
// isolated, so one failure cannot keep the rest from running. The client
// cannot be used afterwards.
func (c *Client) Destroy() {
	c.mu.Lock()
	if c.state == stateDestroyed {
		c.mu.Unlock()
		return
	}
	c.state = stateDestroyed
	c.mu.Unlock()

	c.teardown("auth change subscription", func() {
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
	})
	c.teardown("event emitter", c.emitter.Close)
}

func (c *Client) teardown(component string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("teardown step failed", "component", component, "panic", r)
		}
	}()
	fn()
}

// Shutdown attempts a network sign-out first, then destroys the client
// regardless of the outcome.
func (c *Client) Shutdown(ctx context.Context) {
	c.SignOut(ctx)
	c.Destroy()
}

// unavailableProvider stands in when backend client construction failed so
// the managers stay wired and offline-safe methods keep working.
type unavailableProvider struct {
	err error
}

func (p unavailableProvider) SignInWithPassword(ctx context.Context, creds backend.Credentials) (*backend.Session, error) {
	return nil, p.err
}

func (p unavailableProvider) SignUp(ctx context.Context, data backend.SignUpData) (*backend.Session, error) {
	return nil, p.err
}

func (p unavailableProvider) SignOut(ctx context.Context) error { return nil }

func (p unavailableProvider) ResetPassword(ctx context.Context, email, redirectTo string) error {
	return p.err
}

func (p unavailableProvider) OAuthURL(ctx context.Context, provider, redirectTo string) (string, error) {
	return "", p.err
}

func (p unavailableProvider) Session(ctx context.Context) (*backend.Session, error) {
	return nil, p.err
}

func (p unavailableProvider) OnAuthChange(fn func(backend.AuthChange)) func() {
	return func() {}
}

// nullProfileStore is used when no profile store is configured; reads miss
// and writes fail so lazy provisioning stays a logged no-op.
type nullProfileStore struct{}

func (nullProfileStore) Get(ctx context.Context, id uuid.UUID) (*profile.User, error) {
	return nil, profile.ErrNotFound
}

func (nullProfileStore) Insert(ctx context.Context, user *profile.User) error {
	return ErrNoProfileStore
}

func (nullProfileStore) Update(ctx context.Context, id uuid.UUID, params profile.UpdateParams) error {
	return profile.ErrNotFound
}
