package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// HTTPProvider implements AuthProvider against the hosted platform's REST
// auth endpoints. It keeps the current session in memory and notifies
// subscribers about every transition it performs, so the façade's auth-change
// subscription works without polling.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client

	mu        sync.RWMutex
	current   *Session
	listeners map[int]func(AuthChange)
	nextID    int
}

// HTTPOption configures an HTTPProvider.
type HTTPOption func(*HTTPProvider)

// WithHTTPClient sets a custom HTTP client, e.g. with an instrumented
// transport.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(p *HTTPProvider) {
		if client != nil {
			p.client = client
		}
	}
}

// NewHTTPProvider creates a provider for the platform at baseURL
// authenticated with the project API key.
func NewHTTPProvider(baseURL, apiKey string, opts ...HTTPOption) (*HTTPProvider, error) {
	if strings.TrimSpace(baseURL) == "" || strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingCredentials
	}

	p := &HTTPProvider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		client:    &http.Client{},
		listeners: make(map[int]func(AuthChange)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *HTTPProvider) SignInWithPassword(ctx context.Context, creds Credentials) (*Session, error) {
	session, err := p.tokenRequest(ctx, "password", map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
	})
	if err != nil {
		return nil, err
	}

	p.setSession(session)
	p.dispatch(AuthChange{Event: SignedIn, Session: session})
	return session, nil
}

func (p *HTTPProvider) SignUp(ctx context.Context, data SignUpData) (*Session, error) {
	body := map[string]any{
		"email":    data.Email,
		"password": data.Password,
	}
	if len(data.Metadata) > 0 {
		body["data"] = data.Metadata
	}

	var session Session
	if err := p.do(ctx, http.MethodPost, "/auth/v1/signup", nil, body, &session); err != nil {
		return nil, err
	}

	// Confirmation-required projects return a user without tokens.
	if session.AccessToken == "" {
		return nil, nil
	}

	normalizeExpiry(&session)
	p.setSession(&session)
	p.dispatch(AuthChange{Event: SignedIn, Session: &session})
	return &session, nil
}

func (p *HTTPProvider) SignOut(ctx context.Context) error {
	p.mu.RLock()
	current := p.current
	p.mu.RUnlock()

	var reqErr error
	if current != nil {
		reqErr = p.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, nil)
	}

	// Local state is dropped even when revocation fails; a dead token on the
	// server is preferable to a client stuck signed in.
	p.setSession(nil)
	p.dispatch(AuthChange{Event: SignedOut})
	return reqErr
}

func (p *HTTPProvider) ResetPassword(ctx context.Context, email, redirectTo string) error {
	query := url.Values{}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}
	return p.do(ctx, http.MethodPost, "/auth/v1/recover", query, map[string]string{"email": email}, nil)
}

func (p *HTTPProvider) OAuthURL(_ context.Context, provider, redirectTo string) (string, error) {
	if provider == "" {
		return "", &Error{Status: http.StatusBadRequest, Message: "missing oauth provider"}
	}
	query := url.Values{"provider": {provider}}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}
	return p.baseURL + "/auth/v1/authorize?" + query.Encode(), nil
}

func (p *HTTPProvider) Session(ctx context.Context) (*Session, error) {
	p.mu.RLock()
	current := p.current
	p.mu.RUnlock()

	if current == nil {
		return nil, nil
	}
	if !current.Expired() {
		return current, nil
	}
	if current.RefreshToken == "" {
		p.setSession(nil)
		return nil, ErrNoSession
	}

	session, err := p.tokenRequest(ctx, "refresh_token", map[string]string{
		"refresh_token": current.RefreshToken,
	})
	if err != nil {
		return nil, err
	}

	p.setSession(session)
	p.dispatch(AuthChange{Event: TokenRefreshed, Session: session})
	return session, nil
}

func (p *HTTPProvider) OnAuthChange(fn func(AuthChange)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *HTTPProvider) tokenRequest(ctx context.Context, grantType string, body map[string]string) (*Session, error) {
	query := url.Values{"grant_type": {grantType}}

	var session Session
	if err := p.do(ctx, http.MethodPost, "/auth/v1/token", query, body, &session); err != nil {
		return nil, err
	}
	normalizeExpiry(&session)
	return &session, nil
}

func (p *HTTPProvider) setSession(session *Session) {
	p.mu.Lock()
	p.current = session
	p.mu.Unlock()
}

// dispatch notifies subscribers synchronously on a snapshot of the listener
// set, outside the lock.
func (p *HTTPProvider) dispatch(change AuthChange) {
	p.mu.RLock()
	snapshot := make([]func(AuthChange), 0, len(p.listeners))
	for _, fn := range p.listeners {
		snapshot = append(snapshot, fn)
	}
	p.mu.RUnlock()

	for _, fn := range snapshot {
		fn(change)
	}
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := p.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("apikey", p.apiKey)
	req.Header.Set("Authorization", "Bearer "+p.bearerToken())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return fmt.Errorf("backend: decode response: %w", err)
		}
	}
	return nil
}

// bearerToken prefers the live access token and falls back to the project
// API key for anonymous calls.
func (p *HTTPProvider) bearerToken() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.current != nil && p.current.AccessToken != "" {
		return p.current.AccessToken
	}
	return p.apiKey
}

func normalizeExpiry(session *Session) {
	if session.ExpiresAt == 0 && session.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Unix() + session.ExpiresIn
	}
}

// decodeError extracts the provider's error message from whichever of its
// known response shapes is present.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		ErrorField       string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(raw, &payload)

	message := payload.ErrorDescription
	for _, candidate := range []string{payload.Msg, payload.Message, payload.ErrorField} {
		if message == "" {
			message = candidate
		}
	}

	return &Error{Status: resp.StatusCode, Message: message}
}
