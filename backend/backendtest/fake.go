// Package backendtest provides a configurable in-process fake of
// backend.AuthProvider for tests. Behavior is injected through function
// fields; nil fields fall back to benign defaults. Every call is counted so
// tests can assert that an operation made no network attempt.
package backendtest

import (
	"context"
	"sync"

	"github.com/dmitrymomot/directauth/backend"
)

// Provider is a fake backend.AuthProvider. The zero value is usable: all
// operations succeed and report no session.
type Provider struct {
	SignInFunc        func(ctx context.Context, creds backend.Credentials) (*backend.Session, error)
	SignUpFunc        func(ctx context.Context, data backend.SignUpData) (*backend.Session, error)
	SignOutFunc       func(ctx context.Context) error
	ResetPasswordFunc func(ctx context.Context, email, redirectTo string) error
	OAuthURLFunc      func(ctx context.Context, provider, redirectTo string) (string, error)
	SessionFunc       func(ctx context.Context) (*backend.Session, error)

	mu        sync.Mutex
	calls     map[string]int
	listeners map[int]func(backend.AuthChange)
	nextID    int
}

func (p *Provider) record(op string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[op]++
}

// Calls returns how many times the named operation was invoked.
func (p *Provider) Calls(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

// TotalCalls returns the number of provider invocations across all operations.
func (p *Provider) TotalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, n := range p.calls {
		total += n
	}
	return total
}

func (p *Provider) SignInWithPassword(ctx context.Context, creds backend.Credentials) (*backend.Session, error) {
	p.record("sign_in")
	if p.SignInFunc != nil {
		return p.SignInFunc(ctx, creds)
	}
	return nil, nil
}

func (p *Provider) SignUp(ctx context.Context, data backend.SignUpData) (*backend.Session, error) {
	p.record("sign_up")
	if p.SignUpFunc != nil {
		return p.SignUpFunc(ctx, data)
	}
	return nil, nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	p.record("sign_out")
	if p.SignOutFunc != nil {
		return p.SignOutFunc(ctx)
	}
	return nil
}

func (p *Provider) ResetPassword(ctx context.Context, email, redirectTo string) error {
	p.record("reset_password")
	if p.ResetPasswordFunc != nil {
		return p.ResetPasswordFunc(ctx, email, redirectTo)
	}
	return nil
}

func (p *Provider) OAuthURL(ctx context.Context, provider, redirectTo string) (string, error) {
	p.record("oauth_url")
	if p.OAuthURLFunc != nil {
		return p.OAuthURLFunc(ctx, provider, redirectTo)
	}
	return "https://example.test/authorize?provider=" + provider, nil
}

func (p *Provider) Session(ctx context.Context) (*backend.Session, error) {
	p.record("session")
	if p.SessionFunc != nil {
		return p.SessionFunc(ctx)
	}
	return nil, nil
}

func (p *Provider) OnAuthChange(fn func(backend.AuthChange)) func() {
	p.mu.Lock()
	if p.listeners == nil {
		p.listeners = make(map[int]func(backend.AuthChange))
	}
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

// Emit delivers an auth change to all subscribers, simulating an
// externally-triggered transition such as an OAuth redirect completion.
func (p *Provider) Emit(change backend.AuthChange) {
	p.mu.Lock()
	snapshot := make([]func(backend.AuthChange), 0, len(p.listeners))
	for _, fn := range p.listeners {
		snapshot = append(snapshot, fn)
	}
	p.mu.Unlock()

	for _, fn := range snapshot {
		fn(change)
	}
}
