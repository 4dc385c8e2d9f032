package account

import (
	"errors"
	"strings"

	"github.com/dmitrymomot/directauth/pkg/async"
)

// Kind classifies an auth failure for programmatic branching. The original
// system matched raw backend message substrings at every call site; kinds
// replace that while UserMessage keeps the user-facing strings stable.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindInvalidCredentials
	KindEmailNotConfirmed
	KindAlreadyRegistered
	KindWeakPassword
	KindPermissionDenied
	KindTimeout
	KindNetwork
	KindOffline
)

// Error is the user-presentable auth failure. Message is safe to render
// directly; the underlying cause stays available through Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// messageRule maps a known backend message substring to a kind and the
// user-safe replacement string.
type messageRule struct {
	substr  string
	kind    Kind
	message string
}

var messageRules = []messageRule{
	{"invalid login credentials", KindInvalidCredentials, "Invalid email or password"},
	{"email not confirmed", KindEmailNotConfirmed, "Please confirm your email address before signing in"},
	{"user already registered", KindAlreadyRegistered, "An account with this email already exists"},
	{"already registered", KindAlreadyRegistered, "An account with this email already exists"},
	{"password should be at least", KindWeakPassword, "Password must be at least 6 characters"},
	{"row-level security", KindPermissionDenied, "You do not have permission to perform this action"},
	{"permission denied", KindPermissionDenied, "You do not have permission to perform this action"},
	{"timeout", KindTimeout, "Request timeout"},
	{"network", KindNetwork, "Network error - please check your connection and try again"},
}

// Tokens that mark a message as internal and unfit for end users.
var technicalTokens = []string{"pgrst", "jwt", "sqlstate", "stack trace", "panic:"}

// Translate converts any backend failure into an *Error with a classified
// kind and a user-safe message. A nil error yields the generic unknown
// error, matching the original behavior of rendering "something went wrong"
// when the backend returned an empty failure.
func Translate(err error) *Error {
	if err == nil {
		return &Error{Kind: KindUnknown, Message: "An unexpected error occurred", Err: nil}
	}

	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr
	}

	if errors.Is(err, async.ErrTimeout) {
		return &Error{Kind: KindTimeout, Message: timeoutMessage(err), Err: err}
	}

	raw := err.Error()
	lower := strings.ToLower(raw)
	for _, rule := range messageRules {
		if strings.Contains(lower, rule.substr) {
			return &Error{Kind: rule.kind, Message: rule.message, Err: err}
		}
	}

	// Long or token-laden messages are internal noise; collapse them.
	if len(raw) > 100 || containsAny(lower, technicalTokens) {
		return &Error{Kind: KindUnknown, Message: "An unexpected error occurred. Please try again.", Err: err}
	}

	// Short, evidently human-readable messages pass through unchanged.
	return &Error{Kind: KindUnknown, Message: raw, Err: err}
}

// File operations carry their own timeout phrasing; the label is the
// operation name the timeout wrapper prefixed onto the error.
var transferOperations = []string{
	"upload file",
	"upload content",
	"download file",
	"list files",
	"get file info",
	"delete file",
}

// timeoutMessage renders a timeout for end users. Storage operations name
// the operation so the user knows which transfer to retry; everything else
// stays the terse auth-flow phrasing.
func timeoutMessage(err error) string {
	msg := err.Error()
	for _, op := range transferOperations {
		if strings.HasPrefix(msg, op+":") {
			return op + " timeout - please try again"
		}
	}
	return "Request timeout"
}

// UserMessage renders any error as a string safe to show to end users.
func UserMessage(err error) string {
	return Translate(err).Message
}

func containsAny(s string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}
