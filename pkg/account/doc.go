// Package account executes the five auth verbs (sign-in, sign-up,
// sign-out, password reset, and OAuth initiation) against the hosted
// backend.
//
// Every verb validates and sanitizes its input before any network call and
// runs the call under a 10 second budget (5 seconds for sign-out). Backend
// failures are translated into *Error values carrying a structured Kind for
// programmatic branching and a user-safe Message for direct rendering; raw
// backend messages never reach the UI.
//
// SignOut is deliberately asymmetric: the backend call is best-effort and
// its failure is suppressed, because clearing local session state must be
// unconditionally reliable even on a dead network.
//
// OAuth completion is asynchronous: SignInWithOAuth only returns the
// authorization URL that initiates the redirect flow; the resulting session
// is observed later through the backend's auth-change subscription. The
// DirectOAuth adapter covers self-managed deployments that talk to the
// providers directly.
package account
