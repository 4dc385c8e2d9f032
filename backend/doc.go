// Package backend defines the provider-agnostic surface of the hosted
// platform's authentication API and ships an HTTP implementation of it.
//
// The managers in this module (session, account, profile) depend only on the
// AuthProvider interface, never on the wire protocol. HTTPProvider speaks the
// platform's REST endpoints (password grant, signup, logout, recover,
// authorize, refresh) and maintains the current session in memory, notifying
// OnAuthChange subscribers about every transition, including ones the
// application did not initiate, such as a background token refresh.
//
// Implementations must be safe for concurrent use. For tests, the
// backendtest subpackage provides a configurable in-process fake with call
// counters.
package backend
