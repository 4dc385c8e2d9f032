// Package event provides the instance-owned event registry used by the auth
// client to notify application code about login, logout, and profile update
// transitions.
//
// Dispatch is synchronous and ordered: Emit runs every listener registered
// for the event, in registration order, on a snapshot of the listener list.
// A listener that subscribes or unsubscribes during emission affects only
// subsequent passes, and a panicking listener is isolated: it is recovered,
// logged, and the remaining listeners still run.
//
// The emitter is deliberately not a package-level singleton: every client
// instance owns its own registry so that multiple clients (common in tests)
// cannot observe each other's events.
package event
