// Package directauth is a Go client for a hosted backend platform,
// coordinating authentication, local identity, profile provisioning, and
// file storage behind one façade.
//
// # Lifecycle
//
// A Client moves through uninitialized, initializing, and then ready or
// offline. Initialize probes connectivity and reconciles any remembered
// identity against the backend's live session; every failure degrades to
// offline mode instead of propagating. Offline mode is sticky until
// Reinitialize succeeds. While offline, network-bound methods return a
// descriptive error, and local reads (UserID, IsAuthenticated, event
// registration) keep working. SignOut is the deliberate exception to the
// offline guard: it always proceeds so local state can always be cleared.
//
//	cfg, err := directauth.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client := directauth.New(cfg)
//	client.Initialize(ctx)
//	defer client.Shutdown(ctx)
//
//	if err := client.SignIn(ctx, email, password); err != nil {
//		fmt.Println(account.UserMessage(err))
//	}
//
// # Identity and events
//
// The locally stored user identifier is the fast answer to "is someone
// signed in"; the backend session is the authoritative one. The identifier
// is validated as a UUID on every read and write, and reconciliation lets
// the backend win on any disagreement. Local state is always persisted
// before the corresponding login or logout event fires, so listeners
// observe consistent state.
//
// A successful sign-in also provisions a profile row in the background;
// that work never blocks or fails the sign-in itself.
//
// The subpackages are usable on their own: backend holds the provider
// interface and its HTTP implementation, pkg/session the identity manager,
// pkg/account the auth verbs and error translation, pkg/profile the
// profile store and manager, pkg/storage the file backends, and pkg/event
// the emitter the managers share.
package directauth
