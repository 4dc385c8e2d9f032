// Package profile keeps an application-level profile row in sync with the
// authenticated identity.
//
// The hosted backend owns authentication; this package owns the users table
// row that application features hang off of (names, avatar, theme, billing
// customer id, role). Rows are provisioned lazily: opportunistically right
// after sign-in via EnsureProfile (a detached, never-blocking task whose
// failures are logged and discarded) or on demand when a lookup finds no
// row.
//
// The bundled PostgresStore talks to the table through pgx. Row-level
// security denials on the existence check are tolerated as "not found,
// expected", since the policy cannot grant access to a row that does not
// exist yet.
package profile
