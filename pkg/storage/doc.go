// Package storage performs authenticated file operations against an
// application-scoped namespace.
//
// Two Backend implementations are provided. Client talks to the hosted
// platform's storage proxy over REST, authenticating each request with a
// bearer token obtained from a TokenSource and failing fast when no token
// is available. S3Storage talks to an S3-compatible bucket directly for
// self-hosted deployments, keying every object under the application slug.
//
// Every operation runs under a per-class timeout: 30 seconds for uploads
// and downloads, 10 seconds for metadata, list, and delete calls. A
// deadline expiry surfaces as an operation-labelled error wrapping
// async.ErrTimeout.
//
//	client, err := storage.NewClient(baseURL, "my-app", func(ctx context.Context) string {
//		return sessions.AccessToken(ctx)
//	})
//	if err != nil {
//		return err
//	}
//	files, err := client.List(ctx, "avatars/")
//
// There is no caching, chunking, or resumability; each call is one round
// trip and a timed-out transfer is simply abandoned.
package storage
