// Package authclient is the client-resident session core: it establishes,
// persists, restores, refreshes and terminates a user's authenticated
// session against a remote identity endpoint.
//
// Session lifecycle:
//   - Controller is the only writer of session state. It moves through
//     unauthenticated, restoring, authenticated, refreshing_token and
//     logging_out, and every failure on restore or refresh lands back on
//     unauthenticated with both tokens purged.
//   - Every operation returns a Result. Callers branch on Result.OK or
//     Result.Kind; no operation returns a bare error or panics.
//   - Concurrent refreshes share one network call (singleflight), and all
//     entry points are serialized, so a login issued during a refresh waits
//     for it.
//
// Persistence:
//   - SessionStore holds the access and refresh tokens under two keys. The
//     Controller treats a missing access token as "no session". Each write
//     removes the stored access token, then writes the refresh token and the
//     new access token last, so a crash mid-write never pairs an old access
//     token with a new refresh token. A lone refresh token is discarded on
//     the next start. See store/boltstore and store/sqlstore for durable
//     stores.
//
// Consumers read the session through SessionView (Snapshot, Subscribe) and
// obtain bearer tokens through TokenSource. The authorization model lives in
// the policy package and only borrows the session's organization id.
package authclient
