// Package authclient is the session client for the account service behind
// the site: it keeps who is logged in, talks to the remote API on their
// behalf and reflects the session onto pages.
//
// Session lifecycle:
//   - A Controller starts in StateUninitialized. Initialize hydrates the
//     credential, user and permissions from the durable Backend and confirms
//     them with GET /auth/me. Concurrent callers share the first run.
//   - The session record is all or nothing: a user is never held without a
//     credential. A 401 for the active credential tears the session down and
//     clears storage, a 401 for an older credential is ignored.
//   - Login, Signup and SignupWithoutInvite persist the credential, fetch the
//     authoritative profile, sync the page and emit an Event.
//
// Results:
//   - Public operations return Result[T], either a value or a *Failure tagged
//     with a FailureKind. Failures carry the server's message and code when it
//     sent them, local validation failures never reach the network.
//
// Configuration:
//   - Config is injected. LoadConfig reads dotenv files and the environment,
//     New and NewTransport fail fast on a missing or malformed API URL.
//
// Extension points:
//   - Backend stores raw bytes (see storage/memory and repository.KVStore).
//   - UISyncer applies snapshots to a page (see uisync).
//   - EventSink receives lifecycle notifications, best effort.
//   - Navigator moves the hosting page.
package authclient
