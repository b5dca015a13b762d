// Package authclient manages the client-side lifecycle of a backend-issued
// authentication session: hydrating persisted credentials at startup,
// revalidating them against the backend, fetching the current profile and
// admin status, and reacting to definitive authorization failures by
// clearing local state and redirecting.
//
// The package is built around three pieces:
//
//   - Store: a persisted, explicitly constructed state container holding the
//     aggregate auth state. Every mutation recomputes derived fields and
//     writes a full replacement snapshot to durable storage.
//   - Manager: drives the lifecycle. It races the storage layer's readiness
//     signal against a bounded timeout, fans out session revalidation and
//     profile fetching as independent tasks, and owns the login, callback
//     and sign-out flows.
//   - storage.Store implementations: memory, bbolt and bun/SQLite backends
//     for the persisted record.
package authclient
