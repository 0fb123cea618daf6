// Package credauth provides a credential-authentication decision engine.
//
// Given an identifier, a credential and a [Mode], [Engine.Authenticate]
// validates the identifier, consults the lockout policy, fetches the stored
// credential record, checks the credential shape, derives a key-stretched
// verification hash and compares it in constant time. It returns one
// [Outcome] and records exactly one audit line through the [CredentialStore].
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// credauth is the public surface. It exposes [Engine], [Builder], [Config],
// [Outcome], [Mode] and the [CredentialStore] contract. Flow orchestration,
// lockout evaluation, metric storage and async audit dispatch live under
// internal/ and are never exported. Bundled store implementations live under
// store/.
//
// # What this package must NOT do
//
//   - Log, persist or echo the submitted credential.
//   - Treat a store failure as "not locked" or "not found".
//   - Import any sub-package that re-imports credauth (no import cycles).
//
// # Performance contract
//
// Authenticate is deliberately expensive in ModeDatabase: the hasher runs
// Config.Hasher.Iterations digest rounds per attempt. Each attempt performs at
// most four store round-trips: count, fetch, increment, audit.
package credauth
