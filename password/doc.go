// Package password implements key-stretched verification of submitted
// credentials against stored verification hashes.
//
// # Derivation
//
// For a per-record salt source s, a submitted credential c and a digest D:
//
//	salt = hex(D(s))
//	hash = hex(D(salt || c || salt))   repeated Iterations times
//
// Every round digests the same salted input. The loop exists only to make each
// verification cost a fixed amount of work; the result is deterministic for a
// given (s, c, Iterations) triple.
//
// # Architecture boundaries
//
// This package owns derivation and comparison. Lockout, audit and record
// lookup belong to the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve credentials.
//   - Log credentials, salts or derived hashes.
//   - Compare hashes with ordinary string equality.
package password
