// Package identifier implements structural validation of login identifiers.
//
// # Kinds
//
//   - [KindDirectory]: directory-style handles. A letter followed by letters,
//     digits, '_', '.' or '-', considered on a 64-rune prefix.
//   - [KindEmail]: bare e-mail addresses of 8..60 characters whose domain
//     publishes at least one MX record.
//
// Every rejection carries a [Reason] so callers can tell a missing identifier
// from a malformed one or from a domain that does not receive mail.
//
// # Architecture boundaries
//
// This package owns identifier normalization and shape rules. It does NOT know
// about authentication modes; the Engine maps each mode onto a [Kind].
//
// # What this package must NOT do
//
//   - Touch the credential store or emit audit events.
//   - Import credauth or any sibling package.
package identifier
