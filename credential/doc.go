// Package credential validates the shape of submitted credentials before any
// hashing work is spent on them.
//
// This is not a strength check. In the default [FormatHexDigest] the client
// submits a pre-hashed token, so the only question is whether the string looks
// like a 512-bit hex digest. [FormatLegacyComplexity] keeps the character-class
// rule used by raw-password deployments.
//
// Rules are pluggable per [Format] through [Validator.Register].
package credential
