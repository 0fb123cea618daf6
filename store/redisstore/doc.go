// Package redisstore implements credauth.CredentialStore on Redis.
//
// # Key layout
//
//   - <prefix>:cred:<id>: hash {salt, hash}, one per identifier.
//   - <prefix>:fail:<id>: sorted set of failed attempts scored by unix millis.
//   - <prefix>:audit:<id>: list of JSON audit lines, newest first, capped.
//
// Failed attempts are written with ZADD + ZREMRANGEBYSCORE + PEXPIRE inside
// one MULTI/EXEC so concurrent failures are never lost. Counting is a single
// ZCOUNT over the trailing window.
//
// # What this package must NOT do
//
//   - Store the submitted credential.
//   - Cache counts between calls.
package redisstore
