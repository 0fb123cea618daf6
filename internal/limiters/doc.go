// Package limiters provides the failed-attempt lockout policy.
//
// [LockoutPolicy] reads a trailing-window failure count from a
// [FailureCounter] on every call and compares it with the configured
// threshold. Counting and persistence belong to the counter; the policy only
// decides.
//
// # What this package must NOT do
//
//   - Import credauth or any sibling internal package.
//   - Increment counters. The coordinator records failures after comparing.
//   - Treat a counter error as "not locked".
package limiters
