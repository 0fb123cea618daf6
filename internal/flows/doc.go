// Package flows contains pure-function orchestrators for Engine operations.
//
// RunAuthenticate accepts a typed dependency struct of functions and returns
// a decision without side effects beyond those dependencies. This keeps the
// Engine type thin and lets every state transition be tested with fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to validators, the lockout policy, the
// credential store, the hasher, the audit dispatcher, and metrics. They do NOT
// own any of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import credauth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
