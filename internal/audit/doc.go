// Package audit implements async delivery of authentication decision events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured record of one terminal decision: identifier, mode,
//     outcome, client IP, request ID, metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which
// events to emit; the Engine emits exactly one event per terminal decision.
// The durable audit trail is written by the credential store; this stream is
// for observability.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import credauth or any sibling internal package.
//   - Carry credentials or derived hashes in any field.
package audit
