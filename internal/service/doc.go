// Package service implements the registrar use cases on top of sessions.
//
// Each method opens its own session and runs writes in a single transaction,
// so entities returned to callers are detached. Lookups address entities by
// name, which the sample data keeps unique.
//
// # Event System
//
// Committed changes are published on an EventBus. Subscribers receive them
// on buffered channels; a slow subscriber misses events rather than blocking
// the caller.
package service
