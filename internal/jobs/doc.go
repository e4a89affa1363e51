// Package jobs holds the in-memory job registry.
//
// Records are owned by the store; every operation returns a snapshot
// copy, never a live reference, so callers across goroutines can never
// observe a partial write. Terminal records are immutable until the TTL
// sweep removes them.
package jobs
