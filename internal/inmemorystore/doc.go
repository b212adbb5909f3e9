// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the statestore.Store interface.
//
// # Concurrency Model
//
// State lives in sync.Maps. The key space is known upfront (every candidate
// is registered before workers start) while values change frequently, which
// is the access pattern sync.Map is built for. Each candidate's state is
// independent, so writers for different artifacts never contend.
//
// # When to Use
//
// This implementation is suitable for single-process runs where all state
// fits in memory. Run history that must outlive the process is written by
// reportstore instead.
package inmemorystore
