// Package mstore provides the reference in-memory implementation of store.Store.
//
// Records live in an xsync.MapOf keyed by document id. Each record remembers
// the sequence number of its first insertion, so List returns documents in
// insertion order; overwriting an id keeps its position.
//
// All operations run as tasks on the executor the factory was created with
// (the scheduler worker). The concurrent map keeps the store safe even if it is
// ever driven by more than one worker.
//
// Saved payloads are stored as given, without a copy: callers must not mutate
// a Document after saving it.
package mstore
