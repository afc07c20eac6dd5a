// Package sqlstore provides a store.Store backed by an in-process SQLite memory
// database (modernc.org/sqlite, pure Go).
//
// Every provisioned store opens its own private memory database with a single
// table:
//
//	documents(id TEXT PRIMARY KEY, body TEXT NOT NULL)
//
// Documents are kept as tagged JSON (see codec.go) so that every Value keeps
// its kind and multi-valued or empty keys read back unchanged. Upserts keep the rowid of an existing id, so
// List (ORDER BY rowid) returns documents in first-insertion order, matching
// the memory store.
//
// Unlike mstore, fetched and listed Documents are decoded copies: mutating them
// does not change the stored record.
package sqlstore
