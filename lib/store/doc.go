// Package store defines the pluggable document store abstraction of jsonq.
//
// The package focuses on:
//   - A unified asynchronous interface (Store) for save, fetch, delete and list on Documents
//   - Named providers: a Factory builds a Store from a provisioning schema Document
//   - Structured operational errors: error Documents of the shape {code, message, args}
//
// Key Components:
//
//   - Store Interface: every operation takes the full request Document (the
//     operation input lives under its "payload" key) and returns a Future
//     immediately. The work itself runs on the scheduler worker.
//
//   - Factory: creates a Store asynchronously from a schema Document. The schema
//     carries at least "provider" and optionally "id_field"; everything else is
//     provider specific. FactoryFunc adapts a plain function.
//
//   - Error Documents: NewError builds the error payload used by stores and by
//     the database commands. The Err* constants are the codes callers switch on.
//
// Implementations:
//
//	- Memory Store (mstore): the reference in-memory implementation.
//	  Available in the "github.com/ValentinKolb/jsonq/lib/store/mstore" package.
//
//	- SQLite Store (sqlstore): keeps documents as JSON rows in an in-process
//	  SQLite memory database. Available in the
//	  "github.com/ValentinKolb/jsonq/lib/store/sqlstore" package.
//
// A conformance suite for new providers lives in lib/store/testing.
package store
