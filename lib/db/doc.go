// Package db provides the Database: the registry of store providers and
// provisioned stores, and the commands that execute requests against them.
//
// Every operation (Provision, Save, Fetch, Delete, List) runs as a command on
// the Database's executor and returns a Future that resolves to a response
// envelope:
//
//	{request_id: <request.id>, success: <bool>, payload: <result or error document>, txn_id?: <request.txn_id>}
//
// Operational failures (unknown store, unknown provider, a store that already
// exists, store level errors) fail the Future with an envelope whose payload is
// an error Document built by store.NewError. Both the success and the failure
// value of the Future are envelopes, so callers distinguish outcomes by the
// success flag and payload.code.
//
// Key Components:
//
//   - Registry: provider name -> store.Factory and store name -> store.Store,
//     guarded by one mutex. Provider registration is last-wins. Store names are
//     unique; provisioning an existing name fails with err.store.exists and
//     leaves the registry unchanged, even when two provisions race.
//
//   - Commands: each command looks up its store under the registry lock, then
//     delegates to the store and relays the store's Future outcome into the
//     envelope.
//
//   - Metrics: every Database owns a VictoriaMetrics set with
//     jsonq_commands_total{op,result} counters and
//     jsonq_command_duration_seconds{op} histograms (see WriteMetrics).
//
// The Database does not validate request shape; that is the dispatcher's job
// (see package engine).
package db
