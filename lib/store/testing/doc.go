// Package testing provides a standardised test suite for implementations of
// the store.Store interface.
//
// Every test provisions a fresh store through the implementation's Factory,
// driven by its own scheduler, and checks the contract documented on
// store.Store: id generation, overwrite semantics, insertion-ordered listing,
// idempotent deletes and the error codes for bad input.
//
// Example usage:
//
//	func TestMyStore(t *testing.T) {
//		storetesting.RunStoreTests(t, "MyStore", func(exec future.Executor) store.Factory {
//			return mystore.NewFactory(exec)
//		})
//	}
package testing
