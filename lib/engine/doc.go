// Package engine is the entry point of jsonq: it validates request Documents
// and routes them to the Database.
//
// An Engine is an explicit context object. It owns the scheduler that runs all
// commands and the Database holding providers and stores. Create one with New,
// register additional providers with RegisterProvider, submit requests with
// Exec and release everything with Close.
//
// Exec validates, in this order, that the request has an id, a known op, a
// store name and a payload key (the payload value may be null). A malformed
// request is rejected synchronously with a *ValidationError (errors.Is
// ErrInvalidArgument); everything else is reported through the returned
// Future as a response envelope.
//
// Example:
//
//	e, _ := engine.New(common.DefaultEngineConfig())
//	defer e.Close()
//
//	req, _ := document.Parse([]byte(`{"id":"t1","op":"provision","store":"users","payload":{"provider":"mem"}}`))
//	f, err := e.Exec(req)
//	if err != nil {
//		// malformed request
//	}
//	response, failure, ok, _ := f.Await(ctx)
package engine
