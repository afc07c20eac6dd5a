// Package future provides a single-fire, chainable asynchronous result container.
//
// A Future[T, E] starts Pending and settles exactly once, either Fulfilled with a
// result of type T (Complete) or Failed with an error value of type E (Fail).
// Handlers are registered exactly once with Then. The outcome may be latched
// before or after the handlers are registered; either way the matching handler
// fires exactly once.
//
// Handlers never run inside the caller's own call to Then, Complete, Fail or
// SetProgress. Firing is always handed to the Executor the Future was created
// with (normally the scheduler worker), which keeps call stacks flat and gives
// every caller the same asynchronous contract.
//
// Chaining:
//
//	next := f.Then(onSuccess, onFailure, nil)
//
// Then returns a successor Future that settles with the same result or error
// as its parent, but only after the parent's own handler has run.
//
// Misuse (a second Then, settling twice, reading an unsettled Future) is a
// programming error and panics with an error wrapping ErrInvalidState.
package future
