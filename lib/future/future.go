package future

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ValentinKolb/jsonq/lib/util"
)

// ErrInvalidState is wrapped by every panic raised for API misuse.
var ErrInvalidState = errors.New("invalid state")

// Executor runs tasks asynchronously, decoupled from the submitting caller.
// The scheduler implements it.
type Executor interface {
	Submit(task func()) bool
}

// State of a Future.
type State uint8

const (
	Pending State = iota
	Fulfilled
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// FailureError carries a failure value that is not itself an error when it is
// surfaced through Get.
type FailureError[E any] struct {
	Value E
}

func (e *FailureError[E]) Error() string {
	if s, ok := any(e.Value).(fmt.Stringer); ok {
		return "future failed: " + s.String()
	}
	return fmt.Sprintf("future failed: %v", e.Value)
}

// Future is a single-fire asynchronous result container.
//
// Thread-safety: All methods are thread-safe.
type Future[T, E any] struct {
	id   string
	exec Executor

	mu       sync.Mutex
	state    State
	result   T
	failure  E
	progress float64
	done     chan struct{}

	onSuccess   func(T)
	onFailure   func(E)
	onProgress  func(float64)
	handlersSet bool
	fired       bool

	next *Future[T, E]
}

// New creates a Pending Future whose handlers fire on exec.
func New[T, E any](exec Executor) *Future[T, E] {
	if exec == nil {
		panic(fmt.Errorf("%w: future needs an executor", ErrInvalidState))
	}
	return &Future[T, E]{
		id:   util.NewID(),
		exec: exec,
		done: make(chan struct{}),
	}
}

// Completed creates a Future that is already Fulfilled with result.
func Completed[T, E any](exec Executor, result T) *Future[T, E] {
	f := New[T, E](exec)
	f.Complete(result)
	return f
}

// Rejected creates a Future that has already Failed with failure.
func Rejected[T, E any](exec Executor, failure E) *Future[T, E] {
	f := New[T, E](exec)
	f.Fail(failure)
	return f
}

// ID returns the identity token of the Future.
func (f *Future[T, E]) ID() string {
	return f.id
}

// --------------------------------------------------------------------------
// Handler registration
// --------------------------------------------------------------------------

// Then registers the handlers (any of them may be nil) and returns the
// successor Future. If the Future has already settled, the matching handler is
// scheduled on the executor; it never runs before Then returns.
//
// Panics with ErrInvalidState if handlers were already registered.
func (f *Future[T, E]) Then(onSuccess func(T), onFailure func(E), onProgress func(float64)) *Future[T, E] {
	f.mu.Lock()
	if f.handlersSet {
		f.mu.Unlock()
		panic(fmt.Errorf("%w: Then() called twice on future %s", ErrInvalidState, f.id))
	}
	f.onSuccess = onSuccess
	f.onFailure = onFailure
	f.onProgress = onProgress
	f.handlersSet = true
	f.next = New[T, E](f.exec)
	next := f.next
	fire := f.claimFire()
	f.mu.Unlock()

	if fire != nil {
		f.schedule(fire)
	}
	return next
}

// --------------------------------------------------------------------------
// Settlement
// --------------------------------------------------------------------------

// Complete fulfills the Future with result.
//
// Panics with ErrInvalidState if the Future has already settled.
func (f *Future[T, E]) Complete(result T) {
	f.settle(Fulfilled, result, *new(E))
}

// Fail fails the Future with failure.
//
// Panics with ErrInvalidState if the Future has already settled.
func (f *Future[T, E]) Fail(failure E) {
	f.settle(Failed, *new(T), failure)
}

func (f *Future[T, E]) settle(state State, result T, failure E) {
	f.mu.Lock()
	if f.state != Pending {
		current := f.state
		f.mu.Unlock()
		panic(fmt.Errorf("%w: future %s already %s", ErrInvalidState, f.id, current))
	}
	f.state = state
	f.result = result
	f.failure = failure
	close(f.done)
	fire := f.claimFire()
	f.mu.Unlock()

	if fire != nil {
		f.schedule(fire)
	}
}

// claimFire returns the firing task if the Future is settled, has handlers and
// has not fired yet. Marks the Future as fired. Must be called with mu held.
func (f *Future[T, E]) claimFire() func() {
	if f.state == Pending || !f.handlersSet || f.fired {
		return nil
	}
	f.fired = true

	state, result, failure := f.state, f.result, f.failure
	onSuccess, onFailure, next := f.onSuccess, f.onFailure, f.next

	return func() {
		if state == Failed {
			if onFailure != nil {
				onFailure(failure)
			}
			next.settle(Failed, result, failure)
			return
		}
		if onSuccess != nil {
			onSuccess(result)
		}
		next.settle(Fulfilled, result, failure)
	}
}

// schedule hands task to the executor. A task the executor rejects (e.g.
// after shutdown) runs on its own goroutine, so handlers still fire and never
// on the caller's stack.
func (f *Future[T, E]) schedule(task func()) {
	if !f.exec.Submit(task) {
		go task()
	}
}

// --------------------------------------------------------------------------
// Progress
// --------------------------------------------------------------------------

// SetProgress records the progress of the pending operation and schedules the
// progress handler, if one is registered. Progress reported after settlement
// is ignored.
func (f *Future[T, E]) SetProgress(progress float64) {
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return
	}
	f.progress = progress
	handler := f.onProgress
	f.mu.Unlock()

	if handler != nil {
		f.schedule(func() { handler(progress) })
	}
}

// Progress returns the last reported progress.
func (f *Future[T, E]) Progress() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progress
}

// --------------------------------------------------------------------------
// Inspection
// --------------------------------------------------------------------------

// State returns the current state without blocking.
func (f *Future[T, E]) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// IsComplete reports whether the Future has settled (either way).
func (f *Future[T, E]) IsComplete() bool {
	return f.State() != Pending
}

// IsFailure reports whether the Future has settled as Failed.
func (f *Future[T, E]) IsFailure() bool {
	return f.State() == Failed
}

// Get returns the result of a Fulfilled Future. For a Failed Future it returns
// the failure as an error: the failure itself if E is an error, otherwise
// wrapped in a *FailureError[E].
//
// Panics with ErrInvalidState if the Future has not settled.
func (f *Future[T, E]) Get() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case Fulfilled:
		return f.result, nil
	case Failed:
		if err, ok := any(f.failure).(error); ok && err != nil {
			return f.result, err
		}
		return f.result, &FailureError[E]{Value: f.failure}
	default:
		panic(fmt.Errorf("%w: future %s has not completed", ErrInvalidState, f.id))
	}
}

// Failure returns the failure value of a Failed Future, or the zero E for a
// Fulfilled one.
//
// Panics with ErrInvalidState if the Future has not settled.
func (f *Future[T, E]) Failure() E {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Pending {
		panic(fmt.Errorf("%w: future %s has not completed", ErrInvalidState, f.id))
	}
	return f.failure
}

// Done returns a channel that is closed once the Future settles.
func (f *Future[T, E]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the Future settles or ctx is done, then returns the
// result and the failure. ok is false when the Future failed.
//
// Await must not be called from the executor's own worker for a Future that
// the worker itself has yet to settle.
func (f *Future[T, E]) Await(ctx context.Context) (result T, failure E, ok bool, err error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		return result, failure, false, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.failure, f.state == Fulfilled, nil
}
