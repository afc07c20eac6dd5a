package future

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/jsonq/lib/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduler(t *testing.T) *scheduler.Scheduler {
	s := scheduler.New()
	t.Cleanup(s.Close)
	return s
}

func await[T, E any](t *testing.T, f *Future[T, E]) {
	t.Helper()
	select {
	case <-f.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("future %s did not settle", f.ID())
	}
}

func TestCompleteBeforeThen(t *testing.T) {
	s := newScheduler(t)
	f := New[string, error](s)
	f.Complete("ok")

	got := make(chan string, 1)
	f.Then(func(v string) { got <- v }, nil, nil)

	select {
	case v := <-got:
		assert.Equal(t, "ok", v)
	case <-time.After(time.Second):
		t.Fatal("success handler did not fire")
	}
}

func TestThenBeforeComplete(t *testing.T) {
	s := newScheduler(t)
	f := New[string, error](s)

	got := make(chan string, 1)
	f.Then(func(v string) { got <- v }, func(error) { t.Error("failure handler fired") }, nil)
	f.Complete("later")

	select {
	case v := <-got:
		assert.Equal(t, "later", v)
	case <-time.After(time.Second):
		t.Fatal("success handler did not fire")
	}
}

func TestFailBothOrderings(t *testing.T) {
	s := newScheduler(t)
	boom := errors.New("boom")

	before := New[int, error](s)
	before.Fail(boom)
	gotBefore := make(chan error, 1)
	before.Then(nil, func(err error) { gotBefore <- err }, nil)

	after := New[int, error](s)
	gotAfter := make(chan error, 1)
	after.Then(func(int) { t.Error("success handler fired") }, func(err error) { gotAfter <- err }, nil)
	after.Fail(boom)

	assert.ErrorIs(t, <-gotBefore, boom)
	assert.ErrorIs(t, <-gotAfter, boom)
}

func TestHandlerNeverRunsSynchronously(t *testing.T) {
	s := newScheduler(t)

	// block the worker so nothing scheduled can run yet
	release := make(chan struct{})
	s.Submit(func() { <-release })

	var fired atomic.Bool
	f := New[int, error](s)
	f.Complete(1)
	f.Then(func(int) { fired.Store(true) }, nil, nil)
	assert.False(t, fired.Load(), "handler ran inside Then")

	g := New[int, error](s)
	g.Then(func(int) { fired.Store(true) }, nil, nil)
	g.Complete(2)
	assert.False(t, fired.Load(), "handler ran inside Complete")

	close(release)
	assert.Eventually(t, fired.Load, time.Second, time.Millisecond)
}

// closedExecutor rejects every task, like a scheduler after Close.
type closedExecutor struct{}

func (closedExecutor) Submit(func()) bool { return false }

func TestRejectingExecutorStillFiresHandlers(t *testing.T) {
	f := Rejected[string, string](closedExecutor{}, "closed")

	got := make(chan string, 1)
	var next *Future[string, string]
	require.NotPanics(t, func() {
		next = f.Then(func(string) { t.Error("success handler fired") }, func(e string) { got <- e }, nil)
	})

	select {
	case e := <-got:
		assert.Equal(t, "closed", e)
	case <-time.After(2 * time.Second):
		t.Fatal("failure handler did not fire")
	}
	await(t, next)
	assert.True(t, next.IsFailure())

	p := New[string, string](closedExecutor{})
	progress := make(chan float64, 1)
	p.Then(nil, nil, func(v float64) { progress <- v })
	require.NotPanics(t, func() { p.SetProgress(0.5) })
	select {
	case v := <-progress:
		assert.Equal(t, 0.5, v)
	case <-time.After(2 * time.Second):
		t.Fatal("progress handler did not fire")
	}
}

func TestHandlerFiresExactlyOnce(t *testing.T) {
	s := newScheduler(t)

	for i := 0; i < 200; i++ {
		f := New[int, error](s)
		var calls atomic.Int32
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.Then(func(int) { calls.Add(1) }, nil, nil)
		}()
		go func() {
			defer wg.Done()
			f.Complete(i)
		}()
		wg.Wait()

		done := make(chan struct{})
		s.Submit(func() { s.Submit(func() { close(done) }) })
		<-done
		require.Equal(t, int32(1), calls.Load(), "iteration %d", i)
	}
}

func TestThenTwicePanics(t *testing.T) {
	s := newScheduler(t)

	pending := New[int, error](s)
	pending.Then(nil, nil, nil)
	assertInvalidState(t, func() { pending.Then(nil, nil, nil) })

	settled := New[int, error](s)
	settled.Complete(1)
	settled.Then(nil, nil, nil)
	assertInvalidState(t, func() { settled.Then(nil, nil, nil) })
}

func TestSettleTwicePanics(t *testing.T) {
	s := newScheduler(t)

	f := New[int, error](s)
	f.Complete(1)
	assertInvalidState(t, func() { f.Complete(2) })
	assertInvalidState(t, func() { f.Fail(errors.New("late")) })

	g := New[int, error](s)
	g.Fail(errors.New("first"))
	assertInvalidState(t, func() { g.Fail(errors.New("second")) })
	assertInvalidState(t, func() { g.Complete(1) })

	assert.Equal(t, 1, mustGet(t, f))
}

func TestGetBeforeSettlePanics(t *testing.T) {
	s := newScheduler(t)
	f := New[int, error](s)
	assertInvalidState(t, func() { _, _ = f.Get() })
	assertInvalidState(t, func() { f.Failure() })
	assert.False(t, f.IsComplete())
	assert.False(t, f.IsFailure())
}

func TestGetAndFailure(t *testing.T) {
	s := newScheduler(t)

	ok := Completed[string, error](s, "v")
	assert.True(t, ok.IsComplete())
	assert.False(t, ok.IsFailure())
	assert.Equal(t, "v", mustGet(t, ok))
	assert.NoError(t, ok.Failure())

	boom := errors.New("boom")
	failed := Rejected[string, error](s, boom)
	assert.True(t, failed.IsFailure())
	_, err := failed.Get()
	assert.Same(t, boom, err)

	// non-error failure values are wrapped
	wrapped := Rejected[string, int](s, 42)
	_, err = wrapped.Get()
	var fe *FailureError[int]
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 42, fe.Value)
	assert.Equal(t, 42, wrapped.Failure())
}

func TestChainReceivesSameOutcomeAfterParentHandler(t *testing.T) {
	s := newScheduler(t)

	var order []string
	f := New[string, error](s)
	next := f.Then(func(v string) { order = append(order, "parent:"+v) }, nil, nil)
	last := next.Then(func(v string) { order = append(order, "child:"+v) }, nil, nil)

	f.Complete("x")
	await(t, last)

	assert.Equal(t, "x", mustGet(t, next))
	assert.Equal(t, []string{"parent:x", "child:x"}, order[:2])

	boom := errors.New("boom")
	g := New[string, error](s)
	var parentSaw bool
	gNext := g.Then(nil, func(error) { parentSaw = true }, nil)
	g.Fail(boom)
	await(t, gNext)

	assert.True(t, parentSaw)
	assert.True(t, gNext.IsFailure())
	assert.Same(t, boom, gNext.Failure())
}

func TestChainWithoutHandlers(t *testing.T) {
	s := newScheduler(t)
	f := New[int, error](s)
	next := f.Then(nil, nil, nil)
	f.Complete(7)
	await(t, next)
	assert.Equal(t, 7, mustGet(t, next))
}

func TestProgress(t *testing.T) {
	s := newScheduler(t)
	f := New[int, error](s)

	progress := make(chan float64, 2)
	f.Then(nil, nil, func(p float64) { progress <- p })
	f.SetProgress(0.5)
	assert.Equal(t, 0.5, f.Progress())
	assert.Equal(t, 0.5, <-progress)

	f.Complete(1)
	f.SetProgress(0.9) // ignored after settlement
	assert.Equal(t, 0.5, f.Progress())
}

func TestAwait(t *testing.T) {
	s := newScheduler(t)

	f := New[int, error](s)
	s.Submit(func() { f.Complete(3) })
	v, failure, ok, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, failure)
	assert.Equal(t, 3, v)

	pending := New[int, error](s)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, _, err = pending.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIDsAreUnique(t *testing.T) {
	s := newScheduler(t)
	a, b := New[int, error](s), New[int, error](s)
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestNilExecutorPanics(t *testing.T) {
	assertInvalidState(t, func() { New[int, error](nil) })
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func mustGet[T, E any](t *testing.T, f *Future[T, E]) T {
	t.Helper()
	v, err := f.Get()
	require.NoError(t, err)
	return v
}

func assertInvalidState(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value should be an error, got %v", r)
		assert.ErrorIs(t, err, ErrInvalidState)
	}()
	fn()
}
